package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schemagate/internal/schema"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	// In-memory stores keep the tests free of a running NATS server
	Init(NewMemoryKeyValue("SCHEMAS"), NewMemoryKeyValue("CONFIG"))
	return SetupRouter()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWaitReadyWithMemoryStores(t *testing.T) {
	// Memory stores cannot watch for updates; readiness must still be
	// signalled instead of blocking until the context expires.
	reg := schema.New(NewMemoryKeyValue("SCHEMAS"), NewMemoryKeyValue("CONFIG"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, reg.WaitReady(ctx))
}

func TestRegisterAndFetchSchema(t *testing.T) {
	router := setupTestRouter(t)

	userSchema := `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}]}`
	w := doJSON(t, router, http.MethodPost, "/subjects/users/versions", SchemaRequest{Schema: userSchema})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var registered SchemaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	assert.Greater(t, registered.ID, 0)

	t.Run("list subjects", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/subjects", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var subjects []string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &subjects))
		assert.Contains(t, subjects, "users")
	})

	t.Run("get by version", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/subjects/users/versions/1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var record SchemaRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
		assert.Equal(t, userSchema, record.Schema)
		assert.Equal(t, "users", record.Subject)
		assert.Equal(t, 1, record.Version)
	})

	t.Run("get by id", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/schemas/ids/%d", registered.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
		assert.Equal(t, userSchema, payload["schema"])
	})

	t.Run("lookup registered schema", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/subjects/users", SchemaRequest{Schema: userSchema})
		require.Equal(t, http.StatusOK, w.Code)

		var record SchemaRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
		assert.Equal(t, registered.ID, record.ID)
	})
}

func TestRegisterInvalidSchema(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/subjects/users/versions",
		SchemaRequest{Schema: `{"type": "record", "name": "User"}`})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRegisterIncompatibleSchemaConflicts(t *testing.T) {
	router := setupTestRouter(t)

	v1 := `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}]}`
	w := doJSON(t, router, http.MethodPost, "/subjects/users/versions", SchemaRequest{Schema: v1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	v2 := `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}, {"name": "age", "type": "int"}]}`
	w = doJSON(t, router, http.MethodPost, "/subjects/users/versions", SchemaRequest{Schema: v2})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestValidateEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	t.Run("valid schema", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/schemas/validate",
			ValidateRequest{Schema: `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}]}`})
		require.Equal(t, http.StatusOK, w.Code)

		var result map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, true, result["is_valid"])
	})

	t.Run("invalid schema returns diagnostics", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/schemas/validate",
			ValidateRequest{Schema: `{"type": "record", "name": "User"}`})
		require.Equal(t, http.StatusOK, w.Code)

		var result map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, false, result["is_valid"])
		errors, ok := result["errors"].([]any)
		require.True(t, ok)
		assert.NotEmpty(t, errors)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/schemas/validate", bytes.NewReader([]byte("{")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCompareEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	oldSchema := `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}]}`
	newSchema := `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}, {"name": "age", "type": "int"}]}`

	t.Run("incompatible pair", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/compatibility/check",
			CompareRequest{OldSchema: oldSchema, NewSchema: newSchema, Mode: "BACKWARD"})
		require.Equal(t, http.StatusOK, w.Code)

		var result map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, false, result["is_compatible"])
		changes, ok := result["breaking_changes"].([]any)
		require.True(t, ok)
		assert.NotEmpty(t, changes)
	})

	t.Run("lowercase mode accepted", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/compatibility/check",
			CompareRequest{OldSchema: oldSchema, NewSchema: oldSchema, Mode: "full"})
		require.Equal(t, http.StatusOK, w.Code)

		var result map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, true, result["is_compatible"])
	})

	t.Run("invalid mode rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/compatibility/check",
			CompareRequest{OldSchema: oldSchema, NewSchema: newSchema, Mode: "SIDEWAYS"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSubjectCompatibilityEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	v1 := `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "string"}]}`
	w := doJSON(t, router, http.MethodPost, "/subjects/users/versions", SchemaRequest{Schema: v1})
	require.Equal(t, http.StatusOK, w.Code)

	incompatible := `{"type": "record", "name": "User", "fields": [{"name": "name", "type": "int"}]}`

	t.Run("terse response", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/compatibility/subjects/users/versions", SchemaRequest{Schema: incompatible})
		require.Equal(t, http.StatusOK, w.Code)

		var resp CompatibilityResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.IsCompatible)
		assert.Empty(t, resp.Messages)
	})

	t.Run("verbose response carries messages", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/compatibility/subjects/users/versions?verbose=true", SchemaRequest{Schema: incompatible})
		require.Equal(t, http.StatusOK, w.Code)

		var resp CompatibilityResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.IsCompatible)
		assert.NotEmpty(t, resp.Messages)
	})
}

func TestConfigEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	t.Run("default global config", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/config", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp ConfigResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "BACKWARD", resp.CompatibilityLevel)
	})

	t.Run("update subject config", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/config/users", ConfigRequest{Compatibility: "FULL"})
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, "/config/users", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp ConfigResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "FULL", resp.CompatibilityLevel)
	})

	t.Run("invalid level rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/config", ConfigRequest{Compatibility: "SIDEWAYS"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
