package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	avroengine "schemagate/internal/avro"
	"schemagate/internal/schema"
	"schemagate/internal/schema/types"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
)

var registry *schema.Registry
var kvSchemas, kvConfig nats.KeyValue
var validator *avroengine.Validator
var checker *avroengine.Checker

// Init initializes the REST handlers with the schema registry using
// the default engine configuration. If NATS is not available, it will
// use in-memory implementations.
func Init(schemas, config nats.KeyValue) {
	InitWithConfig(schemas, config, avroengine.DefaultConfig())
}

// InitWithConfig initializes the REST handlers with an explicit engine
// configuration
func InitWithConfig(schemas, config nats.KeyValue, cfg avroengine.Config) {
	slog.Info("Initializing schema registry handlers")

	// If the KeyValue stores are nil, use in-memory fallbacks
	if schemas == nil {
		slog.Warn("Schema storage not available, using in-memory fallback")
		schemas = NewMemoryKeyValue("SCHEMAS")
	} else {
		slog.Info("Using external schema storage", "bucket", schemas.Bucket())
	}

	if config == nil {
		slog.Warn("Config storage not available, using in-memory fallback")
		config = NewMemoryKeyValue("CONFIG")
	} else {
		slog.Info("Using external config storage", "bucket", config.Bucket())
	}

	kvSchemas = schemas
	kvConfig = config

	registry = schema.NewWithConfig(kvSchemas, kvConfig, cfg)
	validator = avroengine.NewValidator(cfg)
	checker = avroengine.NewChecker(cfg)

	slog.Info("Schema registry handlers initialized successfully")
}

// SchemaRecord represents a stored schema record
type SchemaRecord struct {
	Schema     string `json:"schema"`
	Subject    string `json:"subject"`
	Version    int    `json:"version"`
	ID         int    `json:"id"`
	SchemaType string `json:"schemaType,omitempty"`
}

// SchemaRequest is payload for registering schemas.
type SchemaRequest struct {
	Schema     string `json:"schema"`
	SchemaType string `json:"schemaType,omitempty"`
}

// SchemaResponse returns the schema ID.
type SchemaResponse struct {
	ID int `json:"id"`
}

// CompatibilityResponse indicates compatibility result. Messages are
// populated only when verbose output is requested.
type CompatibilityResponse struct {
	IsCompatible bool     `json:"is_compatible"`
	Messages     []string `json:"messages,omitempty"`
}

// ValidateRequest is the payload for stateless schema validation.
type ValidateRequest struct {
	Schema string `json:"schema"`
}

// CompareRequest is the payload for a stateless compatibility check
// between two inline schemas.
type CompareRequest struct {
	OldSchema string `json:"old_schema"`
	NewSchema string `json:"new_schema"`
	Mode      string `json:"mode,omitempty"`
}

// ConfigRequest updates compatibility.
type ConfigRequest struct {
	Compatibility string `json:"compatibility"`
}

// ConfigResponse returns compatibility.
type ConfigResponse struct {
	CompatibilityLevel string `json:"compatibilityLevel"`
}

// ErrorResponse represents an error message
type ErrorResponse struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}

// SetupRouter creates and configures a Gin router with all schema registry routes
func SetupRouter() *gin.Engine {
	// Set Gin to release mode in production
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Set custom content type for all responses
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
		c.Next()
	})

	// Subjects routes
	r.GET("/subjects", handleSubjects)

	// Subject versions routes
	subjectGroup := r.Group("/subjects/:subject")
	{
		subjectGroup.GET("/versions", listVersions)
		subjectGroup.POST("/versions", registerSchema)
		subjectGroup.GET("/versions/:version", getSchema)
		subjectGroup.DELETE("/versions/:version", deleteSchemaVersion)
		subjectGroup.DELETE("", deleteSubject)
		subjectGroup.POST("", checkSchema)
	}

	// Schema ID routes
	r.GET("/schemas/ids/:id", getSchemaById)

	// Stateless validation and comparison routes
	r.POST("/schemas/validate", validateSchema)
	r.POST("/compatibility/check", compareSchemas)

	// Compatibility routes
	r.POST("/compatibility/subjects/:subject/versions/:version", checkCompatibility)
	r.POST("/compatibility/subjects/:subject/versions", checkCompatibilityForSubject)

	// Config routes
	r.GET("/config", getGlobalConfig)
	r.PUT("/config", updateGlobalConfig)
	r.GET("/config/:subject", getSubjectConfig)
	r.PUT("/config/:subject", updateSubjectConfig)

	return r
}

// Routes returns an http.Handler for backward compatibility
func Routes() http.Handler {
	return SetupRouter()
}

func handleSubjects(c *gin.Context) {
	if kvSchemas == nil {
		storageUnavailable(c)
		return
	}

	// Get all subjects with at least one version
	slog.Debug("Getting keys from KeyValue store", "bucket", kvSchemas.Bucket())
	keys, err := kvSchemas.Keys()
	if err != nil {
		slog.Error("Failed to get keys", "error", err, "bucket", kvSchemas.Bucket())
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			ErrorCode: 50000,
			Message:   fmt.Sprintf("failed to get keys: %v", err),
		})
		return
	}

	// Filter out internal keys and extract unique subjects
	subjects := make(map[string]bool)
	prefix := "subjects/"
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(key, prefix), "/")
		if len(parts) > 0 {
			subjects[parts[0]] = true
		}
	}

	// Convert map to slice
	subjectList := make([]string, 0, len(subjects))
	for subject := range subjects {
		subjectList = append(subjectList, subject)
	}

	slog.Debug("Got subjects", "count", len(subjectList))
	c.JSON(http.StatusOK, subjectList)
}

func validateSchema(c *gin.Context) {
	if validator == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			ErrorCode: 50300,
			Message:   "registry not initialized",
		})
		return
	}

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			ErrorCode: 42201,
			Message:   "invalid JSON",
		})
		return
	}

	result := validator.ValidateBytes([]byte(req.Schema))
	c.JSON(http.StatusOK, result)
}

func compareSchemas(c *gin.Context) {
	if checker == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			ErrorCode: 50300,
			Message:   "registry not initialized",
		})
		return
	}

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			ErrorCode: 42201,
			Message:   "invalid JSON",
		})
		return
	}

	mode := avroengine.Mode(strings.ToUpper(req.Mode))
	switch mode {
	case avroengine.ModeBackward, avroengine.ModeForward, avroengine.ModeFull, avroengine.ModeNone, "":
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			ErrorCode: 42202,
			Message:   fmt.Sprintf("invalid compatibility mode: %s", req.Mode),
		})
		return
	}

	result := checker.CheckBytes([]byte(req.OldSchema), []byte(req.NewSchema), mode)
	c.JSON(http.StatusOK, result)
}

func registerSchema(c *gin.Context) {
	subject := c.Param("subject")

	if kvSchemas == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	var req SchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			ErrorCode: 42201,
			Message:   "invalid JSON",
		})
		return
	}

	schemaType := types.Avro
	if req.SchemaType != "" {
		schemaType = types.SchemaType(req.SchemaType)
	}

	slog.Debug("Registering schema", "subject", subject, "schemaType", schemaType)
	id, err := registry.RegisterSchema(subject, req.Schema, schemaType)
	if err != nil {
		if strings.HasPrefix(err.Error(), "incompatible schema") {
			c.JSON(http.StatusConflict, ErrorResponse{
				ErrorCode: 40901,
				Message:   err.Error(),
			})
		} else {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				ErrorCode: 50000,
				Message:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, SchemaResponse{ID: id})
}

func getSchema(c *gin.Context) {
	subject := c.Param("subject")
	version := c.Param("version")

	if kvSchemas == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	schema, err := registry.GetSchemaBySubjectVersion(subject, version)
	if err != nil {
		code := http.StatusInternalServerError
		if err.Error() == "no versions found" {
			code = http.StatusNotFound
		}

		c.JSON(code, ErrorResponse{
			ErrorCode: 40401,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, toRecord(schema))
}

func listVersions(c *gin.Context) {
	subject := c.Param("subject")

	if kvSchemas == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	versions, err := registry.GetVersions(subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			ErrorCode: 50000,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, versions)
}

func checkCompatibility(c *gin.Context) {
	checkCompatibilityForSubject(c)
}

func checkCompatibilityForSubject(c *gin.Context) {
	subject := c.Param("subject")

	if kvSchemas == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	var req SchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			ErrorCode: 42201,
			Message:   "invalid JSON",
		})
		return
	}

	schemaType := types.Avro
	if req.SchemaType != "" {
		schemaType = types.SchemaType(req.SchemaType)
	}

	level, err := registry.GetCompatibilityLevel(subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			ErrorCode: 50000,
			Message:   err.Error(),
		})
		return
	}

	check, err := registry.CheckCompatibility(subject, req.Schema, schemaType, level)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			ErrorCode: 50000,
			Message:   err.Error(),
		})
		return
	}

	resp := CompatibilityResponse{IsCompatible: check.Compatible}
	if c.Query("verbose") == "true" {
		resp.Messages = check.Messages
	}

	c.JSON(http.StatusOK, resp)
}

func getGlobalConfig(c *gin.Context) {
	if kvConfig == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	level, err := registry.GetCompatibilityLevel("global")
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			ErrorCode: 50000,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ConfigResponse{CompatibilityLevel: string(level)})
}

func updateGlobalConfig(c *gin.Context) {
	if kvConfig == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			ErrorCode: 42201,
			Message:   "invalid JSON",
		})
		return
	}

	if err := registry.SetCompatibilityLevel("global", types.CompatibilityLevel(req.Compatibility)); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			ErrorCode: 50000,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ConfigResponse{CompatibilityLevel: req.Compatibility})
}

func getSubjectConfig(c *gin.Context) {
	subject := c.Param("subject")

	if kvConfig == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	level, err := registry.GetCompatibilityLevel(subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			ErrorCode: 50000,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ConfigResponse{CompatibilityLevel: string(level)})
}

func updateSubjectConfig(c *gin.Context) {
	subject := c.Param("subject")

	if kvConfig == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			ErrorCode: 42201,
			Message:   "invalid JSON",
		})
		return
	}

	if err := registry.SetCompatibilityLevel(subject, types.CompatibilityLevel(req.Compatibility)); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			ErrorCode: 50000,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ConfigResponse{CompatibilityLevel: req.Compatibility})
}

func getSchemaById(c *gin.Context) {
	id := c.Param("id")

	if kvSchemas == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	schema, err := registry.GetSchemaById(id)
	if err != nil {
		code := http.StatusInternalServerError
		if strings.HasPrefix(err.Error(), "schema not found") {
			code = http.StatusNotFound
		}

		c.JSON(code, ErrorResponse{
			ErrorCode: 40403,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, map[string]string{"schema": schema.Schema})
}

func deleteSchemaVersion(c *gin.Context) {
	subject := c.Param("subject")
	version := c.Param("version")

	if kvSchemas == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	err := registry.DeleteSchemaVersion(subject, version)
	if err != nil {
		code := http.StatusInternalServerError
		if err.Error() == "version not found" {
			code = http.StatusNotFound
		}

		c.JSON(code, ErrorResponse{
			ErrorCode: 40402,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, version)
}

func deleteSubject(c *gin.Context) {
	subject := c.Param("subject")

	if kvSchemas == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	versions, err := registry.DeleteSubject(subject)
	if err != nil {
		code := http.StatusInternalServerError
		if err.Error() == "subject not found" || err.Error() == "no versions found" {
			code = http.StatusNotFound
		}

		c.JSON(code, ErrorResponse{
			ErrorCode: 40401,
			Message:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, versions)
}

func checkSchema(c *gin.Context) {
	subject := c.Param("subject")
	slog.Debug("Checking schema", "subject", subject)

	if kvSchemas == nil || registry == nil {
		storageUnavailable(c)
		return
	}

	var req SchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			ErrorCode: 42201,
			Message:   "invalid JSON",
		})
		return
	}

	schemaType := types.Avro
	if req.SchemaType != "" {
		schemaType = types.SchemaType(req.SchemaType)
	}

	schema, err := registry.LookupSchema(subject, req.Schema, schemaType)
	if err != nil {
		if err.Error() == "schema not found" {
			c.JSON(http.StatusNotFound, ErrorResponse{
				ErrorCode: 40403,
				Message:   err.Error(),
			})
		} else {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				ErrorCode: 50000,
				Message:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, toRecord(schema))
}

func toRecord(schema *types.Schema) SchemaRecord {
	record := SchemaRecord{
		Schema:  schema.Schema,
		Subject: schema.Subject,
		Version: schema.Version,
		ID:      schema.ID,
	}

	// Only include schemaType if not default (Avro)
	if schema.Type != types.Avro {
		record.SchemaType = string(schema.Type)
	}

	return record
}

func storageUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		ErrorCode: 50300,
		Message:   "storage backend unavailable",
	})
}
