package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"schemagate/internal/avro"
	"schemagate/internal/rest"

	natsd "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"
)

type config struct {
	NATSURL      string      `yaml:"nats_url"`
	HTTPAddr     string      `yaml:"http_addr"`
	SchemaBucket string      `yaml:"schema_bucket"`
	ConfigBucket string      `yaml:"config_bucket"`
	Debug        bool        `yaml:"debug"`
	TestMode     bool        `yaml:"test_mode"`
	Engine       avro.Config `yaml:"engine"`

	configFile   string
	reportFormat string
}

func (c *config) load(fs *flag.FlagSet) {
	c.Engine = avro.DefaultConfig()

	fs.StringVar(&c.NATSURL, "nats-url", getEnv("NATS_URL", nats.DefaultURL), "NATS server URL")
	fs.StringVar(&c.HTTPAddr, "http-addr", getEnv("HTTP_ADDR", ":8081"), "HTTP server address")
	fs.StringVar(&c.SchemaBucket, "schema-bucket", getEnv("SCHEMA_BUCKET", "SCHEMAS"), "JetStream KV bucket for schemas")
	fs.StringVar(&c.ConfigBucket, "config-bucket", getEnv("CONFIG_BUCKET", "CONFIG"), "JetStream KV bucket for configs")
	fs.BoolVar(&c.Debug, "debug", getEnvBool("DEBUG", false), "Enable debug logging")
	fs.BoolVar(&c.TestMode, "test", getEnvBool("TEST_MODE", false), "Enable test mode with embedded NATS server")
	fs.StringVar(&c.configFile, "config", getEnv("CONFIG_FILE", ""), "Path to YAML config file")
	fs.StringVar(&c.reportFormat, "format", "text", "Report format for validate/check commands (text, json, markdown)")
}

// loadFile merges settings from a YAML config file. Flags set
// explicitly on the command line keep their values over the file.
func (c *config) loadFile(fs *flag.FlagSet) error {
	if c.configFile == "" {
		return nil
	}

	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// The file merge writes through the flag-bound fields, so snapshot
	// explicitly set flags and restore them afterwards.
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("restore flag %s: %w", name, err)
		}
	}

	return nil
}

type server struct {
	cfg          config
	js           nats.JetStreamContext
	kvSchemas    nats.KeyValue
	kvConfig     nats.KeyValue
	http         *http.Server
	natsServer   *natsd.Server
	embeddedNATS bool
}

func newServer(cfg config) *server {
	return &server{
		cfg:  cfg,
		http: &http.Server{Addr: cfg.HTTPAddr, Handler: rest.Routes()},
	}
}

func main() {
	cfg := config{}
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cfg.load(fs)
	fs.Parse(os.Args[1:])

	if err := cfg.loadFile(fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Configure logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	logHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(logHandler))

	// Subcommands run the engine directly without a server
	if args := fs.Args(); len(args) > 0 {
		os.Exit(runCommand(cfg, args))
	}

	slog.Info("Starting schema registry server", "addr", cfg.HTTPAddr)

	srv := newServer(cfg)
	if err := srv.setup(); err != nil {
		slog.Error("Failed to setup server", "error", err)
		// Continue with HTTP server even if NATS setup fails
		slog.Warn("Continuing with limited functionality (no persistent storage)")
	}

	// Initialize REST handlers with schema registry
	rest.InitWithConfig(srv.kvSchemas, srv.kvConfig, cfg.Engine)

	go func() {
		slog.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	srv.gracefulShutdown(5 * time.Second)
}

// runCommand handles the one-shot CLI surface: "validate FILE" checks a
// single schema file, "check OLD NEW [MODE]" compares two schema files.
// The exit code is 0 for valid/compatible, 1 otherwise.
func runCommand(cfg config, args []string) int {
	format := avro.ReportFormat(cfg.reportFormat)
	switch format {
	case avro.ReportText, avro.ReportJSON, avro.ReportMarkdown:
	default:
		fmt.Fprintf(os.Stderr, "unknown report format: %s\n", cfg.reportFormat)
		return 2
	}

	switch args[0] {
	case "validate":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: schemagate validate FILE")
			return 2
		}

		result := avro.NewValidator(cfg.Engine).ValidateFile(args[1])
		report, err := avro.FormatValidationReport(result, format)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		fmt.Println(report)

		if !result.IsValid {
			return 1
		}
		return 0

	case "check":
		if len(args) != 3 && len(args) != 4 {
			fmt.Fprintln(os.Stderr, "usage: schemagate check OLD_FILE NEW_FILE [MODE]")
			return 2
		}

		mode := cfg.Engine.CompatibilityMode
		if len(args) == 4 {
			mode = avro.Mode(strings.ToUpper(args[3]))
			switch mode {
			case avro.ModeBackward, avro.ModeForward, avro.ModeFull, avro.ModeNone:
			default:
				fmt.Fprintf(os.Stderr, "unknown compatibility mode: %s\n", args[3])
				return 2
			}
		}

		result := avro.NewChecker(cfg.Engine).CheckFiles(args[1], args[2], mode)
		report, err := avro.FormatCompatibilityReport(result, format)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		fmt.Println(report)

		if !result.IsCompatible {
			return 1
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		return 2
	}
}

func (s *server) startEmbeddedNATS() error {
	slog.Info("Starting embedded NATS server for testing")

	tmpDir, err := os.MkdirTemp("", "nats-data-*")
	if err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}

	opts := &natsd.Options{
		JetStream:  true,
		Port:       4222,
		Host:       "127.0.0.1",
		StoreDir:   tmpDir,
		MaxPayload: 8 * 1024 * 1024, // 8MB
	}

	// Create the server
	ns, err := natsd.NewServer(opts)
	if err != nil {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("create embedded NATS server: %w", err)
	}

	// Start the server in a separate goroutine
	go ns.Start()

	// Wait for server to be ready
	if !ns.ReadyForConnections(5 * time.Second) {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("embedded NATS server failed to start")
	}

	// Wait for JetStream to be ready
	timeout := time.Now().Add(5 * time.Second)
	for time.Now().Before(timeout) {
		if ns.JetStreamEnabled() {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	if !ns.JetStreamEnabled() {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("JetStream failed to start")
	}

	slog.Info("Embedded NATS server started successfully")
	s.natsServer = ns
	s.embeddedNATS = true

	return nil
}

func (s *server) setup() error {
	slog.Debug("Connecting to NATS", "url", s.cfg.NATSURL)

	nc, err := nats.Connect(s.cfg.NATSURL,
		nats.Name("Schema Registry"),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			slog.Error("NATS error", "error", err)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Error("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)

	// If connection fails and test mode is enabled, start embedded NATS server
	if err != nil && s.cfg.TestMode {
		slog.Info("Failed to connect to external NATS server, starting embedded server")

		if err := s.startEmbeddedNATS(); err != nil {
			return fmt.Errorf("start embedded NATS server: %w", err)
		}

		// Try to connect to the embedded server
		nc, err = nats.Connect(nats.DefaultURL,
			nats.Name("Schema Registry"),
			nats.Timeout(5*time.Second),
			nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
				slog.Error("NATS error", "error", err)
			}),
		)

		if err != nil {
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	slog.Info("Connected to NATS")

	// Create JetStream context
	slog.Debug("Creating JetStream context")
	s.js, err = nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		return fmt.Errorf("JetStream context: %w", err)
	}

	// Create buckets with retries
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		slog.Debug("Setting up schema bucket", "name", s.cfg.SchemaBucket, "attempt", i+1)
		if s.kvSchemas, err = s.makeBucket(s.cfg.SchemaBucket, "Schema records"); err != nil {
			if i == maxRetries-1 {
				return fmt.Errorf("create schema bucket: %w", err)
			}
			slog.Debug("Retrying bucket creation", "error", err)
			time.Sleep(time.Second)
			continue
		}
		break
	}

	for i := 0; i < maxRetries; i++ {
		slog.Debug("Setting up config bucket", "name", s.cfg.ConfigBucket, "attempt", i+1)
		if s.kvConfig, err = s.makeBucket(s.cfg.ConfigBucket, "Config records"); err != nil {
			if i == maxRetries-1 {
				return fmt.Errorf("create config bucket: %w", err)
			}
			slog.Debug("Retrying bucket creation", "error", err)
			time.Sleep(time.Second)
			continue
		}
		break
	}

	slog.Info("NATS setup completed successfully")
	return nil
}

func (s *server) makeBucket(name, desc string) (nats.KeyValue, error) {
	kv, err := s.js.KeyValue(name)
	if err == nats.ErrBucketNotFound {
		slog.Debug("Bucket not found, creating", "name", name)
		return s.js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      name,
			Description: desc,
			Storage:     nats.FileStorage,
			History:     5,
		})
	}
	return kv, err
}

func (s *server) gracefulShutdown(timeout time.Duration) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	slog.Info("Shutting down server...")
	if err := s.http.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	// Shutdown the embedded NATS server if it's running
	if s.embeddedNATS && s.natsServer != nil {
		slog.Info("Shutting down embedded NATS server")
		s.natsServer.Shutdown()
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1" || v == "yes"
	}
	return def
}
