package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	gp "github.com/reoring/goprojection"
	"github.com/reoring/goprojection/dsl"
	"github.com/reoring/goprojection/internal/config"
	"github.com/reoring/goprojection/internal/logger"
	"github.com/reoring/goprojection/internal/server"
	"github.com/reoring/goprojection/metrics"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "render":
		renderCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "projector\n\nUsage:\n  projector render -spec projection.yaml [-schema schema.json] [-format json|yaml] [-log-level debug]\n  projector serve [-config projector.yaml]\n\nNotes:\n  - render prints the rendered projection document to stdout.\n  - serve exposes POST /v1/render, GET /healthz and GET /metrics.")
}

func renderCmd(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var specPath, schemaPath, format, level string
	fs.StringVar(&specPath, "spec", "", "projection file (YAML or JSON)")
	fs.StringVar(&schemaPath, "schema", "", "JSON Schema file (.json, .yaml or .yml); overrides the schema embedded in -spec")
	fs.StringVar(&format, "format", "json", "output format: json or yaml")
	fs.StringVar(&level, "log-level", "warn", "log level")
	_ = fs.Parse(args)
	if specPath == "" {
		fs.Usage()
		os.Exit(2)
	}

	log, err := logger.New("local", level)
	if err != nil {
		fatalf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	prog, err := dsl.Load(specPath)
	if err != nil {
		fatalf("%v", err)
	}
	var reg gp.Registry
	if schemaPath != "" {
		sr, err := loadSchema(schemaPath)
		if err != nil {
			fatalf("%v", err)
		}
		reg = sr
	}

	doc, err := prog.Render(gp.NewRenderer(gp.WithLogger(log)), reg)
	if err != nil {
		fatalf("render: %v", err)
	}
	out, err := encode(doc, format)
	if err != nil {
		fatalf("encode: %v", err)
	}
	_, _ = os.Stdout.Write(out)
}

func encode(doc gp.Document, format string) ([]byte, error) {
	switch format {
	case "json":
		b, err := gojson.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "yaml":
		return yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func loadSchema(path string) (*gp.SchemaRegistry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return gp.LoadSchemaYAML(data)
	default:
		return gp.LoadSchemaJSON(data)
	}
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var cfgPath string
	fs.StringVar(&cfgPath, "config", "", "configuration file (YAML)")
	_ = fs.Parse(args)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	log, err := logger.New(cfg.Env, cfg.Logging.Level)
	if err != nil {
		fatalf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	promReg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(promReg)
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	var reg gp.Registry
	if cfg.Schema.Path != "" {
		sr, err := loadSchema(cfg.Schema.Path)
		if err != nil {
			log.Fatal("Failed to load schema", zap.Error(err))
		}
		reg = sr
	}

	renderer := gp.NewRenderer(gp.WithLogger(log), gp.WithObserver(recorder))
	srv := server.New(renderer, reg, log, cfg.HTTP.MaxBodyBytes)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(promReg),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}
	log.Info("Server stopped gracefully")
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
