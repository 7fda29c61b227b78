// Package main implements the meshttpd daemon, an HTTP bridge to a
// mesh radio network. It maintains a persistent connection to a mesh
// gateway device, caches received telemetry and messages in memory,
// and serves them over a JSON API with a websocket event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/lupettohf/meshttpd/config"
	"github.com/lupettohf/meshttpd/connection"
	"github.com/lupettohf/meshttpd/dispatch"
	"github.com/lupettohf/meshttpd/gateway"
	"github.com/lupettohf/meshttpd/health"
	"github.com/lupettohf/meshttpd/mesh"
	"github.com/lupettohf/meshttpd/metric"
	"github.com/lupettohf/meshttpd/pkg/backoff"
	"github.com/lupettohf/meshttpd/radio"
	"github.com/lupettohf/meshttpd/store"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "meshttpd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Daemon failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	slog.Info("Starting meshttpd",
		"version", Version,
		"build_time", BuildTime,
		"radio_address", cfg.Radio.Address,
		"listen", cfg.HTTP.Listen)

	app, err := buildApplication(cfg, logger)
	if err != nil {
		return err
	}

	return app.runWithSignalHandling(cfg.HTTP.ShutdownTimeout.Duration())
}

// initializeCLI parses and validates flags
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	return cliCfg, false, nil
}

// initializeConfiguration loads the config file and layers CLI overrides on top
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg := config.Default()
	if cliCfg.ConfigPath != "" {
		loaded, err := config.Load(cliCfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if cliCfg.Listen != "" {
		cfg.HTTP.Listen = cliCfg.Listen
	}
	if cliCfg.RadioAddr != "" {
		cfg.Radio.Address = cliCfg.RadioAddr
	}
	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// application holds the wired daemon ready to run.
type application struct {
	cfg     *config.Config
	logger  *slog.Logger
	manager *connection.Manager
	hub     *gateway.EventHub
	server  *http.Server
}

// buildApplication wires stores, ingestion, the connection loop, and the
// HTTP surface together.
func buildApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	registry := metric.NewRegistry()
	metrics := registry.Core

	telemetry, err := store.NewTelemetryStore(
		store.WithMetrics(registry, "telemetry"))
	if err != nil {
		return nil, fmt.Errorf("create telemetry store: %w", err)
	}
	messages, err := store.NewMessageStore(cfg.Cache.MessageCapacity,
		store.WithMetrics(registry, "messages"))
	if err != nil {
		return nil, fmt.Errorf("create message store: %w", err)
	}
	nodes, err := store.NewNodeRegistry(
		store.WithMetrics(registry, "nodes"))
	if err != nil {
		return nil, fmt.Errorf("create node registry: %w", err)
	}

	hub := gateway.NewEventHub(logger)

	dispatcher := dispatch.New(telemetry, messages, nodes,
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(metrics),
		dispatch.WithObserver(hub.Publish))

	dialer := &radio.TCPDialer{
		Timeout:        cfg.Radio.DialTimeout.Duration(),
		OnDroppedFrame: metrics.RecordFrameDropped,
	}

	manager := connection.NewManager(cfg.Radio.Address, dialer, dispatcher,
		connection.WithLogger(logger),
		connection.WithMetrics(metrics),
		connection.WithBackoff(backoff.Fixed(cfg.Radio.ReconnectWait.Duration())))

	service := mesh.NewService(manager, telemetry, messages, nodes,
		mesh.WithLogger(logger),
		mesh.WithMetrics(metrics))

	api := gateway.NewServer(service,
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
		gateway.WithEventHub(hub))

	checker := health.NewChecker(manager, telemetry, messages, nodes)

	mux := http.NewServeMux()
	api.RegisterHandlers(gateway.DefaultPrefix, mux)
	mux.HandleFunc("/healthz", checker.Handler())
	mux.Handle("/metrics", registry.Handler())

	server := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &application{
		cfg:     cfg,
		logger:  logger,
		manager: manager,
		hub:     hub,
		server:  server,
	}, nil
}

// runWithSignalHandling runs the connection loop and HTTP server until a
// shutdown signal arrives, then drains both.
func (a *application) runWithSignalHandling(shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	errCh := make(chan error, 2)

	go func() {
		if err := a.manager.Run(signalCtx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("connection loop: %w", err)
		}
	}()

	go func() {
		slog.Info("HTTP server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	case err := <-errCh:
		signalCancel()
		_ = a.shutdown(shutdownTimeout)
		return err
	}

	if err := a.shutdown(shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("meshttpd shutdown complete")
	return nil
}

// shutdown drains the HTTP server and disconnects event subscribers. The
// connection loop exits with the signal context.
func (a *application) shutdown(timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.hub.Close()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error stopping HTTP server", "error", err)
		return err
	}
	return nil
}
