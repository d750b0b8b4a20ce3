// Command paneld is the control-panel daemon. It manages attached
// button-grid devices, their profile trees, and action bindings, and
// serves a JSON control protocol on a unix socket.
//
// Usage:
//
//	paneld [flags]
//
// Flags:
//
//	-config string     Configuration file path (YAML)
//	-socket string     Control socket path
//	-profiles string   Profile storage directory
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-capture string    Protocol capture file (CBOR stream)
//	-sim               Attach a default simulated 3x2 panel
//
// Examples:
//
//	# Run against a config file
//	paneld -config /etc/paneld/paneld.yaml
//
//	# Development: simulated panel, local socket, verbose logs
//	paneld -sim -socket /tmp/paneld.sock -profiles /tmp/paneld -log-level debug
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/panelkit/paneld/pkg/action"
	"github.com/panelkit/paneld/pkg/action/builtin"
	"github.com/panelkit/paneld/pkg/device"
	"github.com/panelkit/paneld/pkg/log"
	"github.com/panelkit/paneld/pkg/service"
	"github.com/panelkit/paneld/pkg/version"
)

var (
	flagConfig   = flag.String("config", "", "Configuration file path (YAML)")
	flagSocket   = flag.String("socket", "", "Control socket path")
	flagProfiles = flag.String("profiles", "", "Profile storage directory")
	flagLogLevel = flag.String("log-level", "", "Log level: debug, info, warn, error")
	flagCapture  = flag.String("capture", "", "Protocol capture file (CBOR stream)")
	flagSim      = flag.Bool("sim", false, "Attach a default simulated 3x2 panel")
	flagVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *flagVersion {
		fmt.Println("paneld", version.String())
		return
	}
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "paneld:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := defaultConfig()
	if *flagConfig != "" {
		if err := loadConfigFile(*flagConfig, &cfg); err != nil {
			return err
		}
	}
	if *flagSocket != "" {
		cfg.SocketPath = *flagSocket
	}
	if *flagProfiles != "" {
		cfg.ProfileDir = *flagProfiles
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}
	if *flagCapture != "" {
		cfg.CaptureFile = *flagCapture
	}
	if *flagSim {
		cfg.Simulate = append(cfg.Simulate, SimPanel{
			ID: "sim-1", Rows: 3, Columns: 2, ImageWidth: 72, ImageHeight: 72,
		})
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	logger, level, err := setupLogging(cfg.LogLevel)
	if err != nil {
		return err
	}

	capture, closeCapture, err := setupCapture(cfg.CaptureFile, logger, level)
	if err != nil {
		return err
	}
	defer closeCapture()

	if err := os.MkdirAll(cfg.ProfileDir, 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}

	registry := action.NewRegistry()
	if err := builtin.RegisterAll(registry); err != nil {
		return err
	}

	watcher := device.NewSimWatcher()

	daemon, err := service.New(service.Config{
		SocketPath:    cfg.SocketPath,
		ProfileDir:    cfg.ProfileDir,
		Registry:      registry,
		Watcher:       watcher,
		RenderWorkers: cfg.RenderWorkers,
		DrainTimeout:  cfg.DrainTimeout,
		Logger:        logger,
		Capture:       capture,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := daemon.Start(ctx); err != nil {
		return err
	}

	for _, panel := range cfg.Simulate {
		logger.Info("attaching simulated panel", "device", panel.ID,
			"rows", panel.Rows, "columns", panel.Columns)
		watcher.Plug(panel.ID, device.NewSimTransport(panel.Descriptor()))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	return daemon.Stop()
}

func setupLogging(levelName string) (*slog.Logger, slog.Level, error) {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, 0, fmt.Errorf("unknown log level %q", levelName)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, level, nil
}

// setupCapture builds the protocol capture chain: a CBOR file when
// configured, mirrored to the operational log at debug level.
func setupCapture(path string, logger *slog.Logger, level slog.Level) (log.Logger, func(), error) {
	loggers := []log.Logger{}
	closeFn := func() {}

	if path != "" {
		fl, err := log.NewFileLogger(path)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fl)
		closeFn = func() { _ = fl.Close() }
	}
	if level <= slog.LevelDebug {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	if len(loggers) == 0 {
		return log.NoopLogger{}, closeFn, nil
	}
	return log.NewMultiLogger(loggers...), closeFn, nil
}
