// Package daemonrun wires together the courier daemon process: logging,
// queue store, tracker client, workflow stages, scanner, and IPC server.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"courier/internal/config"
	"courier/internal/daemon"
	"courier/internal/delivery"
	"courier/internal/finalize"
	"courier/internal/ipc"
	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/preflight"
	"courier/internal/queue"
	"courier/internal/scanner"
	"courier/internal/services/shotgrid"
	"courier/internal/validation"
	"courier/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel   string
	SocketPath string
}

// Run starts the courier daemon runtime loop and blocks until a
// termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("courier-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update courier.log link: %v\n", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "courier.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	tracker, err := shotgrid.New(cfg)
	if err != nil {
		logger.Error("configure tracker client", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	if err := registerStages(manager, cfg, store, logger, tracker, notifier); err != nil {
		logger.Error("configure workflow stages", logging.Error(err))
		return err
	}

	sc := scanner.NewScanner(cfg, store, logger, tracker, notifier)
	pf := preflight.NewRunner(cfg, logger, tracker)

	d, err := daemon.New(cfg, store, logger, manager, sc, pf, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = SocketPath(cfg)
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check tracker configuration and delivery root access"),
		)
	}

	<-signalCtx.Done()
	logger.Info("courier daemon shutting down")
	return nil
}

// SocketPath returns the IPC socket path for the configuration.
func SocketPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "courier.sock")
}

func registerStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger, tracker shotgrid.API, notifier notifications.Service) error {
	deliverer, err := delivery.NewDeliverer(cfg, store, logger, notifier)
	if err != nil {
		return err
	}
	mgr.ConfigureStages(workflow.StageSet{
		Validator: validation.NewValidator(cfg, store, logger, tracker, notifier),
		Deliverer: deliverer,
		Finalizer: finalize.NewFinalizer(cfg, store, logger, tracker, notifier),
	})
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "courier.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
