package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/raildispatch/internal/config"
	"github.com/tonimelisma/raildispatch/internal/obslog"
)

// newServeCmd constructs the broker and blocks until interrupted. The
// transport (HTTP/UI routing, event streaming) that would front the broker
// for dispatchers is out of scope; the only socket this command opens is
// the metrics endpoint, the thin embedding point the ambient stack carries
// regardless of the broker's own non-goals.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Build the broker and block, serving metrics until interrupted",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, reg, shutdown, err := buildBroker(ctx, cc)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())

	srv := &http.Server{Addr: cc.Cfg.Server.MetricsAddr, Handler: mux}

	serveErrCh := make(chan error, 1)

	go func() {
		cc.Logger.Info("serve: metrics listening", "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
			return
		}

		serveErrCh <- nil
	}()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)

serveLoop:
	for {
		select {
		case <-sighup:
			reloadConfig(cc)
		case <-ctx.Done():
			cc.Logger.Info("serve: shutdown signal received")
			break serveLoop
		case err := <-serveErrCh:
			if err != nil {
				return fmt.Errorf("serve: metrics server: %w", err)
			}

			break serveLoop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cc.Cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		cc.Logger.Warn("serve: metrics server shutdown error", "error", err)
	}

	return shutdown()
}

// reloadConfig re-reads the config file on SIGHUP and updates cc's Holder
// and live log level. Only the log level takes effect without a restart —
// the layout, event-log paths, and metrics address were already consumed
// by buildBroker and http.Server above, so this cannot change them for the
// running session; a config edit to those fields still needs a restart.
func reloadConfig(cc *CLIContext) {
	path := cc.Holder.Path()
	if path == "" {
		cc.Logger.Warn("serve: SIGHUP received but no config file was loaded; ignoring")
		return
	}

	cc.Logger.Info("serve: SIGHUP received, reloading config", "path", path)

	cfg, err := config.Load(path, cc.Logger)
	if err != nil {
		cc.Logger.Warn("serve: config reload failed, keeping previous config", "error", err)
		return
	}

	cc.Holder.Update(cfg)
	cc.LevelVar.Set(obslog.ParseLevel(cfg.Logging.Level))

	cc.Logger.Info("serve: config reloaded", "log_level", cfg.Logging.Level)
}
