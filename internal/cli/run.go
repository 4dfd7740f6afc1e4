package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/price-tracker/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the price tracking loop",
	Long: `Register the configured products, then check every tracked product once
per interval until interrupted. With --serve the read-only API is started too.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Duration("interval", 0, "Time between cycles (default from config)")
	runCmd.Flags().Bool("serve", false, "Also start the API server")
	runCmd.Flags().StringP("listen", "l", "", "API listen address (default from config)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.Tracker.Interval = interval
	}
	if serve, _ := cmd.Flags().GetBool("serve"); serve {
		cfg.Server.Enabled = true
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	logger := newLogger(cfg)

	t, store, err := initTracker(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := seedProducts(ctx, cfg, t)
	if err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	logger.Info("products registered", "count", n)

	var srv *http.Server
	errCh := make(chan error, 1)
	if cfg.Server.Enabled {
		srv = &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           server.NewServer(store, logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("api server started", "listen", cfg.Server.Listen)
			fmt.Fprintf(os.Stderr, "Price Tracker API listening on %s\n", cfg.Server.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.Run(ctx)
	}()

	select {
	case err := <-errCh:
		stop()
		<-done
		return fmt.Errorf("server error: %w", err)
	case <-done:
	}

	logger.Info("shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("tracker stopped")
	return nil
}
