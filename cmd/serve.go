// =============================================================================
// SDSVG Book - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which runs the upload page.
//
// COMMAND USAGE:
//   sdsvg-book serve [--addr :8080]
//
// The server starts even when the database is unreachable; the page then
// shows a warning and uploads fail with "Database connection failed".
// SIGINT and SIGTERM trigger a graceful shutdown.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sdsvg/sdsvg-book/internal/httpapi"
	"github.com/sdsvg/sdsvg-book/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// serveAddr overrides http.addr from the configuration.
var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload page and the member book",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides http.addr)")
}

func runServe(ctx context.Context) error {
	rt, err := loadRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}

	conv, err := rt.newConverter()
	if err != nil {
		return err
	}

	var files *utils.FileManager
	if cfg.Upload.KeepUploads {
		files = utils.NewFileManager(cfg.Upload.ArchiveDir)
		if err := files.EnsureDirectories(); err != nil {
			return err
		}
		if cfg.Upload.Retention > 0 {
			removed, err := utils.CleanOldArchives(cfg.Upload.ArchiveDir, cfg.Upload.Retention)
			if err != nil {
				rt.logger.Warn("archive clean-up failed", zap.Error(err))
			} else if removed > 0 {
				rt.logger.Info("removed old archived uploads", zap.Int("count", removed))
			}
		}
	}

	opts := httpapi.Options{
		Converter:      conv,
		Files:          files,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes(),
		Logger:         rt.logger,
		Metrics:        rt.metrics,
	}
	if rt.repo != nil {
		opts.Book = rt.repo
		if n, err := rt.repo.Count(ctx); err != nil {
			rt.logger.Warn("unable to count stored members", zap.Error(err))
		} else {
			rt.metrics.SetStoredMembers(n)
		}
	}
	handler, err := httpapi.New(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		rt.logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
