// =============================================================================
// SDSVG Book - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (sdsvg-book)
//   ├── serveCmd   (sdsvg-book serve)
//   ├── importCmd  (sdsvg-book import <file>)
//   ├── listCmd    (sdsvg-book list)
//   ├── exportCmd  (sdsvg-book export)
//   ├── sampleCmd  (sdsvg-book sample)
//   └── versionCmd (sdsvg-book version)
//
// CONFIGURATION:
//   Settings come from, in increasing priority:
//   1. Built-in defaults
//   2. The YAML file named by --config (optional)
//   3. SDSVG_* environment variables, also read from a .env file
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sdsvg/sdsvg-book/internal/config"
	"github.com/sdsvg/sdsvg-book/internal/converter"
	"github.com/sdsvg/sdsvg-book/internal/logger"
	"github.com/sdsvg/sdsvg-book/internal/metrics"
	"github.com/sdsvg/sdsvg-book/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// A missing file is not an error.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sdsvg-book",
	Short: "SDSVG Book - household member book built from spreadsheet uploads",
	Long: `SDSVG Book imports a household/member spreadsheet, groups the members by
household, orders each household head-first and keeps the resulting book in
a database. Every successful import replaces the whole book.

Example Usage:
  sdsvg-book serve                       # Web page on :8080
  sdsvg-book import members.xlsx         # Replace the book from a file
  sdsvg-book import members.csv --dry-run
  sdsvg-book list                        # Print the stored book
  sdsvg-book export --out book.xml`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// RUNTIME
// =============================================================================

// appRuntime is what every command needs: settings, a logger and, when the
// database is reachable, the member repository.
type appRuntime struct {
	cfg     *config.MainConfig
	logger  *zap.Logger
	metrics *metrics.Recorder
	repo    *repository.MemberRepository
}

// loadRuntime reads configuration and connects to the database. With
// requireDB a connection failure is returned; otherwise it is logged and
// repo stays nil.
func loadRuntime(ctx context.Context, requireDB bool) (*appRuntime, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, logger.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	rt := &appRuntime{cfg: cfg, logger: log, metrics: metrics.New()}

	repo, err := repository.Open(ctx, cfg.Database, log)
	if err != nil {
		if requireDB {
			log.Sync()
			return nil, err
		}
		log.Warn("database unavailable, continuing without storage",
			zap.String("driver", cfg.Database.Driver),
			zap.Error(err),
		)
		return rt, nil
	}
	rt.repo = repo
	return rt, nil
}

// store returns the repository as a converter.Store, or a nil interface
// when there is no connection.
func (rt *appRuntime) store() converter.Store {
	if rt.repo == nil {
		return nil
	}
	return rt.repo
}

// newConverter builds a converter bound to the runtime's store.
func (rt *appRuntime) newConverter() (*converter.Converter, error) {
	return converter.New(rt.cfg, rt.store(), rt.logger, rt.metrics)
}

// Close releases the connection and flushes the logger.
func (rt *appRuntime) Close() {
	if rt.repo != nil {
		if err := rt.repo.Close(); err != nil {
			rt.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	rt.logger.Sync()
}
