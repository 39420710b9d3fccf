// =============================================================================
// SDSVG Book - Import Command
// =============================================================================
//
// This file defines the 'import' command, which runs one spreadsheet through
// the import pipeline and replaces the stored member book with the result.
//
// COMMAND USAGE:
//   sdsvg-book import <file> [flags]
//
// FLAGS:
//   --dry-run : Parse, group and report without touching the database
//   --archive : Keep a copy of the file in the upload archive on success
//
// PROCESSING PIPELINE:
//   1. Load configuration and connect to the database
//   2. Decode the .xlsx or .csv file
//   3. Resolve headers, extract members, group and sort
//   4. Replace the stored book (skipped with --dry-run)
//   5. Print a summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sdsvg/sdsvg-book/internal/apperr"
	"github.com/sdsvg/sdsvg-book/internal/converter"
	"github.com/sdsvg/sdsvg-book/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun skips the database replace.
var dryRun bool

// archiveImport copies the imported file into the upload archive.
var archiveImport bool

// =============================================================================
// IMPORT COMMAND DEFINITION
// =============================================================================

var importCmd = &cobra.Command{
	Use:     "import <file>",
	Aliases: []string{"process"},
	Short:   "Replace the member book from an .xlsx or .csv file",
	Long: `The import command reads the first sheet of an .xlsx workbook (or a .csv
file), groups the member rows by their Group column and replaces the stored
member book with the result in one transaction.

A failed import leaves the stored book untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Parse and report without writing to the database",
	)
	importCmd.Flags().BoolVar(
		&archiveImport,
		"archive",
		false,
		"Copy the file into the upload archive after a successful import",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runImport(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	rt, err := loadRuntime(ctx, !dryRun)
	if err != nil {
		return err
	}
	defer rt.Close()

	conv, err := rt.newConverter()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== SDSVG Book Import ===")
	if dryRun {
		fmt.Fprintln(out, "Dry run: the database will not be changed.")
	}

	result := conv.ImportFile(ctx, path, dryRun)
	printSummary(out, result)

	if !result.Success {
		rt.logger.Debug("import failed", zap.Error(result.Error))
		return fmt.Errorf("import failed: %s", apperr.UserMessage(result.Error))
	}

	if archiveImport && !dryRun {
		if err := archiveFile(rt.cfg.Upload.ArchiveDir, path); err != nil {
			rt.logger.Warn("unable to archive import", zap.String("file", path), zap.Error(err))
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func printSummary(out io.Writer, result converter.Result) {
	s := result.Summary
	fmt.Fprintf(out, "Source:          %s\n", filepath.Base(s.Source))
	fmt.Fprintf(out, "Data rows:       %d\n", s.DataRows)
	fmt.Fprintf(out, "Skipped (blank): %d\n", s.SkippedRows)
	fmt.Fprintf(out, "Groups:          %d\n", s.Groups)
	fmt.Fprintf(out, "Members:         %d\n", s.Members)
	fmt.Fprintf(out, "Saved:           %t\n", s.Persisted)
	fmt.Fprintf(out, "Time elapsed:    %s\n", s.Duration)

	if result.Success {
		for _, g := range result.Groups {
			fmt.Fprintf(out, "  ✓ %s (%d)\n", g.Name, g.RowCount)
		}
		return
	}
	fmt.Fprintf(out, "  ✗ %s\n", apperr.UserMessage(result.Error))
}

func archiveFile(archiveDir, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fm := utils.NewFileManager(archiveDir)
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}
	_, err = fm.ArchiveUpload(filepath.Base(path), data)
	return err
}
