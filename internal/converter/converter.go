// =============================================================================
// SDSVG Book - Converter Module
// =============================================================================
//
// This module orchestrates one import, from a decoded workbook to persisted
// member groups.
//
// CONVERSION PIPELINE:
//   1. Resolve the header row (mandatory columns checked)
//   2. Extract member records from the data rows (blank rows skipped)
//   3. Apply configured field rules
//   4. Bucket records into groups and sort each group
//   5. Replace the stored member book in one transaction
//
// Any failure stops the pipeline before persistence, so stored data is
// only ever replaced by a complete, valid import.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sdsvg/sdsvg-book/internal/apperr"
	"github.com/sdsvg/sdsvg-book/internal/config"
	"github.com/sdsvg/sdsvg-book/internal/csvparser"
	"github.com/sdsvg/sdsvg-book/internal/metrics"
	"github.com/sdsvg/sdsvg-book/internal/types"
	"github.com/sdsvg/sdsvg-book/internal/validation"
	"github.com/sdsvg/sdsvg-book/internal/xlsxparser"
	"go.uber.org/zap"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one import.
type Result struct {
	// Groups are the sorted groups built from the file. Empty on failure.
	Groups []types.Group

	// Summary carries counts and timing; always filled in.
	Summary types.ImportSummary

	// Success is false when Error is set.
	Success bool

	// Error is the classified failure (see apperr). nil on success.
	Error error
}

// Store persists a complete member book.
type Store interface {
	ReplaceAll(ctx context.Context, groups []types.Group) error
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs imports against one store.
type Converter struct {
	store       Store
	csvSettings config.CSVSettings
	transformer *Transformer
	logger      *zap.Logger
	metrics     *metrics.Recorder
}

// New creates a Converter. store may be nil for parse-only use; metrics may
// be nil.
func New(cfg *config.MainConfig, store Store, logger *zap.Logger, recorder *metrics.Recorder) (*Converter, error) {
	transformer, err := NewTransformer(cfg.FieldRules)
	if err != nil {
		return nil, fmt.Errorf("invalid field rules: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		store:       store,
		csvSettings: cfg.CSVSettings,
		transformer: transformer,
		logger:      logger,
		metrics:     recorder,
	}, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// Parse turns a decoded workbook into sorted groups without touching the
// store. It also reports the number of data rows and skipped blank rows.
func (c *Converter) Parse(wb *xlsxparser.Workbook) (groups []types.Group, dataRows, skipped int, err error) {
	if wb == nil || len(wb.Rows) == 0 {
		return nil, 0, 0, ErrNoDataRows
	}

	headers, err := validation.ResolveHeaders(wb.Header())
	if err != nil {
		return nil, 0, 0, err
	}

	rows := wb.DataRows()
	if len(rows) == 0 {
		return nil, 0, 0, ErrNoDataRows
	}

	records, skipped := NewExtractor(headers, c.transformer).Extract(rows, 2)
	groups, err = GroupRecords(records)
	if err != nil {
		return nil, len(rows), skipped, err
	}
	return groups, len(rows), skipped, nil
}

// Run imports a decoded workbook. With dryRun the store is left untouched.
func (c *Converter) Run(ctx context.Context, wb *xlsxparser.Workbook, dryRun bool) Result {
	start := time.Now()
	result := Result{
		Summary: types.ImportSummary{ID: uuid.New()},
	}
	if wb != nil {
		result.Summary.Source = wb.Source
	}
	log := c.logger.With(
		zap.String("import_id", result.Summary.ID.String()),
		zap.String("source", result.Summary.Source),
	)

	finish := func(outcome string) Result {
		result.Summary.Duration = time.Since(start)
		c.metrics.ObserveImport(outcome, result.Summary.Members, result.Summary.Duration)
		return result
	}

	// =========================================================================
	// STEP 1-4: PARSE, EXTRACT, GROUP
	// =========================================================================

	groups, dataRows, skipped, err := c.Parse(wb)
	result.Summary.DataRows = dataRows
	result.Summary.SkippedRows = skipped
	if err != nil {
		result.Error = err
		if errors.Is(err, ErrNoMemberRows) {
			log.Info("import contained no member rows", zap.Int("skipped_rows", skipped))
			return finish(metrics.OutcomeEmpty)
		}
		log.Warn("import rejected", zap.Error(err))
		return finish(metrics.OutcomeError)
	}

	result.Groups = groups
	result.Summary.Groups = len(groups)
	for _, g := range groups {
		result.Summary.Members += g.RowCount
	}
	log.Debug("parsed workbook",
		zap.Int("data_rows", dataRows),
		zap.Int("skipped_rows", skipped),
		zap.Int("groups", result.Summary.Groups),
		zap.Int("members", result.Summary.Members),
	)

	if dryRun {
		result.Success = true
		return finish(metrics.OutcomeDryRun)
	}

	// =========================================================================
	// STEP 5: REPLACE STORED BOOK
	// =========================================================================

	if c.store == nil {
		result.Groups = nil
		result.Error = apperr.Persistence("Database connection failed", errors.New("no store configured"))
		log.Error("import not saved", zap.Error(result.Error))
		return finish(metrics.OutcomeError)
	}
	if err := c.store.ReplaceAll(ctx, groups); err != nil {
		result.Groups = nil
		result.Error = err
		log.Error("import not saved", zap.Error(err))
		return finish(metrics.OutcomeError)
	}

	result.Success = true
	result.Summary.Persisted = true
	c.metrics.SetStoredMembers(result.Summary.Members)
	log.Info("import saved",
		zap.Int("groups", result.Summary.Groups),
		zap.Int("members", result.Summary.Members),
	)
	return finish(metrics.OutcomeSuccess)
}

// ImportFile decodes a .xlsx or .csv file from disk and runs it.
func (c *Converter) ImportFile(ctx context.Context, path string, dryRun bool) Result {
	wb, err := c.decodeFile(path)
	if err != nil {
		c.logger.Warn("unable to decode file", zap.String("path", path), zap.Error(err))
		c.metrics.ObserveImport(metrics.OutcomeError, 0, 0)
		return Result{
			Summary: types.ImportSummary{ID: uuid.New(), Source: path},
			Error:   err,
		}
	}
	return c.Run(ctx, wb, dryRun)
}

func (c *Converter) decodeFile(path string) (*xlsxparser.Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return xlsxparser.Open(path)
	case ".csv":
		return csvparser.Parse(path, c.csvSettings)
	default:
		return nil, apperr.Upload(fmt.Sprintf("Unsupported file type %q: expected .xlsx or .csv.", filepath.Ext(path)))
	}
}
