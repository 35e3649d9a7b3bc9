// Package upload ingests spreadsheet holding files through a staged
// pipeline: validate, read, parse, normalize, store, reconcile. Progress is
// reported at fixed percentages per stage so clients can render a meaningful
// bar, and malformed rows are skipped with warnings rather than failing the
// whole import.
package upload

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Sheringkapoting/portfo-blend/internal/cache"
	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// MaxFileSize is the upload size ceiling.
const MaxFileSize = 10 << 20 // 10 MiB

// reconcileTolerance is the relative difference allowed between the sheet's
// own invested total and the parsed total before a warning is raised.
const reconcileTolerance = 0.01

// Service implements interfaces.UploadService.
type Service struct {
	storage interfaces.StorageManager
	cache   *cache.Store
	logger  *common.Logger
	now     func() time.Time
}

// NewService creates an upload service.
func NewService(storage interfaces.StorageManager, cacheStore *cache.Store, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		cache:   cacheStore,
		logger:  logger,
		now:     time.Now,
	}
}

// Process runs the import pipeline. progress may be nil. The returned result
// is non-nil even on error so callers can surface the terminal state.
func (s *Service) Process(ctx context.Context, userID, filename string, size int64, r io.Reader, progress func(models.UploadProgress)) (*models.UploadResult, error) {
	report := func(step models.UploadStep, percent int, message string, warnings []string) {
		if progress != nil {
			progress(models.UploadProgress{Step: step, Percent: percent, Message: message, Warnings: warnings})
		}
	}

	report(models.UploadStepValidating, 5, "Validating file", nil)
	ext := strings.ToLower(filepath.Ext(filename))
	if err := validate(ext, size); err != nil {
		report(models.UploadStepError, 100, err.Error(), nil)
		return errorResult(err), err
	}

	report(models.UploadStepUploading, 25, "Reading file", nil)
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		err = fmt.Errorf("failed to read file: %w", err)
		report(models.UploadStepError, 100, err.Error(), nil)
		return errorResult(err), err
	}
	if int64(len(data)) > MaxFileSize {
		err = fmt.Errorf("file exceeds %d MiB limit", MaxFileSize>>20)
		report(models.UploadStepError, 100, err.Error(), nil)
		return errorResult(err), err
	}

	report(models.UploadStepParsing, 50, "Parsing rows", nil)
	parsed, err := parseFile(ext, data)
	if err != nil {
		report(models.UploadStepError, 100, err.Error(), nil)
		return errorResult(err), err
	}

	report(models.UploadStepProcessing, 65, "Processing holdings", parsed.Warnings)
	holdings := s.toHoldings(userID, parsed.Rows)
	if len(holdings) == 0 {
		err = fmt.Errorf("no valid holdings found in file")
		report(models.UploadStepError, 100, err.Error(), parsed.Warnings)
		return errorResult(err), err
	}

	report(models.UploadStepSyncing, 80, "Storing holdings", parsed.Warnings)
	if err := s.storage.Holdings().ReplaceSource(ctx, userID, models.SourceUpload, holdings); err != nil {
		err = fmt.Errorf("failed to store holdings: %w", err)
		s.appendLog(ctx, userID, models.SyncStatusFailure, 0, err.Error())
		report(models.UploadStepError, 100, err.Error(), parsed.Warnings)
		return errorResult(err), err
	}

	report(models.UploadStepReconciling, 95, "Reconciling totals", parsed.Warnings)
	warnings := parsed.Warnings
	var reconciliation *models.UploadReconciliation
	if parsed.SheetInvested > 0 {
		parsedInvested := 0.0
		for _, h := range holdings {
			parsedInvested += h.Quantity * h.AvgPrice
		}
		matched := withinTolerance(parsed.SheetInvested, parsedInvested)
		reconciliation = &models.UploadReconciliation{
			SheetInvested:  parsed.SheetInvested,
			ParsedInvested: parsedInvested,
			Matched:        matched,
		}
		if !matched {
			warnings = append(warnings, fmt.Sprintf(
				"sheet invested total %.2f does not match parsed total %.2f", parsed.SheetInvested, parsedInvested))
		}
	}

	s.appendLog(ctx, userID, models.SyncStatusSuccess, len(holdings), "")
	if s.cache != nil {
		s.cache.Clear(userID)
	}

	skipped := parsed.TotalRows - len(parsed.Rows)
	status := models.UploadStepComplete
	if skipped > 0 || len(warnings) > 0 {
		status = models.UploadStepPartial
	}
	result := &models.UploadResult{
		Success:        true,
		Status:         status,
		TotalRows:      parsed.TotalRows,
		ValidHoldings:  len(holdings),
		SkippedCount:   skipped,
		Warnings:       warnings,
		Reconciliation: reconciliation,
	}
	report(status, 100, "Import finished", warnings)

	s.logger.Info().Str("user_id", userID).Str("status", string(status)).
		Int("total_rows", result.TotalRows).Int("valid", result.ValidHoldings).
		Int("skipped", result.SkippedCount).Msg("Upload processed")
	return result, nil
}

func validate(ext string, size int64) error {
	if size == 0 {
		return fmt.Errorf("file is empty")
	}
	if size > MaxFileSize {
		return fmt.Errorf("file exceeds %d MiB limit", MaxFileSize>>20)
	}
	switch ext {
	case ".csv", ".xlsx", ".xls":
		return nil
	}
	return fmt.Errorf("unsupported file type '%s'", ext)
}

func errorResult(err error) *models.UploadResult {
	return &models.UploadResult{
		Success:      false,
		Status:       models.UploadStepError,
		ErrorMessage: err.Error(),
	}
}

func withinTolerance(expected, actual float64) bool {
	if expected == 0 {
		return actual == 0
	}
	return math.Abs(expected-actual)/math.Abs(expected) <= reconcileTolerance
}

// toHoldings maps parsed rows onto canonical holdings.
func (s *Service) toHoldings(userID string, rows []parsedRow) []models.Holding {
	now := s.now()
	holdings := make([]models.Holding, 0, len(rows))
	for _, row := range rows {
		assetType := models.AssetType(strings.ToLower(row.Type))
		if !models.ValidAssetType(assetType) {
			assetType = models.AssetTypeStock
		}
		name := row.Name
		if name == "" {
			name = row.Symbol
		}
		ltp := row.LTP
		if ltp == 0 {
			ltp = row.AvgPrice
		}
		holdings = append(holdings, models.Holding{
			ID:        uuid.NewString(),
			UserID:    userID,
			Symbol:    row.Symbol,
			Name:      name,
			ISIN:      row.ISIN,
			Type:      assetType,
			Sector:    models.NormalizeSector(row.Sector),
			Quantity:  row.Quantity,
			AvgPrice:  row.AvgPrice,
			LTP:       ltp,
			Exchange:  row.Exchange,
			Source:    models.SourceUpload,
			AMC:       row.AMC,
			Category:  row.Category,
			UpdatedAt: now,
		})
	}
	return holdings
}

func (s *Service) appendLog(ctx context.Context, userID string, status models.SyncStatus, count int, errMsg string) {
	entry := &models.SyncLogEntry{
		ID:            uuid.NewString(),
		UserID:        userID,
		Source:        models.SourceUpload,
		Status:        status,
		HoldingsCount: count,
		ErrorMessage:  errMsg,
		CreatedAt:     s.now(),
	}
	if err := s.storage.SyncLog().Append(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to append sync log entry")
	}
}

// Compile-time check
var _ interfaces.UploadService = (*Service)(nil)
