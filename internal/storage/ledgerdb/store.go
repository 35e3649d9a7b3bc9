// Package ledgerdb implements the domain-data area using BadgerHold: the
// holdings ledger, the append-only sync log, dated portfolio snapshots, and
// decomposed mutual fund statement data.
//
// Replace operations run inside a single badger transaction so readers never
// observe a half-replaced source.
package ledgerdb

import (
	"context"
	"fmt"
	"os"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// keySep is the composite key separator. A null byte cannot appear in user
// IDs, sources, or dates, so composite keys never collide.
const keySep = "\x00"

// Store implements the HoldingStore, SyncLogStore, SnapshotStore, and
// MutualFundStore contracts over a single BadgerHold database.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore opens the ledger area at path, creating the directory if needed.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("LedgerDB opened")
	return &Store{db: db, logger: logger}, nil
}

// --- Holdings ---

func holdingKey(userID, source, id string) string {
	return userID + keySep + source + keySep + id
}

func (s *Store) ReplaceSource(_ context.Context, userID, source string, holdings []models.Holding) error {
	err := s.db.Badger().Update(func(tx *badger.Txn) error {
		if err := s.db.TxDeleteMatching(tx, models.Holding{},
			badgerhold.Where("UserID").Eq(userID).And("Source").Eq(source)); err != nil {
			return fmt.Errorf("failed to clear %s holdings: %w", source, err)
		}
		for i := range holdings {
			h := holdings[i]
			h.UserID = userID
			h.Source = source
			if err := s.db.TxInsert(tx, holdingKey(userID, source, h.ID), &h); err != nil {
				return fmt.Errorf("failed to insert holding '%s': %w", h.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug().Str("user_id", userID).Str("source", source).
		Int("count", len(holdings)).Msg("Source holdings replaced")
	return nil
}

func (s *Store) ListByUser(_ context.Context, userID string) ([]models.Holding, error) {
	var holdings []models.Holding
	if err := s.db.Find(&holdings, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list holdings for user '%s': %w", userID, err)
	}
	sortHoldings(holdings)
	return holdings, nil
}

func (s *Store) ListBySource(_ context.Context, userID, source string) ([]models.Holding, error) {
	var holdings []models.Holding
	if err := s.db.Find(&holdings,
		badgerhold.Where("UserID").Eq(userID).And("Source").Eq(source)); err != nil {
		return nil, fmt.Errorf("failed to list %s holdings for user '%s': %w", source, userID, err)
	}
	sortHoldings(holdings)
	return holdings, nil
}

func (s *Store) DeleteSource(_ context.Context, userID, source string) (int, error) {
	var holdings []models.Holding
	if err := s.db.Find(&holdings,
		badgerhold.Where("UserID").Eq(userID).And("Source").Eq(source)); err != nil {
		return 0, fmt.Errorf("failed to find %s holdings for user '%s': %w", source, userID, err)
	}
	count := 0
	for i := range holdings {
		key := holdingKey(userID, source, holdings[i].ID)
		if err := s.db.Delete(key, models.Holding{}); err == nil {
			count++
		}
	}
	s.logger.Debug().Str("user_id", userID).Str("source", source).
		Int("count", count).Msg("Source holdings deleted")
	return count, nil
}

// sortHoldings gives listings a stable symbol order.
func sortHoldings(holdings []models.Holding) {
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].Symbol != holdings[j].Symbol {
			return holdings[i].Symbol < holdings[j].Symbol
		}
		return holdings[i].Source < holdings[j].Source
	})
}

// --- Sync log ---

func (s *Store) Append(_ context.Context, entry *models.SyncLogEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("sync log entry ID is required")
	}
	if err := s.db.Insert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to append sync log entry: %w", err)
	}
	return nil
}

func (s *Store) LatestSuccess(_ context.Context, userID, source string) (*models.SyncLogEntry, error) {
	var entries []models.SyncLogEntry
	if err := s.db.Find(&entries, badgerhold.Where("UserID").Eq(userID).
		And("Source").Eq(source).
		And("Status").Eq(models.SyncStatusSuccess)); err != nil {
		return nil, fmt.Errorf("failed to find sync log for %s/%s: %w", userID, source, err)
	}
	var latest *models.SyncLogEntry
	for i := range entries {
		if latest == nil || entries[i].CreatedAt.After(latest.CreatedAt) {
			latest = &entries[i]
		}
	}
	return latest, nil
}

func (s *Store) List(_ context.Context, userID string, limit int) ([]models.SyncLogEntry, error) {
	var entries []models.SyncLogEntry
	if err := s.db.Find(&entries, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list sync log for user '%s': %w", userID, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// --- Snapshots ---

func snapshotKey(userID, date string) string {
	return userID + keySep + date
}

func (s *Store) UpsertSnapshot(_ context.Context, snapshot *models.PortfolioSnapshot) error {
	key := snapshotKey(snapshot.UserID, snapshot.Date)
	var existing models.PortfolioSnapshot
	if err := s.db.Get(key, &existing); err == nil {
		snapshot.CreatedAt = existing.CreatedAt
	}
	if err := s.db.Upsert(key, snapshot); err != nil {
		return fmt.Errorf("failed to upsert snapshot %s/%s: %w", snapshot.UserID, snapshot.Date, err)
	}
	s.logger.Debug().Str("user_id", snapshot.UserID).Str("date", snapshot.Date).Msg("Snapshot upserted")
	return nil
}

func (s *Store) GetSnapshot(_ context.Context, userID, date string) (*models.PortfolioSnapshot, error) {
	var snap models.PortfolioSnapshot
	if err := s.db.Get(snapshotKey(userID, date), &snap); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("snapshot %s not found for user '%s'", date, userID)
		}
		return nil, fmt.Errorf("failed to get snapshot %s/%s: %w", userID, date, err)
	}
	return &snap, nil
}

func (s *Store) LatestSnapshot(_ context.Context, userID string) (*models.PortfolioSnapshot, error) {
	var snaps []models.PortfolioSnapshot
	if err := s.db.Find(&snaps, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to find snapshots for user '%s': %w", userID, err)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no snapshots found for user '%s'", userID)
	}
	latest := &snaps[0]
	for i := range snaps {
		// Date strings in 2006-01-02 form order lexically.
		if snaps[i].Date > latest.Date {
			latest = &snaps[i]
		}
	}
	return latest, nil
}

func (s *Store) ListSnapshots(_ context.Context, userID string, limit int) ([]models.PortfolioSnapshot, error) {
	var snaps []models.PortfolioSnapshot
	if err := s.db.Find(&snaps, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list snapshots for user '%s': %w", userID, err)
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Date > snaps[j].Date
	})
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

func detailKey(d *models.SnapshotSourceDetail) string {
	return d.UserID + keySep + d.Date + keySep + d.Source + keySep + string(d.AssetType)
}

func (s *Store) ReplaceDetails(_ context.Context, userID, date string, details []models.SnapshotSourceDetail) error {
	err := s.db.Badger().Update(func(tx *badger.Txn) error {
		if err := s.db.TxDeleteMatching(tx, models.SnapshotSourceDetail{},
			badgerhold.Where("UserID").Eq(userID).And("Date").Eq(date)); err != nil {
			return fmt.Errorf("failed to clear snapshot details: %w", err)
		}
		for i := range details {
			d := details[i]
			d.UserID = userID
			d.Date = date
			if err := s.db.TxInsert(tx, detailKey(&d), &d); err != nil {
				return fmt.Errorf("failed to insert snapshot detail: %w", err)
			}
		}
		return nil
	})
	return err
}

func (s *Store) ListDetails(_ context.Context, userID, date string) ([]models.SnapshotSourceDetail, error) {
	var details []models.SnapshotSourceDetail
	if err := s.db.Find(&details,
		badgerhold.Where("UserID").Eq(userID).And("Date").Eq(date)); err != nil {
		return nil, fmt.Errorf("failed to list snapshot details %s/%s: %w", userID, date, err)
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].Source != details[j].Source {
			return details[i].Source < details[j].Source
		}
		return details[i].AssetType < details[j].AssetType
	})
	return details, nil
}

// --- Mutual fund statement data ---

func (s *Store) SaveSync(_ context.Context, sync *models.MFCASSync) error {
	if sync.ID == "" {
		return fmt.Errorf("sync ID is required")
	}
	if err := s.db.Upsert(sync.ID, sync); err != nil {
		return fmt.Errorf("failed to save mf sync '%s': %w", sync.ID, err)
	}
	return nil
}

func (s *Store) GetSync(_ context.Context, syncID string) (*models.MFCASSync, error) {
	var sync models.MFCASSync
	if err := s.db.Get(syncID, &sync); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("mf sync '%s' not found", syncID)
		}
		return nil, fmt.Errorf("failed to get mf sync '%s': %w", syncID, err)
	}
	return &sync, nil
}

func (s *Store) ReplaceStatement(_ context.Context, userID string, folios []models.MFFolio, txns []models.MFTransaction, summaries []models.MFSchemeSummary) error {
	err := s.db.Badger().Update(func(tx *badger.Txn) error {
		for _, rec := range []any{models.MFFolio{}, models.MFTransaction{}, models.MFSchemeSummary{}} {
			if err := s.db.TxDeleteMatching(tx, rec, badgerhold.Where("UserID").Eq(userID)); err != nil {
				return fmt.Errorf("failed to clear statement data: %w", err)
			}
		}
		for i := range folios {
			f := folios[i]
			f.UserID = userID
			if err := s.db.TxInsert(tx, userID+keySep+f.ID, &f); err != nil {
				return fmt.Errorf("failed to insert folio '%s': %w", f.ID, err)
			}
		}
		for i := range txns {
			t := txns[i]
			t.UserID = userID
			if err := s.db.TxInsert(tx, userID+keySep+t.ID, &t); err != nil {
				return fmt.Errorf("failed to insert transaction '%s': %w", t.ID, err)
			}
		}
		for i := range summaries {
			sum := summaries[i]
			sum.UserID = userID
			if err := s.db.TxInsert(tx, userID+keySep+sum.ID, &sum); err != nil {
				return fmt.Errorf("failed to insert scheme summary '%s': %w", sum.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug().Str("user_id", userID).
		Int("folios", len(folios)).Int("transactions", len(txns)).
		Int("summaries", len(summaries)).Msg("Statement data replaced")
	return nil
}

func (s *Store) ListFolios(_ context.Context, userID string) ([]models.MFFolio, error) {
	var folios []models.MFFolio
	if err := s.db.Find(&folios, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list folios for user '%s': %w", userID, err)
	}
	sort.Slice(folios, func(i, j int) bool { return folios[i].Number < folios[j].Number })
	return folios, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]models.MFTransaction, error) {
	var txns []models.MFTransaction
	if err := s.db.Find(&txns, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list transactions for user '%s': %w", userID, err)
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
	return txns, nil
}

func (s *Store) ListSchemeSummaries(_ context.Context, userID string) ([]models.MFSchemeSummary, error) {
	var summaries []models.MFSchemeSummary
	if err := s.db.Find(&summaries, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list scheme summaries for user '%s': %w", userID, err)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].SchemeName < summaries[j].SchemeName })
	return summaries, nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
