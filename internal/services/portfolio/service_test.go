package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/cache"
	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
	"github.com/Sheringkapoting/portfo-blend/internal/storage"
)

func newServiceForTest(t *testing.T) (*Service, *storage.Manager) {
	t.Helper()
	logger := common.NewLogger("disabled")
	cfg := common.NewDefaultConfig()
	dir := t.TempDir()
	cfg.Storage.Internal.Path = dir + "/internal"
	cfg.Storage.Ledger.Path = dir + "/ledger"

	manager, err := storage.NewManager(logger, cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	cacheStore, err := cache.NewStore(logger, dir+"/cache")
	if err != nil {
		t.Fatalf("cache.NewStore: %v", err)
	}
	return NewService(manager, nil, cacheStore, logger), manager
}

func seedHoldings(t *testing.T, manager *storage.Manager) {
	t.Helper()
	holdings := []models.Holding{
		{ID: "1", Symbol: "INFY", Type: models.AssetTypeStock, Quantity: 10, AvgPrice: 100, LTP: 150},
		{ID: "2", Symbol: "GOLDBEES", Type: models.AssetTypeETF, Quantity: 100, AvgPrice: 5, LTP: 6},
	}
	if err := manager.Holdings().ReplaceSource(context.Background(), "alice", "kite", holdings); err != nil {
		t.Fatalf("ReplaceSource: %v", err)
	}
	mf := []models.Holding{
		{ID: "3", Symbol: "INF123", Type: models.AssetTypeMutualFund, Quantity: 50, AvgPrice: 20, LTP: 18},
	}
	if err := manager.Holdings().ReplaceSource(context.Background(), "alice", "mfcentral", mf); err != nil {
		t.Fatalf("ReplaceSource mf: %v", err)
	}
}

func TestServiceHoldings(t *testing.T) {
	svc, manager := newServiceForTest(t)
	seedHoldings(t, manager)

	holdings, err := svc.Holdings(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	if len(holdings) != 3 {
		t.Fatalf("expected 3 holdings, got %d", len(holdings))
	}
	for _, h := range holdings {
		if !approxEqual(h.CurrentValue-h.InvestedValue, h.Pnl, 1e-9) {
			t.Errorf("%s: pnl identity violated", h.Symbol)
		}
	}
}

func TestServiceSummaryCached(t *testing.T) {
	svc, manager := newServiceForTest(t)
	seedHoldings(t, manager)
	ctx := context.Background()

	first, err := svc.Summary(ctx, "alice")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if first.CurrentValue != 3000 {
		t.Errorf("CurrentValue = %v", first.CurrentValue)
	}

	// Ledger changes are invisible until the cache entry is cleared.
	if err := manager.Holdings().ReplaceSource(ctx, "alice", "kite", nil); err != nil {
		t.Fatalf("ReplaceSource: %v", err)
	}
	second, err := svc.Summary(ctx, "alice")
	if err != nil {
		t.Fatalf("Summary cached: %v", err)
	}
	if second.CurrentValue != first.CurrentValue {
		t.Errorf("expected cached value %v, got %v", first.CurrentValue, second.CurrentValue)
	}

	svc.cache.Clear("alice")
	third, err := svc.Summary(ctx, "alice")
	if err != nil {
		t.Fatalf("Summary after clear: %v", err)
	}
	if third.CurrentValue != 900 {
		t.Errorf("expected recomputed value 900, got %v", third.CurrentValue)
	}
}

func TestServiceAllocationsUnsupportedDimension(t *testing.T) {
	svc, _ := newServiceForTest(t)
	if _, err := svc.Allocations(context.Background(), "alice", "exchange"); err == nil {
		t.Error("expected error for unsupported dimension")
	}
}

func TestCaptureSnapshotIdempotentPerDate(t *testing.T) {
	svc, manager := newServiceForTest(t)
	seedHoldings(t, manager)
	ctx := context.Background()
	at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	snap, err := svc.CaptureSnapshot(ctx, "alice", at, nil)
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	if snap.Date != "2026-08-28" || snap.HoldingsCount != 3 {
		t.Errorf("snapshot: %+v", snap)
	}

	// Recapture later the same day: still one row, updated values.
	if err := manager.Holdings().ReplaceSource(ctx, "alice", "mfcentral", nil); err != nil {
		t.Fatalf("ReplaceSource: %v", err)
	}
	second, err := svc.CaptureSnapshot(ctx, "alice", at.Add(4*time.Hour), nil)
	if err != nil {
		t.Fatalf("CaptureSnapshot second: %v", err)
	}
	if second.HoldingsCount != 2 {
		t.Errorf("expected 2 holdings after MF removal, got %d", second.HoldingsCount)
	}

	list, err := svc.ListSnapshots(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("same-date captures must upsert, got %d rows", len(list))
	}

	latest, details, err := svc.LatestSnapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest.HoldingsCount != 2 {
		t.Errorf("latest snapshot stale: %+v", latest)
	}
	// kite stock + kite etf remain after the MF source was emptied.
	if len(details) != 2 {
		t.Errorf("expected 2 detail rows, got %+v", details)
	}
	for _, d := range details {
		if d.Source != "kite" {
			t.Errorf("unexpected detail source: %+v", d)
		}
	}
}

func TestCaptureSnapshotWithFilter(t *testing.T) {
	svc, manager := newServiceForTest(t)
	seedHoldings(t, manager)
	ctx := context.Background()
	at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	// Source filter: only the broker holdings (stock 1000→1500, etf 500→600).
	snap, err := svc.CaptureSnapshot(ctx, "alice", at, &models.SnapshotFilter{Sources: []string{"kite"}})
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	if snap.HoldingsCount != 2 {
		t.Errorf("holdings count = %d, want 2", snap.HoldingsCount)
	}
	if snap.TotalInvestment != 1500 || snap.CurrentValue != 2100 {
		t.Errorf("summary: %+v", snap)
	}
	_, details, err := svc.LatestSnapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	for _, d := range details {
		if d.Source != "kite" {
			t.Errorf("filtered capture leaked source %q", d.Source)
		}
	}

	// Asset-type filter: only the stock position.
	snap, err = svc.CaptureSnapshot(ctx, "alice", at.AddDate(0, 0, 1),
		&models.SnapshotFilter{AssetTypes: []models.AssetType{models.AssetTypeStock}})
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	if snap.HoldingsCount != 1 || snap.TotalInvestment != 1000 {
		t.Errorf("asset-type filtered snapshot: %+v", snap)
	}

	// Both axes: source matches but asset type does not.
	snap, err = svc.CaptureSnapshot(ctx, "alice", at.AddDate(0, 0, 2), &models.SnapshotFilter{
		Sources:    []string{"kite"},
		AssetTypes: []models.AssetType{models.AssetTypeMutualFund},
	})
	if err != nil {
		t.Fatalf("CaptureSnapshot: %v", err)
	}
	if snap.HoldingsCount != 0 {
		t.Errorf("expected empty capture, got %+v", snap)
	}
}

func TestFilterHoldings(t *testing.T) {
	holdings := Enrich([]models.Holding{
		{ID: "1", Source: "kite", Type: models.AssetTypeStock, Quantity: 1, AvgPrice: 100, LTP: 110},
		{ID: "2", Source: "upload", Type: models.AssetTypeStock, Quantity: 1, AvgPrice: 50, LTP: 60},
		{ID: "3", Source: "mfcentral", Type: models.AssetTypeMutualFund, Quantity: 1, AvgPrice: 20, LTP: 18},
	}, nil)

	if got := filterHoldings(holdings, nil); len(got) != 3 {
		t.Errorf("nil filter must keep everything, got %d", len(got))
	}
	if got := filterHoldings(holdings, &models.SnapshotFilter{}); len(got) != 3 {
		t.Errorf("empty filter must keep everything, got %d", len(got))
	}
	got := filterHoldings(holdings, &models.SnapshotFilter{Sources: []string{"kite", "upload"}})
	if len(got) != 2 {
		t.Fatalf("source filter kept %d", len(got))
	}
	got = filterHoldings(holdings, &models.SnapshotFilter{AssetTypes: []models.AssetType{models.AssetTypeMutualFund}})
	if len(got) != 1 || got[0].Source != "mfcentral" {
		t.Errorf("asset-type filter: %+v", got)
	}
}

func TestSnapshotDetailsGrouping(t *testing.T) {
	holdings := Enrich([]models.Holding{
		{ID: "1", Source: "kite", Type: models.AssetTypeStock, Quantity: 1, AvgPrice: 100, LTP: 110},
		{ID: "2", Source: "kite", Type: models.AssetTypeStock, Quantity: 1, AvgPrice: 50, LTP: 60},
		{ID: "3", Source: "upload", Type: models.AssetTypeStock, Quantity: 1, AvgPrice: 200, LTP: 210},
	}, nil)

	details := snapshotDetails("alice", "2026-08-28", holdings)
	if len(details) != 2 {
		t.Fatalf("expected 2 groups, got %+v", details)
	}
	if details[0].Source != "kite" || details[0].HoldingsCount != 2 || details[0].InvestedValue != 150 {
		t.Errorf("kite group: %+v", details[0])
	}
	if details[1].Source != "upload" || details[1].CurrentValue != 210 {
		t.Errorf("upload group: %+v", details[1])
	}
}
