package server

import (
	"context"
	"io"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/app"
	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
	"github.com/Sheringkapoting/portfo-blend/internal/reconcile"
)

// mockBrokerService implements interfaces.BrokerService for testing.
type mockBrokerService struct {
	loginURL       func(userID string) (string, error)
	sessionStatus  func(ctx context.Context, userID string) (*models.SessionStatus, error)
	handleCallback func(ctx context.Context, state, requestToken string) (*models.BrokerSession, error)
	sync           func(ctx context.Context, userID string) (int, error)
	syncWithRetry  func(ctx context.Context, userID string) (int, error)
	disconnect     func(ctx context.Context, userID string) error
}

func (m *mockBrokerService) LoginURL(userID string) (string, error) {
	if m.loginURL != nil {
		return m.loginURL(userID)
	}
	return "https://broker.example/login?state=abc", nil
}

func (m *mockBrokerService) SessionStatus(ctx context.Context, userID string) (*models.SessionStatus, error) {
	if m.sessionStatus != nil {
		return m.sessionStatus(ctx, userID)
	}
	return &models.SessionStatus{Connected: false}, nil
}

func (m *mockBrokerService) HandleCallback(ctx context.Context, state, requestToken string) (*models.BrokerSession, error) {
	if m.handleCallback != nil {
		return m.handleCallback(ctx, state, requestToken)
	}
	return &models.BrokerSession{ID: "sess-1", UserID: "default"}, nil
}

func (m *mockBrokerService) Sync(ctx context.Context, userID string) (int, error) {
	if m.sync != nil {
		return m.sync(ctx, userID)
	}
	return 0, nil
}

func (m *mockBrokerService) SyncWithRetry(ctx context.Context, userID string) (int, error) {
	if m.syncWithRetry != nil {
		return m.syncWithRetry(ctx, userID)
	}
	return 0, nil
}

func (m *mockBrokerService) Disconnect(ctx context.Context, userID string) error {
	if m.disconnect != nil {
		return m.disconnect(ctx, userID)
	}
	return nil
}

// mockMFCASService implements interfaces.MFCASService for testing.
type mockMFCASService struct {
	startSync  func(ctx context.Context, userID, pan string, method models.OTPMethod, phone, email string) (*models.MFCASSync, error)
	submitOTP  func(ctx context.Context, userID, syncID, otp string) (*models.MFCASSync, error)
	fetchCAS   func(ctx context.Context, userID, syncID string) (*models.MFCASSync, error)
	syncStatus func(ctx context.Context, userID, syncID string) (*models.MFCASSync, error)
}

func (m *mockMFCASService) StartSync(ctx context.Context, userID, pan string, method models.OTPMethod, phone, email string) (*models.MFCASSync, error) {
	if m.startSync != nil {
		return m.startSync(ctx, userID, pan, method, phone, email)
	}
	return &models.MFCASSync{ID: "sync-1", Phase: models.MFPhaseOTPSent}, nil
}

func (m *mockMFCASService) SubmitOTP(ctx context.Context, userID, syncID, otp string) (*models.MFCASSync, error) {
	if m.submitOTP != nil {
		return m.submitOTP(ctx, userID, syncID, otp)
	}
	return &models.MFCASSync{ID: syncID, Phase: models.MFPhaseVerified}, nil
}

func (m *mockMFCASService) FetchCAS(ctx context.Context, userID, syncID string) (*models.MFCASSync, error) {
	if m.fetchCAS != nil {
		return m.fetchCAS(ctx, userID, syncID)
	}
	return &models.MFCASSync{ID: syncID, Phase: models.MFPhaseCompleted}, nil
}

func (m *mockMFCASService) SyncStatus(ctx context.Context, userID, syncID string) (*models.MFCASSync, error) {
	if m.syncStatus != nil {
		return m.syncStatus(ctx, userID, syncID)
	}
	return &models.MFCASSync{ID: syncID, Phase: models.MFPhaseOTPSent}, nil
}

// mockUploadService implements interfaces.UploadService for testing.
type mockUploadService struct {
	process func(ctx context.Context, userID, filename string, size int64, r io.Reader, progress func(models.UploadProgress)) (*models.UploadResult, error)
}

func (m *mockUploadService) Process(ctx context.Context, userID, filename string, size int64, r io.Reader, progress func(models.UploadProgress)) (*models.UploadResult, error) {
	if m.process != nil {
		return m.process(ctx, userID, filename, size, r, progress)
	}
	return &models.UploadResult{Success: true, Status: models.UploadStepComplete}, nil
}

// mockPortfolioService implements interfaces.PortfolioService for testing.
type mockPortfolioService struct {
	summary         func(ctx context.Context, userID string) (*models.PortfolioSummary, error)
	holdings        func(ctx context.Context, userID string) ([]models.EnrichedHolding, error)
	allocations     func(ctx context.Context, userID, dimension string) ([]models.AllocationBucket, error)
	captureSnapshot func(ctx context.Context, userID string, at time.Time, filter *models.SnapshotFilter) (*models.PortfolioSnapshot, error)
	latestSnapshot  func(ctx context.Context, userID string) (*models.PortfolioSnapshot, []models.SnapshotSourceDetail, error)
	listSnapshots   func(ctx context.Context, userID string, limit int) ([]models.PortfolioSnapshot, error)
}

func (m *mockPortfolioService) Summary(ctx context.Context, userID string) (*models.PortfolioSummary, error) {
	if m.summary != nil {
		return m.summary(ctx, userID)
	}
	return &models.PortfolioSummary{}, nil
}

func (m *mockPortfolioService) Holdings(ctx context.Context, userID string) ([]models.EnrichedHolding, error) {
	if m.holdings != nil {
		return m.holdings(ctx, userID)
	}
	return nil, nil
}

func (m *mockPortfolioService) Allocations(ctx context.Context, userID, dimension string) ([]models.AllocationBucket, error) {
	if m.allocations != nil {
		return m.allocations(ctx, userID, dimension)
	}
	return nil, nil
}

func (m *mockPortfolioService) CaptureSnapshot(ctx context.Context, userID string, at time.Time, filter *models.SnapshotFilter) (*models.PortfolioSnapshot, error) {
	if m.captureSnapshot != nil {
		return m.captureSnapshot(ctx, userID, at, filter)
	}
	return &models.PortfolioSnapshot{}, nil
}

func (m *mockPortfolioService) LatestSnapshot(ctx context.Context, userID string) (*models.PortfolioSnapshot, []models.SnapshotSourceDetail, error) {
	if m.latestSnapshot != nil {
		return m.latestSnapshot(ctx, userID)
	}
	return &models.PortfolioSnapshot{}, nil, nil
}

func (m *mockPortfolioService) ListSnapshots(ctx context.Context, userID string, limit int) ([]models.PortfolioSnapshot, error) {
	if m.listSnapshots != nil {
		return m.listSnapshots(ctx, userID, limit)
	}
	return nil, nil
}

// mockHealthService implements interfaces.HealthService for testing.
type mockHealthService struct {
	report func(ctx context.Context, userID string) ([]models.SourceHealth, error)
}

func (m *mockHealthService) Report(ctx context.Context, userID string) ([]models.SourceHealth, error) {
	if m.report != nil {
		return m.report(ctx, userID)
	}
	return nil, nil
}

// mockKiteClient satisfies interfaces.BrokerClient for the handlers that
// only check whether a client is configured.
type mockKiteClient struct{}

func (m *mockKiteClient) LoginURL(state string) string { return "" }

func (m *mockKiteClient) ExchangeToken(ctx context.Context, requestToken string) (*models.KiteToken, error) {
	return nil, nil
}

func (m *mockKiteClient) FetchHoldings(ctx context.Context, accessToken string) ([]models.KiteHolding, error) {
	return nil, nil
}

func (m *mockKiteClient) Quotes(ctx context.Context, accessToken string, symbols []string) (map[string]float64, error) {
	return nil, nil
}

func (m *mockKiteClient) InvalidateToken(ctx context.Context, accessToken string) error {
	return nil
}

// testApp bundles the mocks wired into an App for handler tests.
type testApp struct {
	broker    *mockBrokerService
	mfcas     *mockMFCASService
	upload    *mockUploadService
	portfolio *mockPortfolioService
	health    *mockHealthService
}

func newTestServer(cfg *testApp) *Server {
	if cfg == nil {
		cfg = &testApp{}
	}
	if cfg.broker == nil {
		cfg.broker = &mockBrokerService{}
	}
	if cfg.mfcas == nil {
		cfg.mfcas = &mockMFCASService{}
	}
	if cfg.upload == nil {
		cfg.upload = &mockUploadService{}
	}
	if cfg.portfolio == nil {
		cfg.portfolio = &mockPortfolioService{}
	}
	if cfg.health == nil {
		cfg.health = &mockHealthService{}
	}

	logger := common.NewLogger("disabled")
	config := common.NewDefaultConfig()
	a := &app.App{
		Config:           config,
		Logger:           logger,
		KiteClient:       &mockKiteClient{},
		BrokerService:    cfg.broker,
		MFCASService:     cfg.mfcas,
		UploadService:    cfg.upload,
		PortfolioService: cfg.portfolio,
		HealthService:    cfg.health,
		Reconciler:       reconcile.New(nil, cfg.broker, logger),
		StartupTime:      time.Now(),
	}
	return New(a)
}

var _ interfaces.BrokerService = (*mockBrokerService)(nil)
var _ interfaces.MFCASService = (*mockMFCASService)(nil)
var _ interfaces.UploadService = (*mockUploadService)(nil)
var _ interfaces.PortfolioService = (*mockPortfolioService)(nil)
var _ interfaces.HealthService = (*mockHealthService)(nil)
var _ interfaces.BrokerClient = (*mockKiteClient)(nil)
