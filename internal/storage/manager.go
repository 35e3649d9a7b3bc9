// Package storage provides the top-level Manager coordinating the two
// storage areas: internaldb (sessions, system KV) and ledgerdb (holdings,
// sync log, snapshots, mutual fund data).
package storage

import (
	"context"
	"fmt"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/storage/internaldb"
	"github.com/Sheringkapoting/portfo-blend/internal/storage/ledgerdb"
)

// Manager implements interfaces.StorageManager using 2 storage areas.
type Manager struct {
	internal *internaldb.Store
	ledger   *ledgerdb.Store
	logger   *common.Logger
}

// NewManager opens both storage areas from config.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	internalStore, err := internaldb.NewStore(logger, config.Storage.Internal.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create internal store: %w", err)
	}

	ledgerStore, err := ledgerdb.NewStore(logger, config.Storage.Ledger.Path)
	if err != nil {
		internalStore.Close()
		return nil, fmt.Errorf("failed to create ledger store: %w", err)
	}

	logger.Info().
		Str("internal", config.Storage.Internal.Path).
		Str("ledger", config.Storage.Ledger.Path).
		Msg("Storage manager initialized (2 areas)")

	return &Manager{
		internal: internalStore,
		ledger:   ledgerStore,
		logger:   logger,
	}, nil
}

func (m *Manager) Sessions() interfaces.SessionStore {
	return m.internal
}

func (m *Manager) Holdings() interfaces.HoldingStore {
	return m.ledger
}

func (m *Manager) SyncLog() interfaces.SyncLogStore {
	return m.ledger
}

func (m *Manager) Snapshots() interfaces.SnapshotStore {
	return m.ledger
}

func (m *Manager) MutualFunds() interfaces.MutualFundStore {
	return m.ledger
}

func (m *Manager) GetSystemKV(ctx context.Context, key string) (string, error) {
	return m.internal.GetSystemKV(ctx, key)
}

func (m *Manager) SetSystemKV(ctx context.Context, key, value string) error {
	return m.internal.SetSystemKV(ctx, key, value)
}

func (m *Manager) Close() error {
	var firstErr error
	if err := m.internal.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.ledger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
