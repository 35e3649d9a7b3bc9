// Package internaldb implements the session and system-KV area using
// BadgerHold. It holds broker OAuth sessions and system-level key-value
// state; domain data lives in ledgerdb.
package internaldb

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

// Store implements interfaces.SessionStore plus the system KV operations.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore opens the internal area at path, creating the directory if needed.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create internal db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open internal db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("InternalDB opened")
	return &Store{db: db, logger: logger}, nil
}

// --- Broker sessions ---

func (s *Store) SaveSession(_ context.Context, session *models.BrokerSession) error {
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	if err := s.db.Upsert(session.ID, session); err != nil {
		return fmt.Errorf("failed to save session '%s': %w", session.ID, err)
	}
	s.logger.Debug().Str("session_id", session.ID).Str("user_id", session.UserID).Msg("Session saved")
	return nil
}

func (s *Store) CurrentSession(_ context.Context, userID string) (*models.BrokerSession, error) {
	var sessions []models.BrokerSession
	if err := s.db.Find(&sessions, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to find sessions for user '%s': %w", userID, err)
	}
	current := latestSession(sessions)
	if current == nil {
		return nil, fmt.Errorf("no session found for user '%s'", userID)
	}
	return current, nil
}

func (s *Store) OrphanSession(_ context.Context) (*models.BrokerSession, error) {
	var sessions []models.BrokerSession
	if err := s.db.Find(&sessions, badgerhold.Where("UserID").Eq("")); err != nil {
		return nil, fmt.Errorf("failed to find orphan sessions: %w", err)
	}
	current := latestSession(sessions)
	if current == nil {
		return nil, fmt.Errorf("no orphan session found")
	}
	return current, nil
}

func (s *Store) AssociateSession(_ context.Context, sessionID, userID string) error {
	var session models.BrokerSession
	if err := s.db.Get(sessionID, &session); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("session '%s' not found", sessionID)
		}
		return fmt.Errorf("failed to get session '%s': %w", sessionID, err)
	}
	session.UserID = userID
	if err := s.db.Upsert(sessionID, &session); err != nil {
		return fmt.Errorf("failed to associate session '%s': %w", sessionID, err)
	}
	s.logger.Debug().Str("session_id", sessionID).Str("user_id", userID).Msg("Session associated")
	return nil
}

func (s *Store) DeleteSessions(_ context.Context, userID string) (int, error) {
	var sessions []models.BrokerSession
	if err := s.db.Find(&sessions, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return 0, fmt.Errorf("failed to find sessions for user '%s': %w", userID, err)
	}
	count := 0
	for _, sess := range sessions {
		if err := s.db.Delete(sess.ID, models.BrokerSession{}); err == nil {
			count++
		}
	}
	s.logger.Debug().Str("user_id", userID).Int("count", count).Msg("Sessions deleted")
	return count, nil
}

// latestSession picks the most recently created row; ties fall to the first.
func latestSession(sessions []models.BrokerSession) *models.BrokerSession {
	var current *models.BrokerSession
	for i := range sessions {
		if current == nil || sessions[i].CreatedAt.After(current.CreatedAt) {
			current = &sessions[i]
		}
	}
	return current
}

// --- System key-value ---

// kvPrefix keeps SystemKeyValue keys out of the session ID namespace.
const kvPrefix = "__system__\x00"

func (s *Store) GetSystemKV(_ context.Context, key string) (string, error) {
	var kv models.SystemKeyValue
	if err := s.db.Get(kvPrefix+key, &kv); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to get system kv '%s': %w", key, err)
	}
	return kv.Value, nil
}

func (s *Store) SetSystemKV(_ context.Context, key, value string) error {
	ck := kvPrefix + key
	version := 1
	var existing models.SystemKeyValue
	if err := s.db.Get(ck, &existing); err == nil {
		version = existing.Version + 1
	}
	kv := &models.SystemKeyValue{
		Key:      key,
		Value:    value,
		Version:  version,
		DateTime: time.Now(),
	}
	if err := s.db.Upsert(ck, kv); err != nil {
		return fmt.Errorf("failed to set system kv '%s': %w", key, err)
	}
	return nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
