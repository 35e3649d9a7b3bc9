// Package cache provides a local file cache for computed portfolio
// summaries. Entries are msgpack-encoded, keyed by a schema-versioned name,
// and expire after a TTL so a stale summary is never served.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

const (
	// TTL bounds how long a cached summary may be served.
	TTL = 24 * time.Hour

	// schemaVersion is bumped whenever the envelope layout changes; old
	// entries are then unreadable by name and swept by Clear.
	schemaVersion = "v2"

	// legacyVersion is the pre-msgpack envelope version. Clear removes its
	// files so schema bumps never leave stale blobs behind.
	legacyVersion = "v1"
)

// envelope wraps a cached summary with its capture time for TTL checks.
type envelope struct {
	CachedAt time.Time               `msgpack:"cached_at"`
	Summary  models.PortfolioSummary `msgpack:"summary"`
}

// Store is a directory of per-user cache files.
type Store struct {
	dir    string
	logger *common.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewStore creates the cache directory if needed.
func NewStore(logger *common.Logger, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger, now: time.Now}, nil
}

func (s *Store) keyPath(version, userID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("snapshot_%s_%s.msgpack", version, userID))
}

// Get returns the cached summary for the user, or false when the entry is
// missing, unreadable, or older than TTL. Unreadable entries are removed.
func (s *Store) Get(userID string) (*models.PortfolioSummary, bool) {
	path := s.keyPath(schemaVersion, userID)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		s.logger.Warn().Str("path", path).Err(err).Msg("Removing undecodable cache entry")
		_ = os.Remove(path)
		return nil, false
	}
	if s.now().Sub(env.CachedAt) > TTL {
		return nil, false
	}
	return &env.Summary, true
}

// Put stores the summary for the user, stamping the capture time.
func (s *Store) Put(userID string, summary *models.PortfolioSummary) error {
	raw, err := msgpack.Marshal(&envelope{
		CachedAt: s.now(),
		Summary:  *summary,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	path := s.keyPath(schemaVersion, userID)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", path, err)
	}
	return nil
}

// Clear removes the user's cache entry, including any legacy-version file
// left by an earlier schema.
func (s *Store) Clear(userID string) {
	for _, version := range []string{schemaVersion, legacyVersion} {
		if err := os.Remove(s.keyPath(version, userID)); err == nil {
			s.logger.Debug().Str("user_id", userID).Str("version", version).Msg("Cache entry cleared")
		}
	}
}
