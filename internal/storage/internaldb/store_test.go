package internaldb

import (
	"context"
	"testing"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/models"
)

func newUnitTestStore(t *testing.T) *Store {
	t.Helper()
	logger := common.NewLogger("debug")
	store, err := NewStore(logger, t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionCRUD(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	sess := &models.BrokerSession{
		ID:          "sess-1",
		UserID:      "alice",
		AccessToken: "tok",
		BrokerUser:  "AB1234",
		ExpiresAt:   time.Now().Add(time.Hour),
		CreatedAt:   time.Now(),
	}
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := store.CurrentSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if got.ID != "sess-1" || got.BrokerUser != "AB1234" {
		t.Errorf("got %+v", got)
	}

	if _, err := store.CurrentSession(ctx, "bob"); err == nil {
		t.Error("expected error for user with no sessions")
	}
}

func TestSaveSessionRequiresID(t *testing.T) {
	store := newUnitTestStore(t)
	if err := store.SaveSession(context.Background(), &models.BrokerSession{UserID: "alice"}); err == nil {
		t.Error("expected error for session without ID")
	}
}

func TestCurrentSessionPicksLatest(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"old", "newer", "newest"} {
		sess := &models.BrokerSession{
			ID:        id,
			UserID:    "alice",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveSession(ctx, sess); err != nil {
			t.Fatalf("SaveSession %s: %v", id, err)
		}
	}

	got, err := store.CurrentSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if got.ID != "newest" {
		t.Errorf("expected newest session, got %s", got.ID)
	}
}

func TestOrphanAssociation(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	if _, err := store.OrphanSession(ctx); err == nil {
		t.Error("expected error when no orphan exists")
	}

	orphan := &models.BrokerSession{
		ID:        "orphan-1",
		UserID:    "",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	if err := store.SaveSession(ctx, orphan); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := store.OrphanSession(ctx)
	if err != nil {
		t.Fatalf("OrphanSession: %v", err)
	}
	if got.ID != "orphan-1" {
		t.Errorf("expected orphan-1, got %s", got.ID)
	}

	if err := store.AssociateSession(ctx, "orphan-1", "alice"); err != nil {
		t.Fatalf("AssociateSession: %v", err)
	}
	if _, err := store.OrphanSession(ctx); err == nil {
		t.Error("orphan should be gone after association")
	}
	current, err := store.CurrentSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if current.ID != "orphan-1" {
		t.Errorf("expected adopted session, got %s", current.ID)
	}

	if err := store.AssociateSession(ctx, "missing", "alice"); err == nil {
		t.Error("expected error associating unknown session")
	}
}

func TestDeleteSessions(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		sess := &models.BrokerSession{ID: id, UserID: "alice", CreatedAt: time.Now()}
		if err := store.SaveSession(ctx, sess); err != nil {
			t.Fatalf("SaveSession %s: %v", id, err)
		}
	}
	sess := &models.BrokerSession{ID: "keep", UserID: "bob", CreatedAt: time.Now()}
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession keep: %v", err)
	}

	count, err := store.DeleteSessions(ctx, "alice")
	if err != nil {
		t.Fatalf("DeleteSessions: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 deleted, got %d", count)
	}
	if _, err := store.CurrentSession(ctx, "alice"); err == nil {
		t.Error("alice sessions should be gone")
	}
	if _, err := store.CurrentSession(ctx, "bob"); err != nil {
		t.Errorf("bob session should survive: %v", err)
	}
}

func TestSystemKV(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	val, err := store.GetSystemKV(ctx, "schema_version")
	if err != nil {
		t.Fatalf("GetSystemKV: %v", err)
	}
	if val != "" {
		t.Errorf("expected empty value for missing key, got %q", val)
	}

	if err := store.SetSystemKV(ctx, "schema_version", "2"); err != nil {
		t.Fatalf("SetSystemKV: %v", err)
	}
	val, err = store.GetSystemKV(ctx, "schema_version")
	if err != nil {
		t.Fatalf("GetSystemKV: %v", err)
	}
	if val != "2" {
		t.Errorf("expected 2, got %q", val)
	}

	// Overwrite keeps the key readable and bumps the stored version.
	if err := store.SetSystemKV(ctx, "schema_version", "3"); err != nil {
		t.Fatalf("SetSystemKV update: %v", err)
	}
	val, _ = store.GetSystemKV(ctx, "schema_version")
	if val != "3" {
		t.Errorf("expected 3, got %q", val)
	}
}
