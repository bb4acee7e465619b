package settings

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/memberd/memberd/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "memberd-test.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errSeed := Seed(conn); errSeed != nil {
		t.Fatalf("seed: %v", errSeed)
	}
	store := NewStore(conn)
	if errRefresh := store.Refresh(context.Background()); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}
	return store
}

func TestSeededDefaults(t *testing.T) {
	store := newTestStore(t)

	if got := store.String(SiteNameKey, "fallback"); got != DefaultSiteName {
		t.Fatalf("site name = %s, want %s", got, DefaultSiteName)
	}
	if got := store.String(MailDomainKey, "fallback"); got != DefaultMailDomain {
		t.Fatalf("mail domain = %s, want %s", got, DefaultMailDomain)
	}
	if got := store.Int(LoginRateLimitKey, -1); got != DefaultLoginRateLimit {
		t.Fatalf("login rate limit = %d, want %d", got, DefaultLoginRateLimit)
	}
}

func TestIntegerValuesSurviveReload(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "memberd-test.db")
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errSeed := Seed(conn); errSeed != nil {
		t.Fatalf("seed: %v", errSeed)
	}
	store := NewStore(conn)
	if errSet := store.Set(context.Background(), LoginRateLimitKey, json.RawMessage(`12`)); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}

	// A bare integer payload must load on a fresh connection. SQLite stores
	// it as text, so this is where a NUMERIC-affinity column would break.
	reopened, errReopen := db.Open(dsn)
	if errReopen != nil {
		t.Fatalf("reopen db: %v", errReopen)
	}
	fresh := NewStore(reopened)
	if errRefresh := fresh.Refresh(context.Background()); errRefresh != nil {
		t.Fatalf("refresh after reopen: %v", errRefresh)
	}
	if got := fresh.Int(LoginRateLimitKey, -1); got != 12 {
		t.Fatalf("login rate limit = %d, want 12", got)
	}
}

func TestSetUpdatesSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if errSet := store.Set(ctx, MailDomainKey, json.RawMessage(`"lists.ewb.ca"`)); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}
	if got := store.String(MailDomainKey, ""); got != "lists.ewb.ca" {
		t.Fatalf("mail domain = %s, want lists.ewb.ca", got)
	}

	// Overwrite must replace, not duplicate.
	if errSet := store.Set(ctx, MailDomainKey, json.RawMessage(`"mail.ewb.ca"`)); errSet != nil {
		t.Fatalf("second set: %v", errSet)
	}
	if got := store.String(MailDomainKey, ""); got != "mail.ewb.ca" {
		t.Fatalf("mail domain = %s, want mail.ewb.ca", got)
	}
}

func TestFallbacks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if got := store.String("NO_SUCH_KEY", "fallback"); got != "fallback" {
		t.Fatalf("missing key = %s, want fallback", got)
	}
	if got := store.Int("NO_SUCH_KEY", 7); got != 7 {
		t.Fatalf("missing int key = %d, want 7", got)
	}

	// Wrong-typed values fall back too.
	if errSet := store.Set(ctx, LoginRateLimitKey, json.RawMessage(`"many"`)); errSet != nil {
		t.Fatalf("set: %v", errSet)
	}
	if got := store.Int(LoginRateLimitKey, 5); got != 5 {
		t.Fatalf("mistyped int = %d, want fallback 5", got)
	}

	if errSet := store.Set(ctx, "EMPTY", json.RawMessage(`""`)); errSet != nil {
		t.Fatalf("set empty: %v", errSet)
	}
	if got := store.String("EMPTY", "fallback"); got != "fallback" {
		t.Fatalf("empty string = %s, want fallback", got)
	}
}
