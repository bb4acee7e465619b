package app

import (
	"path/filepath"
	"testing"

	"github.com/memberd/memberd/internal/config"
	"github.com/memberd/memberd/internal/db"
	"github.com/memberd/memberd/internal/models"
	"github.com/memberd/memberd/internal/security"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "memberd-test.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestEnsureAdminUser(t *testing.T) {
	conn := newTestDB(t)

	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		t.Fatalf("check initialized: %v", errInit)
	}
	if initialized {
		t.Fatal("fresh database should have no superuser")
	}

	admin := config.AdminConfig{Username: "root", Email: "root@example.org", Password: "secret"}
	if errEnsure := EnsureAdminUser(conn, admin); errEnsure != nil {
		t.Fatalf("ensure admin: %v", errEnsure)
	}

	var user models.User
	if errFind := conn.Where("username = ?", "root").First(&user).Error; errFind != nil {
		t.Fatalf("load admin: %v", errFind)
	}
	if !user.Superuser {
		t.Fatal("bootstrap user should be a superuser")
	}
	if !security.CheckPassword(user.Password, "secret") {
		t.Fatal("password hash does not verify")
	}

	// A second run must not duplicate or overwrite the account.
	if errEnsure := EnsureAdminUser(conn, config.AdminConfig{Username: "root", Password: "other"}); errEnsure != nil {
		t.Fatalf("second ensure admin: %v", errEnsure)
	}
	var count int64
	if errCount := conn.Model(&models.User{}).Where("username = ?", "root").Count(&count).Error; errCount != nil {
		t.Fatalf("count admins: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("admin count = %d, want 1", count)
	}

	initialized, errInit = HasAdminInitialized(conn)
	if errInit != nil {
		t.Fatalf("check initialized: %v", errInit)
	}
	if !initialized {
		t.Fatal("superuser should mark the system initialized")
	}
}

func TestEnsureAdminUserSkipsWithoutUsername(t *testing.T) {
	conn := newTestDB(t)

	if errEnsure := EnsureAdminUser(conn, config.AdminConfig{}); errEnsure != nil {
		t.Fatalf("empty config should be a no-op, got %v", errEnsure)
	}
	if errEnsure := EnsureAdminUser(conn, config.AdminConfig{Username: "root"}); errEnsure == nil {
		t.Fatal("username without password should error")
	}
}
