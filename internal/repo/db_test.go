package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/campuswriters/go-market-backend/internal/domain"
)

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does", "not", "exist", "app.db")
	if _, err := OpenSQLite(path); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestOpenSQLite_AndAutoMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// Schema is usable end to end: insert a user and read it back.
	u, err := CreateUser(context.Background(), db, &domain.User{
		ExternalID: "sub-db-test",
		Email:      "db-test@example.edu",
		Name:       "DB Test",
		Role:       domain.RoleClient,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := GetUser(context.Background(), db, u.ID); err != nil {
		t.Fatalf("GetUser: %v", err)
	}
}
