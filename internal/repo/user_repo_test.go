package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campuswriters/go-market-backend/internal/domain"
)

func newUserRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("user_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

var userSeq atomic.Int64

func seedRepoUser(t *testing.T, db *gorm.DB, role string) *domain.User {
	t.Helper()

	n := userSeq.Add(1)
	u, err := CreateUser(context.Background(), db, &domain.User{
		ExternalID:   fmt.Sprintf("sub-%d", n),
		Email:        fmt.Sprintf("user%d@example.edu", n),
		Name:         "Test User",
		Role:         role,
		WriterStatus: domain.WriterActive,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestCreateUser_GeneratesIDAndTimestamps(t *testing.T) {
	db := newUserRepoDB(t)

	start := time.Now().UTC().Add(-time.Minute)
	u := seedRepoUser(t, db, domain.RoleClient)
	if u.ID == "" || u.CreatedAt.Before(start) {
		t.Fatalf("unexpected user fields: %+v", u)
	}

	got, err := GetUser(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != u.Email || got.Role != domain.RoleClient {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestGetUserByExternalID(t *testing.T) {
	db := newUserRepoDB(t)
	ctx := context.Background()
	u := seedRepoUser(t, db, domain.RoleWriter)

	got, err := GetUserByExternalID(ctx, db, u.ExternalID)
	if err != nil {
		t.Fatalf("GetUserByExternalID: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected %s, got %s", u.ID, got.ID)
	}

	if _, err := GetUserByExternalID(ctx, db, "unknown-subject"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserProfile_FieldsAndMissingRow(t *testing.T) {
	db := newUserRepoDB(t)
	ctx := context.Background()
	u := seedRepoUser(t, db, domain.RoleClient)

	if err := UpdateUserProfile(ctx, db, u.ID, map[string]any{"name": "Renamed"}); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	got, err := GetUser(ctx, db, u.ID)
	if err != nil || got.Name != "Renamed" {
		t.Fatalf("expected renamed user, got %+v (err %v)", got, err)
	}

	// Empty field map is a no-op, not an error.
	if err := UpdateUserProfile(ctx, db, u.ID, nil); err != nil {
		t.Fatalf("empty update: %v", err)
	}

	if err := UpdateUserProfile(ctx, db, "missing", map[string]any{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateWriterStatus_ScopedToWriters(t *testing.T) {
	db := newUserRepoDB(t)
	ctx := context.Background()
	w := seedRepoUser(t, db, domain.RoleWriter)
	c := seedRepoUser(t, db, domain.RoleClient)

	if err := UpdateWriterStatus(ctx, db, w.ID, domain.WriterBusy); err != nil {
		t.Fatalf("UpdateWriterStatus: %v", err)
	}
	got, err := GetUser(ctx, db, w.ID)
	if err != nil || got.WriterStatus != domain.WriterBusy {
		t.Fatalf("expected busy writer, got %+v (err %v)", got, err)
	}

	// A client row never matches the role guard.
	if err := UpdateWriterStatus(ctx, db, c.ID, domain.WriterBusy); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for client, got %v", err)
	}
}

func TestUpdateContactSealed_ReplacesBlob(t *testing.T) {
	db := newUserRepoDB(t)
	ctx := context.Background()
	u := seedRepoUser(t, db, domain.RoleClient)

	if err := UpdateContactSealed(ctx, db, u.ID, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("UpdateContactSealed: %v", err)
	}
	got, err := GetUser(ctx, db, u.ID)
	if err != nil || len(got.ContactSealed) != 2 {
		t.Fatalf("expected sealed blob, got %+v (err %v)", got, err)
	}

	if err := UpdateContactSealed(ctx, db, "missing", []byte{0x01}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetUserAggregates(t *testing.T) {
	db := newUserRepoDB(t)
	ctx := context.Background()
	u := seedRepoUser(t, db, domain.RoleWriter)

	if err := SetUserAggregates(ctx, db, u.ID, 4.3, 7); err != nil {
		t.Fatalf("SetUserAggregates: %v", err)
	}
	got, err := GetUser(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Rating != 4.3 || got.TotalRatings != 7 {
		t.Fatalf("expected (4.3, 7), got (%v, %d)", got.Rating, got.TotalRatings)
	}

	if err := SetUserAggregates(ctx, db, "missing", 1, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
