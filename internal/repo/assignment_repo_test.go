package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campuswriters/go-market-backend/internal/domain"
)

func newAssignmentRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("assignment_repo_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.Assignment{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestCreateAssignment_SetsFields(t *testing.T) {
	db := newAssignmentRepoDB(t)

	a, err := CreateAssignment(context.Background(), db, "req-1", "writer-1", "client-1")
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	if a.ID == "" || a.Status != domain.AssignmentInProgress || a.CompletedAt != nil {
		t.Fatalf("unexpected assignment: %+v", a)
	}
}

func TestCreateAssignment_UniquePerRequest(t *testing.T) {
	db := newAssignmentRepoDB(t)
	ctx := context.Background()

	if _, err := CreateAssignment(ctx, db, "req-1", "writer-1", "client-1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := CreateAssignment(ctx, db, "req-1", "writer-2", "client-1"); err == nil {
		t.Fatalf("expected unique violation for second assignment on req-1")
	}
}

func TestGetAssignmentByRequest(t *testing.T) {
	db := newAssignmentRepoDB(t)
	ctx := context.Background()

	a, err := CreateAssignment(ctx, db, "req-1", "writer-1", "client-1")
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	got, err := GetAssignmentByRequest(ctx, db, "req-1")
	if err != nil || got.ID != a.ID {
		t.Fatalf("expected %s, got %+v (err %v)", a.ID, got, err)
	}

	if _, err := GetAssignmentByRequest(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteAssignment_SetsStatusAndTimestamp(t *testing.T) {
	db := newAssignmentRepoDB(t)
	ctx := context.Background()

	if _, err := CreateAssignment(ctx, db, "req-1", "writer-1", "client-1"); err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := CompleteAssignment(ctx, db, "req-1", at); err != nil {
		t.Fatalf("CompleteAssignment: %v", err)
	}
	got, err := GetAssignmentByRequest(ctx, db, "req-1")
	if err != nil {
		t.Fatalf("GetAssignmentByRequest: %v", err)
	}
	if got.Status != domain.AssignmentCompleted || got.CompletedAt == nil {
		t.Fatalf("expected completed assignment, got %+v", got)
	}

	// Re-completing (rating resubmission) stays a success.
	if err := CompleteAssignment(ctx, db, "req-1", at.Add(time.Minute)); err != nil {
		t.Fatalf("re-complete: %v", err)
	}

	if err := CompleteAssignment(ctx, db, "missing", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAssignmentsForWriter(t *testing.T) {
	db := newAssignmentRepoDB(t)
	ctx := context.Background()

	first, err := CreateAssignment(ctx, db, "req-1", "writer-1", "client-1")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	backdated := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(&domain.Assignment{}).Where("id = ?", first.ID).
		Update("created_at", backdated).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	second, err := CreateAssignment(ctx, db, "req-2", "writer-1", "client-2")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateAssignment(ctx, db, "req-3", "writer-2", "client-1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err := ListAssignmentsForWriter(ctx, db, "writer-1")
	if err != nil {
		t.Fatalf("ListAssignmentsForWriter: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != second.ID || rows[1].ID != first.ID {
		t.Fatalf("wrong rows/order: %+v", rows)
	}
}
