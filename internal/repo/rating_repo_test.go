package repo

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campuswriters/go-market-backend/internal/domain"
)

func newRatingRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("rating_repo_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.Rating{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestUpsertRating_InsertThenUpdateKeepsOneRow(t *testing.T) {
	db := newRatingRepoDB(t)
	ctx := context.Background()

	first, err := UpsertRating(ctx, db, "rater", "rated", "req-1", 5, "great")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID == "" || first.Score != 5 || first.Comment != "great" {
		t.Fatalf("unexpected rating: %+v", first)
	}

	second, err := UpsertRating(ctx, db, "rater", "rated", "req-1", 2, "changed my mind")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("update minted a new row: %s vs %s", second.ID, first.ID)
	}
	if second.Score != 2 || second.Comment != "changed my mind" {
		t.Fatalf("unexpected updated rating: %+v", second)
	}

	var n int64
	if err := db.Model(&domain.Rating{}).Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("expected exactly 1 row, got %d (err %v)", n, err)
	}
}

func TestUpsertRating_DistinctRequestsAreDistinctRows(t *testing.T) {
	db := newRatingRepoDB(t)
	ctx := context.Background()

	if _, err := UpsertRating(ctx, db, "rater", "rated", "req-1", 4, ""); err != nil {
		t.Fatalf("req-1: %v", err)
	}
	if _, err := UpsertRating(ctx, db, "rater", "rated", "req-2", 3, ""); err != nil {
		t.Fatalf("req-2: %v", err)
	}

	var n int64
	if err := db.Model(&domain.Rating{}).Count(&n).Error; err != nil || n != 2 {
		t.Fatalf("expected 2 rows, got %d (err %v)", n, err)
	}
}

func TestAggregateRatings_EmptyAndPopulated(t *testing.T) {
	db := newRatingRepoDB(t)
	ctx := context.Background()

	avg, count, err := AggregateRatings(ctx, db, "nobody")
	if err != nil {
		t.Fatalf("empty aggregate: %v", err)
	}
	if avg != 0 || count != 0 {
		t.Fatalf("expected (0, 0) for no rows, got (%v, %d)", avg, count)
	}

	for i, score := range []int{5, 4, 4} {
		if _, err := UpsertRating(ctx, db, fmt.Sprintf("rater-%d", i), "writer", fmt.Sprintf("req-%d", i), score, ""); err != nil {
			t.Fatalf("seed rating %d: %v", i, err)
		}
	}
	// One rating naming someone else must not leak in.
	if _, err := UpsertRating(ctx, db, "rater-x", "other", "req-x", 1, ""); err != nil {
		t.Fatalf("seed other rating: %v", err)
	}

	avg, count, err = AggregateRatings(ctx, db, "writer")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
	if math.Abs(avg-13.0/3.0) > 1e-9 {
		t.Fatalf("expected avg %v, got %v", 13.0/3.0, avg)
	}
}

func TestListRatingsForUser_NewestFirst(t *testing.T) {
	db := newRatingRepoDB(t)
	ctx := context.Background()

	older, err := UpsertRating(ctx, db, "r1", "writer", "req-1", 5, "")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	backdated := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(&domain.Rating{}).Where("id = ?", older.ID).
		Update("created_at", backdated).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	newer, err := UpsertRating(ctx, db, "r2", "writer", "req-2", 3, "")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err := ListRatingsForUser(ctx, db, "writer")
	if err != nil {
		t.Fatalf("ListRatingsForUser: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != newer.ID || rows[1].ID != older.ID {
		t.Fatalf("wrong rows/order: %+v", rows)
	}
}
