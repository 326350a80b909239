// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) on the open listing.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/campuswriters/go-market-backend/internal/domain"
)

// OpenRequestsStats returns aggregate metadata for the open, unexpired
// listing: the row count and the greatest UpdatedAt among those rows. The pair
// changes whenever the listing's contents change, which makes it a cheap weak
// ETag input.
//
// When no rows qualify, count is 0 and maxUpdatedAt is nil.
func OpenRequestsStats(ctx context.Context, db *gorm.DB, cutoff time.Time) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).
		Model(&domain.AssignmentRequest{}).
		Where("status = ? AND created_at >= ?", domain.RequestOpen, cutoff)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
