// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Rating
// model, including the keyed upsert and the from-scratch aggregate query that
// backs the cached reputation fields on users.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuswriters/go-market-backend/internal/domain"
)

// UpsertRating inserts a rating keyed by (rater_id, assignment_request_id) or,
// when the pair already exists, updates score, comment, and timestamp in
// place. Exactly one row per pair survives either path.
func UpsertRating(ctx context.Context, db *gorm.DB, raterID, ratedID, requestID string, score int, comment string) (*domain.Rating, error) {
	now := time.Now().UTC()

	var existing domain.Rating
	err := db.WithContext(ctx).
		Where("rater_id = ? AND assignment_request_id = ?", raterID, requestID).
		First(&existing).Error
	switch {
	case err == nil:
		existing.Score = score
		existing.Comment = comment
		existing.UpdatedAt = now
		if err := db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		r := &domain.Rating{
			ID:                  uuid.NewString(),
			RaterID:             raterID,
			RatedID:             ratedID,
			AssignmentRequestID: requestID,
			Score:               score,
			Comment:             comment,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := db.WithContext(ctx).Create(r).Error; err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, err
	}
}

// AggregateRatings recomputes the reputation cache inputs for a user from
// scratch: the arithmetic mean and count of all rating rows naming them as
// rated. No rows yields (0, 0).
func AggregateRatings(ctx context.Context, db *gorm.DB, ratedID string) (avg float64, count int64, err error) {
	var row struct {
		Avg   *float64
		Count int64
	}
	err = db.WithContext(ctx).
		Model(&domain.Rating{}).
		Select("AVG(score) as avg, COUNT(*) as count").
		Where("rated_id = ?", ratedID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	if row.Avg != nil {
		avg = *row.Avg
	}
	return avg, row.Count, nil
}

// ListRatingsForUser returns the rating rows naming ratedID, newest first.
func ListRatingsForUser(ctx context.Context, db *gorm.DB, ratedID string) ([]domain.Rating, error) {
	var out []domain.Rating
	err := db.WithContext(ctx).
		Where("rated_id = ?", ratedID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
