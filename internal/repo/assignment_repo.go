// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Assignment
// model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuswriters/go-market-backend/internal/domain"
)

// CreateAssignment inserts the assignment row produced by a successful
// acceptance. The unique index on request_id backs the "exactly one assignment
// per request" invariant; a second insert for the same request fails at the
// database.
func CreateAssignment(ctx context.Context, db *gorm.DB, requestID, writerID, clientID string) (*domain.Assignment, error) {
	a := &domain.Assignment{
		ID:        uuid.NewString(),
		RequestID: requestID,
		WriterID:  writerID,
		ClientID:  clientID,
		Status:    domain.AssignmentInProgress,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetAssignmentByRequest fetches the assignment for a request, or ErrNotFound.
func GetAssignmentByRequest(ctx context.Context, db *gorm.DB, requestID string) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := db.WithContext(ctx).Where("request_id = ?", requestID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CompleteAssignment marks the assignment for a request completed with the
// given timestamp. Re-completing an already completed assignment is a no-op
// update of the same values, which keeps rating resubmission idempotent.
func CompleteAssignment(ctx context.Context, db *gorm.DB, requestID string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Assignment{}).
		Where("request_id = ?", requestID).
		Updates(map[string]any{"status": domain.AssignmentCompleted, "completed_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListAssignmentsForWriter returns a writer's assignments, newest first.
func ListAssignmentsForWriter(ctx context.Context, db *gorm.DB, writerID string) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := db.WithContext(ctx).
		Where("writer_id = ?", writerID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
