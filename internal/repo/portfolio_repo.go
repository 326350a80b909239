// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// WriterPortfolio model (one sample-work reference per writer).
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuswriters/go-market-backend/internal/domain"
)

// UpsertPortfolio creates or replaces a writer's portfolio entry. A writer has
// at most one (unique index on writer_id).
func UpsertPortfolio(ctx context.Context, db *gorm.DB, writerID, sampleURL, description string) (*domain.WriterPortfolio, error) {
	now := time.Now().UTC()

	var existing domain.WriterPortfolio
	err := db.WithContext(ctx).Where("writer_id = ?", writerID).First(&existing).Error
	switch {
	case err == nil:
		existing.SampleURL = sampleURL
		existing.Description = description
		existing.UpdatedAt = now
		if err := db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		p := &domain.WriterPortfolio{
			ID:          uuid.NewString(),
			WriterID:    writerID,
			SampleURL:   sampleURL,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := db.WithContext(ctx).Create(p).Error; err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, err
	}
}

// GetPortfolio fetches a writer's portfolio, or ErrNotFound.
func GetPortfolio(ctx context.Context, db *gorm.DB, writerID string) (*domain.WriterPortfolio, error) {
	var p domain.WriterPortfolio
	if err := db.WithContext(ctx).Where("writer_id = ?", writerID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
