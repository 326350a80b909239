// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// AssignmentRequest model.
//
// The one piece of business-critical persistence logic that lives here is
// MarkAssigned: the conditional UPDATE ... WHERE status = 'open' that serves
// as the optimistic-concurrency guard for acceptance. Everything else is thin
// CRUD and query composition.
//
// Error semantics:
//   - Missing rows surface as gorm.ErrRecordNotFound (ErrNotFound).
//   - Guarded updates that match no row report the affected-row count to the
//     caller instead of an error, so the service layer can distinguish
//     "already accepted" from "does not exist".
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campuswriters/go-market-backend/internal/domain"
)

// CreateRequest inserts a new assignment request with status open. The ID is
// a generated UUID and CreatedAt is set to UTC.
func CreateRequest(ctx context.Context, db *gorm.DB, r *domain.AssignmentRequest) (*domain.AssignmentRequest, error) {
	r.ID = uuid.NewString()
	r.Status = domain.RequestOpen
	r.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// scopeOpenSince composes the open-and-unexpired filter with the optional
// course name/code substring search.
func scopeOpenSince(db *gorm.DB, cutoff time.Time, query string) *gorm.DB {
	q := db.Where("status = ? AND created_at >= ?", domain.RequestOpen, cutoff)
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("course_name LIKE ? OR course_code LIKE ?", like, like)
	}
	return q
}

// ListOpenSince returns open requests created at or after cutoff, newest
// first, with the owning client preloaded for the public profile snapshot.
// An optional query filters by substring on course name or code; offset and
// limit page the result (limit <= 0 disables paging).
func ListOpenSince(ctx context.Context, db *gorm.DB, cutoff time.Time, query string, offset, limit int) ([]domain.AssignmentRequest, error) {
	q := scopeOpenSince(db.WithContext(ctx).Preload("Client"), cutoff, query).
		Order("created_at desc")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	var out []domain.AssignmentRequest
	err := q.Find(&out).Error
	return out, err
}

// CountOpenSince returns the total number of rows ListOpenSince would page
// through.
func CountOpenSince(ctx context.Context, db *gorm.DB, cutoff time.Time, query string) (int64, error) {
	var n int64
	err := scopeOpenSince(db.WithContext(ctx).Model(&domain.AssignmentRequest{}), cutoff, query).
		Count(&n).Error
	return n, err
}

// GetRequest fetches a request by ID, or ErrNotFound.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.AssignmentRequest, error) {
	var r domain.AssignmentRequest
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkAssigned transitions a request from open to assigned, returning the
// number of rows updated. A return of 0 with nil error means the request was
// not open at update time (already accepted, deleted, or never existed),
// which is the signal the acceptance transaction needs to fail the loser of a
// race cleanly.
func MarkAssigned(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.AssignmentRequest{}).
		Where("id = ? AND status = ?", id, domain.RequestOpen).
		Updates(map[string]any{"status": domain.RequestAssigned, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// MarkCompleted transitions an assigned request to completed. Used by the
// rating flow when the working relationship concludes.
func MarkCompleted(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.AssignmentRequest{}).
		Where("id = ? AND status = ?", id, domain.RequestAssigned).
		Updates(map[string]any{"status": domain.RequestCompleted, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// DeleteOwnedOpen removes a request only when it is owned by clientID and
// still open, returning the number of rows deleted. 0 means the guard did not
// match; the caller decides whether that is a conflict or an authorization
// failure.
func DeleteOwnedOpen(ctx context.Context, db *gorm.DB, id, clientID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("id = ? AND client_id = ? AND status = ?", id, clientID, domain.RequestOpen).
		Delete(&domain.AssignmentRequest{})
	return res.RowsAffected, res.Error
}

// DeleteExpiredOpen removes every still-open request created before cutoff and
// returns how many rows went away. Assigned, completed, and cancelled rows are
// never touched. Calling it again with no newly expired rows deletes nothing.
func DeleteExpiredOpen(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.RequestOpen, cutoff).
		Delete(&domain.AssignmentRequest{})
	return res.RowsAffected, res.Error
}
