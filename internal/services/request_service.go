// Package services – RequestService
//
// This file implements the RequestService, which owns the assignment-request
// lifecycle: creation with server-side validation, the open listing, the
// acceptance transaction, owner deletion, and expiration of stale rows.
//
// Acceptance is the one operation where a race has real consequences
// (double-acceptance of a single request), so the open→assigned transition is
// a conditional UPDATE inside a transaction with an affected-row check: of two
// racing acceptances, exactly one sees the row still open.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuswriters/go-market-backend/internal/domain"
	"github.com/campuswriters/go-market-backend/internal/repo"
	"github.com/campuswriters/go-market-backend/internal/secrets"
	"github.com/campuswriters/go-market-backend/internal/utils"
)

// Field length caps applied server-side regardless of client validation.
const (
	maxCourseNameLen = 255
	maxCourseCodeLen = 50
	maxTypeLen       = 100
)

// assignmentTypes is the enumerated set accepted for AssignmentType.
var assignmentTypes = map[string]struct{}{
	"essay":          {},
	"report":         {},
	"research_paper": {},
	"presentation":   {},
	"problem_set":    {},
	"lab_report":     {},
	"thesis":         {},
	"other":          {},
}

// RequestService provides assignment-request lifecycle operations.
type RequestService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Vault seals and opens client contact channels.
	Vault *secrets.Vault

	// RetentionWindow is how long an open request stays listed before it is
	// considered stale.
	RetentionWindow time.Duration
	// CostUnit is the granularity estimated costs are rounded to.
	CostUnit int
	// IdemTTL bounds how long a creation's idempotency record stays valid.
	IdemTTL time.Duration
}

// NewRequestService constructs a RequestService with the marketplace defaults.
func NewRequestService(db *gorm.DB, vault *secrets.Vault, retention time.Duration, costUnit int) *RequestService {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if costUnit <= 0 {
		costUnit = 50
	}
	return &RequestService{DB: db, Vault: vault, RetentionWindow: retention, CostUnit: costUnit}
}

// CreateRequestInput carries the client-supplied fields for a new request.
// Everything here is advisory until validated.
type CreateRequestInput struct {
	CourseName     string
	CourseCode     string
	AssignmentType string
	NumPages       int
	Deadline       time.Time
	EstimatedCost  int
}

// Create validates, normalizes, and persists a new open assignment request
// owned by clientID. Only client-role accounts may post. String fields are
// trimmed and truncated, the type is checked against the enumerated set, the
// deadline must lie in the future, and the estimated cost is rounded to the
// nearest cost unit.
func (s *RequestService) Create(ctx context.Context, clientID string, in CreateRequestInput) (*domain.AssignmentRequest, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("client.id", clientID)),
	)
	defer span.End()

	return s.create(ctx, s.DB, clientID, in)
}

// create is Create against an arbitrary handle, so CreateIdempotent can run
// it inside the same transaction as its idempotency record.
func (s *RequestService) create(ctx context.Context, db *gorm.DB, clientID string, in CreateRequestInput) (*domain.AssignmentRequest, error) {
	actor, err := repo.GetUser(ctx, db, clientID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if actor.Role != domain.RoleClient {
		return nil, ErrNotClient
	}

	name := clipRunes(strings.TrimSpace(in.CourseName), maxCourseNameLen)
	if name == "" {
		return nil, fieldErr("course_name", "required")
	}
	code := clipRunes(strings.TrimSpace(in.CourseCode), maxCourseCodeLen)
	if code == "" {
		return nil, fieldErr("course_code", "required")
	}
	atype := clipRunes(strings.ToLower(strings.TrimSpace(in.AssignmentType)), maxTypeLen)
	if atype == "" {
		return nil, fieldErr("assignment_type", "required")
	}
	if _, ok := assignmentTypes[atype]; !ok {
		return nil, fieldErr("assignment_type", "unknown type")
	}
	if in.NumPages <= 0 {
		return nil, fieldErr("num_pages", "must be a positive integer")
	}
	if in.Deadline.IsZero() {
		return nil, fieldErr("deadline", "required")
	}
	if !in.Deadline.After(time.Now()) {
		return nil, fieldErr("deadline", "must be in the future")
	}
	if in.EstimatedCost <= 0 {
		return nil, fieldErr("estimated_cost", "must be positive")
	}
	cost := roundToUnit(in.EstimatedCost, s.CostUnit)

	r := &domain.AssignmentRequest{
		ClientID:       clientID,
		CourseName:     name,
		CourseCode:     code,
		AssignmentType: atype,
		NumPages:       in.NumPages,
		Deadline:       in.Deadline.UTC(),
		EstimatedCost:  cost,
	}
	return repo.CreateRequest(ctx, db, r)
}

// CreateIdempotent is Create with retry safety. When key is non-empty and a
// still-valid record exists for (clientID, key), the previously created
// request is returned with replayed=true and nothing new is inserted. A
// replay whose request has since been deleted or expired reports
// ErrRequestNotFound rather than silently creating a double.
//
// The request row and its idempotency record commit in one transaction, so a
// failed record insert never leaves an orphan request behind for a retry to
// duplicate.
func (s *RequestService) CreateIdempotent(ctx context.Context, clientID, key string, in CreateRequestInput) (r *domain.AssignmentRequest, replayed bool, err error) {
	if key == "" {
		r, err = s.Create(ctx, clientID, in)
		return r, false, err
	}

	now := time.Now().UTC()
	if prev, ok, replayErr := s.replayByKey(ctx, clientID, key, now); ok {
		return prev, true, replayErr
	}

	ttl := s.IdemTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.create(ctx, tx, clientID, in)
		if err != nil {
			return err
		}
		if _, err := repo.CreateIdempotency(ctx, tx, clientID, key, created.ID, 201, ttl); err != nil {
			return err
		}
		r = created
		return nil
	})
	if err != nil {
		// A duplicate key means a concurrent retry won the insert; its
		// result is the one to replay.
		if errors.Is(err, repo.ErrDuplicate) {
			if prev, ok, replayErr := s.replayByKey(ctx, clientID, key, now); ok {
				return prev, true, replayErr
			}
		}
		return nil, false, err
	}
	return r, false, nil
}

// replayByKey resolves an idempotency key to its prior request. ok reports
// whether a record exists; a record whose request has vanished yields
// ErrRequestNotFound.
func (s *RequestService) replayByKey(ctx context.Context, clientID, key string, now time.Time) (*domain.AssignmentRequest, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, clientID, key, now)
	if err != nil {
		return nil, false, nil
	}
	prev, err := repo.GetRequest(ctx, s.DB, rec.RequestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, true, ErrRequestNotFound
		}
		return nil, true, err
	}
	return prev, true, nil
}

// OpenRequest is one row of the open listing: the request plus a public
// snapshot of the posting client.
type OpenRequest struct {
	domain.AssignmentRequest
	Client domain.PublicProfile `json:"client"`
}

// Listing page defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListOpen returns one page of the open, unexpired requests, newest first,
// each joined with the owning client's public profile, plus the total row
// count for the filter. An optional query substring filters on course name or
// code. Page and perPage are clamped to sane bounds.
func (s *RequestService) ListOpen(ctx context.Context, query string, page, perPage int) ([]OpenRequest, int64, error) {
	page, perPage = utils.NormalizePage(page, perPage, DefaultPageSize, MaxPageSize)
	cutoff := time.Now().UTC().Add(-s.RetentionWindow)
	query = strings.TrimSpace(query)

	total, err := repo.CountOpenSince(ctx, s.DB, cutoff, query)
	if err != nil {
		return nil, 0, err
	}
	rows, err := repo.ListOpenSince(ctx, s.DB, cutoff, query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, err
	}

	out := make([]OpenRequest, 0, len(rows))
	for i := range rows {
		client := rows[i].Client
		rows[i].Client = domain.User{}
		out = append(out, OpenRequest{
			AssignmentRequest: rows[i],
			Client:            client.Public(),
		})
	}
	return out, total, nil
}

// AcceptResult is what a successful acceptance hands back to the writer: the
// assignment identifiers plus the client's contact channel for out-of-band
// coordination. The contact is disclosed here and nowhere else.
type AcceptResult struct {
	AssignmentID  string `json:"assignment_id"`
	RequestID     string `json:"request_id"`
	ClientID      string `json:"client_id"`
	ClientName    string `json:"client_name"`
	ClientContact string `json:"client_contact,omitempty"`
}

// Accept lets a writer claim an open request. Preconditions are checked in
// order, first failure wins:
//
//  1. the writer exists, holds the writer role, and is active or busy;
//  2. the request exists and is still open;
//  3. the owning client still exists and is not the accepting account.
//
// The open→assigned transition and the assignment insert commit together or
// not at all. The conditional update's affected-row count is the concurrency
// guard: the loser of a race observes zero rows and gets ErrAlreadyAccepted.
func (s *RequestService) Accept(ctx context.Context, requestID, writerID string) (*AcceptResult, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Accept",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("writer.id", writerID),
		),
	)
	defer span.End()

	writer, err := repo.GetUser(ctx, s.DB, writerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if writer.Role != domain.RoleWriter {
		return nil, ErrNotWriter
	}
	if writer.WriterStatus != domain.WriterActive && writer.WriterStatus != domain.WriterBusy {
		return nil, ErrWriterInactive
	}

	var result AcceptResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := repo.MarkAssigned(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Distinguish "never existed" from "no longer open".
			if _, err := repo.GetRequest(ctx, tx, requestID); errors.Is(err, repo.ErrNotFound) {
				return ErrRequestNotFound
			}
			return ErrAlreadyAccepted
		}

		req, err := repo.GetRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		client, err := repo.GetUser(ctx, tx, req.ClientID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrClientGone
			}
			return err
		}
		// Role checks alone do not prevent self-dealing if the account's
		// role changed after posting.
		if client.ID == writerID {
			return ErrOwnRequest
		}

		a, err := repo.CreateAssignment(ctx, tx, requestID, writerID, client.ID)
		if err != nil {
			return err
		}

		result = AcceptResult{
			AssignmentID: a.ID,
			RequestID:    requestID,
			ClientID:     client.ID,
			ClientName:   client.Name,
		}
		// Disclose the contact only to this writer, only on success. A blob
		// that cannot be opened degrades to no contact; it never blocks the
		// acceptance itself.
		if s.Vault != nil && s.Vault.Enabled() && len(client.ContactSealed) > 0 {
			if contact, err := s.Vault.Open(client.ContactSealed); err == nil {
				result.ClientContact = contact
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a request on behalf of its owning client. Only the owner may
// delete, and only while the request is still open; once accepted it must
// stay put for the writer relying on it.
func (s *RequestService) Delete(ctx context.Context, requestID, actorID string) error {
	req, err := repo.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	if req.ClientID != actorID {
		return ErrNotOwner
	}
	if req.Status != domain.RequestOpen {
		return ErrAlreadyAccepted
	}

	rows, err := repo.DeleteOwnedOpen(ctx, s.DB, requestID, actorID)
	if err != nil {
		return err
	}
	if rows == 0 {
		// Lost a race with an acceptance between the check and the delete.
		return ErrAlreadyAccepted
	}
	return nil
}

// ExpireStale deletes every still-open request older than the retention
// window and reports how many were removed. Running it again immediately
// deletes nothing.
func (s *RequestService) ExpireStale(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.RetentionWindow)
	return repo.DeleteExpiredOpen(ctx, s.DB, cutoff)
}

// ListingStats exposes the count/max-updated pair for the current open
// listing, used by the HTTP layer for weak ETags.
func (s *RequestService) ListingStats(ctx context.Context) (int64, *time.Time, error) {
	cutoff := time.Now().UTC().Add(-s.RetentionWindow)
	return repo.OpenRequestsStats(ctx, s.DB, cutoff)
}

// clipRunes truncates s to at most max runes.
func clipRunes(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}

// roundToUnit rounds n to the nearest positive multiple of unit (half up).
func roundToUnit(n, unit int) int {
	if unit <= 0 {
		return n
	}
	rounded := ((n + unit/2) / unit) * unit
	if rounded < unit {
		rounded = unit
	}
	return rounded
}
