package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuswriters/go-market-backend/internal/domain"
	"github.com/campuswriters/go-market-backend/internal/repo"
)

const maxCommentLen = 1000

// RatingService records ratings between the two parties of an assignment and
// keeps the rated user's cached aggregates in step with the underlying rows.
type RatingService struct {
	DB *gorm.DB
}

// NewRatingService constructs a RatingService.
func NewRatingService(db *gorm.DB) *RatingService {
	return &RatingService{DB: db}
}

// SubmitRatingInput carries one rating submission.
type SubmitRatingInput struct {
	RequestID string
	RatedID   string
	Score     int
	Comment   string
}

// Submit records rater's score for the counterparty of an assignment. A rater
// may only rate the other participant of an assignment they were part of, and
// re-submitting for the same request overwrites the earlier score rather than
// adding a second row.
//
// In one transaction it upserts the rating, recomputes the rated user's
// average and count from the rating rows, stores the fresh aggregates, and
// marks the assignment (and its request) completed. Either all of it lands or
// none of it does, so the cached aggregates can never drift from the rows.
func (s *RatingService) Submit(ctx context.Context, raterID string, in SubmitRatingInput) (*domain.Rating, error) {
	tr := otel.Tracer("services/RatingService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("request.id", in.RequestID),
			attribute.String("rated.id", in.RatedID),
		),
	)
	defer span.End()

	if in.RequestID == "" {
		return nil, fieldErr("request_id", "required")
	}
	if in.RatedID == "" {
		return nil, fieldErr("rated_id", "required")
	}
	if in.Score < 1 || in.Score > 5 {
		return nil, fieldErr("score", "must be between 1 and 5")
	}
	if raterID == in.RatedID {
		return nil, ErrSelfRating
	}
	comment := clipRunes(strings.TrimSpace(in.Comment), maxCommentLen)

	var out *domain.Rating
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := repo.GetAssignmentByRequest(ctx, tx, in.RequestID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotParticipant
			}
			return err
		}
		// Both parties must be exactly the assignment's writer and client.
		pair := map[string]string{a.WriterID: a.ClientID, a.ClientID: a.WriterID}
		if counterpart, ok := pair[raterID]; !ok || counterpart != in.RatedID {
			return ErrNotParticipant
		}

		r, err := repo.UpsertRating(ctx, tx, raterID, in.RatedID, in.RequestID, in.Score, comment)
		if err != nil {
			return err
		}

		avg, count, err := repo.AggregateRatings(ctx, tx, in.RatedID)
		if err != nil {
			return err
		}
		if err := repo.SetUserAggregates(ctx, tx, in.RatedID, roundRating(avg), count); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := repo.CompleteAssignment(ctx, tx, in.RequestID, now); err != nil {
			return err
		}
		if _, err := repo.MarkCompleted(ctx, tx, in.RequestID); err != nil {
			return err
		}

		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListFor returns every rating received by the given user, newest first,
// alongside the cached aggregates from the user row.
func (s *RatingService) ListFor(ctx context.Context, userID string) (*domain.PublicProfile, []domain.Rating, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	ratings, err := repo.ListRatingsForUser(ctx, s.DB, userID)
	if err != nil {
		return nil, nil, err
	}
	p := u.Public()
	return &p, ratings, nil
}

// roundRating rounds a raw average to one decimal place, the precision the
// cached column stores.
func roundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}
