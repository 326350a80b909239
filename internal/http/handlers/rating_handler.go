// Rating HTTP handlers.
//
// Endpoints:
//   - POST /requests/{id}/rating (rate the counterparty of an assignment)
//   - GET  /users/{id}/ratings   (public rating history and aggregates)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuswriters/go-market-backend/internal/http/middleware"
	"github.com/campuswriters/go-market-backend/internal/services"
)

// SubmitRatingBody is the JSON payload for rating the other party of an
// assignment. Score is a 1..5 star value.
type SubmitRatingBody struct {
	RatedID string `json:"rated_id" binding:"required" example:"fa4dfbe0-c3bf-47bd-b32f-d7de221cf43b"`
	Score   int    `json:"score" binding:"required,min=1,max=5" example:"4"`
	Comment string `json:"comment,omitempty" example:"Delivered early, great communication"`
}

// SubmitRating godoc
// @ID          submitRating
// @Summary     Rate the counterparty of an assignment
// @Description Records a 1-5 score for the other participant. Re-submitting overwrites the earlier score and marks the assignment completed.
// @Tags        Ratings
// @Accept      json
// @Produce     json
// @Param       id   path string true "Request ID (UUID)"
// @Param       body body handlers.SubmitRatingBody true "Rating payload"
// @Success     201 {object} domain.Rating
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Failure     401 {object} handlers.ErrorResponse "Sign in required"
// @Failure     403 {object} handlers.ErrorResponse "Not a participant"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /requests/{id}/rating [post]
func (h *Handlers) SubmitRating(c *gin.Context) {
	var body SubmitRatingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "score must be between 1 and 5")
		return
	}

	p := middleware.PrincipalFrom(c)
	r, err := h.ratings.Submit(c.Request.Context(), p.UserID, services.SubmitRatingInput{
		RequestID: c.Param("id"),
		RatedID:   body.RatedID,
		Score:     body.Score,
		Comment:   body.Comment,
	})
	if err != nil {
		switch {
		case services.IsValidation(err):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrSelfRating), errors.Is(err, services.ErrNotParticipant):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "you can only rate the other party of your own assignment")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not record rating")
		}
		return
	}
	ok(c, http.StatusCreated, r)
}

// UserRatingsResponse is the public rating history of one user.
type UserRatingsResponse struct {
	Profile any `json:"profile"`
	Ratings any `json:"ratings"`
}

// ListUserRatings godoc
// @ID          listUserRatings
// @Summary     List ratings received by a user
// @Description Returns the user's public profile with cached aggregates plus every rating they received, newest first.
// @Tags        Ratings
// @Produce     json
// @Param       id path string true "User ID (UUID)"
// @Success     200 {object} handlers.UserRatingsResponse
// @Failure     404 {object} handlers.ErrorResponse "User not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /users/{id}/ratings [get]
func (h *Handlers) ListUserRatings(c *gin.Context) {
	profile, ratings, err := h.ratings.ListFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list ratings")
		return
	}
	ok(c, http.StatusOK, UserRatingsResponse{Profile: profile, Ratings: ratings})
}
