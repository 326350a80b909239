// Assignment request HTTP handlers.
//
// Endpoints:
//   - POST   /requests             (create, idempotent via Idempotency-Key)
//   - GET    /requests             (open listing; guests get sample data)
//   - POST   /requests/{id}/accept (writer claims an open request)
//   - DELETE /requests/{id}        (owner removes an open request)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuswriters/go-market-backend/internal/http/middleware"
	"github.com/campuswriters/go-market-backend/internal/services"
	"github.com/campuswriters/go-market-backend/internal/utils"
)

// CreateRequestBody is the JSON payload for posting a new assignment request.
type CreateRequestBody struct {
	CourseName     string `json:"course_name" binding:"required" example:"Introduction to Economics"`
	CourseCode     string `json:"course_code" binding:"required" example:"ECON101"`
	AssignmentType string `json:"assignment_type" binding:"required" example:"essay"`
	NumPages       int    `json:"num_pages" binding:"required" example:"5"`
	// Deadline in RFC 3339 form, must lie in the future.
	Deadline      string `json:"deadline" binding:"required" example:"2026-09-15T23:59:00Z"`
	EstimatedCost int    `json:"estimated_cost" binding:"required" example:"250"`
}

// CreateRequest godoc
// @ID          createRequest
// @Summary     Post a new assignment request
// @Description Creates an open assignment request owned by the signed-in client.
// @Tags        Requests
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key header string false "Retry-safe creation key"
// @Param       body body handlers.CreateRequestBody true "Request payload"
// @Success     201 {object} domain.AssignmentRequest
// @Failure     400 {object} handlers.ErrorResponse "Validation failed"
// @Failure     401 {object} handlers.ErrorResponse "Sign in required"
// @Failure     403 {object} handlers.ErrorResponse "Not a client account"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /requests [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	deadline, err := time.Parse(time.RFC3339, body.Deadline)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "deadline must be RFC 3339")
		return
	}

	p := middleware.PrincipalFrom(c)
	key, _ := middleware.GetIdempotencyKey(c)

	r, replayed, err := h.requests.CreateIdempotent(c.Request.Context(), p.UserID, key, services.CreateRequestInput{
		CourseName:     body.CourseName,
		CourseCode:     body.CourseCode,
		AssignmentType: body.AssignmentType,
		NumPages:       body.NumPages,
		Deadline:       deadline,
		EstimatedCost:  body.EstimatedCost,
	})
	if err != nil {
		var fe *services.FieldError
		switch {
		case errors.As(err, &fe):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fe.Error())
		case errors.Is(err, services.ErrNotClient):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only client accounts can post requests")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		case errors.Is(err, services.ErrRequestNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "original request no longer exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create request")
		}
		return
	}

	if replayed {
		ok(c, http.StatusOK, r)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListRequestsResponse is one page of the open listing.
type ListRequestsResponse struct {
	Items   []services.OpenRequest `json:"items"`
	Total   int64                  `json:"total"`
	Page    int                    `json:"page"`
	PerPage int                    `json:"per_page"`
}

// ListRequests godoc
// @ID          listRequests
// @Summary     Browse open assignment requests
// @Description Returns open, unexpired requests newest first. Guests receive a fixed, clearly-labeled sample listing.
// @Tags        Requests
// @Produce     json
// @Param       q        query string false "Filter on course name or code"
// @Param       page     query int    false "Page number (1-based)"
// @Param       per_page query int    false "Page size (max 100)"
// @Success     200 {object} handlers.ListRequestsResponse
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /requests [get]
func (h *Handlers) ListRequests(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	if p.Guest() {
		samples := services.SampleOpenRequests()
		ok(c, http.StatusOK, ListRequestsResponse{
			Items:   samples,
			Total:   int64(len(samples)),
			Page:    1,
			PerPage: len(samples),
		})
		return
	}

	// Weak ETag from listing stats lets clients poll cheaply.
	if count, maxUpdated, err := h.requests.ListingStats(c.Request.Context()); err == nil {
		tag := listingETag(count, maxUpdated)
		c.Header("ETag", tag)
		if c.GetHeader("If-None-Match") == tag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	page := utils.AtoiDefault(c.Query("page"), 1)
	perPage := utils.AtoiDefault(c.Query("per_page"), services.DefaultPageSize)
	rows, total, err := h.requests.ListOpen(c.Request.Context(), c.Query("q"), page, perPage)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list requests")
		return
	}
	page, perPage = utils.NormalizePage(page, perPage, services.DefaultPageSize, services.MaxPageSize)
	ok(c, http.StatusOK, ListRequestsResponse{Items: rows, Total: total, Page: page, PerPage: perPage})
}

// AcceptRequest godoc
// @ID          acceptRequest
// @Summary     Accept an open assignment request
// @Description Claims the request for the signed-in writer. Exactly one writer can win; the response includes the client's contact channel.
// @Tags        Requests
// @Produce     json
// @Param       id path string true "Request ID (UUID)"
// @Success     200 {object} services.AcceptResult
// @Failure     400 {object} handlers.ErrorResponse "Writer inactive"
// @Failure     401 {object} handlers.ErrorResponse "Sign in required"
// @Failure     403 {object} handlers.ErrorResponse "Not a writer account"
// @Failure     404 {object} handlers.ErrorResponse "Request not found"
// @Failure     409 {object} handlers.ErrorResponse "Already accepted or client gone"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /requests/{id}/accept [post]
func (h *Handlers) AcceptRequest(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	res, err := h.requests.Accept(c.Request.Context(), c.Param("id"), p.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWriterInactive):
			middleware.ObserveAcceptance("rejected")
			fail(c, http.StatusBadRequest, ErrCodeWriterInactive, "inactive writers cannot accept requests")
		case errors.Is(err, services.ErrNotWriter):
			middleware.ObserveAcceptance("rejected")
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only writer accounts can accept requests")
		case errors.Is(err, services.ErrOwnRequest):
			middleware.ObserveAcceptance("rejected")
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot accept your own request")
		case errors.Is(err, services.ErrRequestNotFound), errors.Is(err, services.ErrUserNotFound):
			middleware.ObserveAcceptance("rejected")
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case errors.Is(err, services.ErrAlreadyAccepted):
			middleware.ObserveAcceptance("conflict")
			fail(c, http.StatusConflict, ErrCodeConflict, "request already accepted")
		case errors.Is(err, services.ErrClientGone):
			middleware.ObserveAcceptance("conflict")
			fail(c, http.StatusConflict, ErrCodeClientGone, "the posting client no longer exists")
		default:
			middleware.ObserveAcceptance("error")
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not accept request")
		}
		return
	}
	middleware.ObserveAcceptance("accepted")
	ok(c, http.StatusOK, res)
}

// DeleteRequest godoc
// @ID          deleteRequest
// @Summary     Delete an open assignment request
// @Description Removes a request the signed-in client owns, while it is still open.
// @Tags        Requests
// @Produce     json
// @Param       id path string true "Request ID (UUID)"
// @Success     200 {object} map[string]string
// @Failure     401 {object} handlers.ErrorResponse "Sign in required"
// @Failure     403 {object} handlers.ErrorResponse "Not the owner"
// @Failure     404 {object} handlers.ErrorResponse "Request not found"
// @Failure     409 {object} handlers.ErrorResponse "Already accepted"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /requests/{id} [delete]
func (h *Handlers) DeleteRequest(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	err := h.requests.Delete(c.Request.Context(), c.Param("id"), p.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case errors.Is(err, services.ErrNotOwner):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only the owner can delete a request")
		case errors.Is(err, services.ErrAlreadyAccepted):
			fail(c, http.StatusConflict, ErrCodeConflict, "accepted requests cannot be deleted")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete request")
		}
		return
	}
	ok(c, http.StatusOK, gin.H{"status": "deleted"})
}

// listingETag builds a weak validator from the listing's count and newest
// update time.
func listingETag(count int64, maxUpdated *time.Time) string {
	ts := int64(0)
	if maxUpdated != nil {
		ts = maxUpdated.UnixNano()
	}
	return fmt.Sprintf(`W/"open-%d-%d"`, count, ts)
}
