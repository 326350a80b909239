// Profile HTTP handlers.
//
// Endpoints:
//   - GET   /users/{id}        (public profile + portfolio)
//   - PATCH /me                (edit own profile)
//   - PUT   /me/status         (writer availability)
//   - PUT   /me/contact        (store the sealed contact channel)
//   - PUT   /me/portfolio      (writer portfolio upsert)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuswriters/go-market-backend/internal/http/middleware"
	"github.com/campuswriters/go-market-backend/internal/services"
)

// GetUser godoc
// @ID          getUser
// @Summary     Fetch a public profile
// @Description Returns the public profile and, for writers, the portfolio. Contact details are never included.
// @Tags        Profiles
// @Produce     json
// @Param       id path string true "User ID (UUID)"
// @Success     200 {object} map[string]any
// @Failure     404 {object} handlers.ErrorResponse "User not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	profile, portfolio, err := h.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load profile")
		return
	}
	body := gin.H{"profile": profile}
	if portfolio != nil {
		body["portfolio"] = portfolio
	}
	ok(c, http.StatusOK, body)
}

// UpdateProfileBody carries the editable profile fields; omitted fields are
// left untouched.
type UpdateProfileBody struct {
	Name    *string `json:"name,omitempty" example:"Ada Lovelace"`
	Picture *string `json:"picture,omitempty" example:"https://cdn.example.com/ada.png"`
}

// UpdateMe godoc
// @ID          updateMe
// @Summary     Edit own profile
// @Tags        Profiles
// @Accept      json
// @Produce     json
// @Param       body body handlers.UpdateProfileBody true "Fields to update"
// @Success     204 {string} string "No Content"
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Failure     401 {object} handlers.ErrorResponse "Sign in required"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /me [patch]
func (h *Handlers) UpdateMe(c *gin.Context) {
	var body UpdateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	p := middleware.PrincipalFrom(c)
	if err := h.profiles.UpdateProfile(c.Request.Context(), p.UserID, services.UpdateProfileInput{
		Name:    body.Name,
		Picture: body.Picture,
	}); err != nil {
		if services.IsValidation(err) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update profile")
		return
	}
	noContent(c)
}

// WriterStatusBody selects the writer's availability.
type WriterStatusBody struct {
	Status string `json:"status" binding:"required" example:"busy"`
}

// SetWriterStatus godoc
// @ID          setWriterStatus
// @Summary     Set writer availability
// @Description Switches the signed-in writer between active, busy, and inactive. Inactive writers cannot accept requests.
// @Tags        Profiles
// @Accept      json
// @Produce     json
// @Param       body body handlers.WriterStatusBody true "New status"
// @Success     204 {string} string "No Content"
// @Failure     400 {object} handlers.ErrorResponse "Invalid status"
// @Failure     401 {object} handlers.ErrorResponse "Sign in required"
// @Failure     404 {object} handlers.ErrorResponse "Not a writer account"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /me/status [put]
func (h *Handlers) SetWriterStatus(c *gin.Context) {
	var body WriterStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}
	p := middleware.PrincipalFrom(c)
	if err := h.profiles.SetWriterStatus(c.Request.Context(), p.UserID, body.Status); err != nil {
		switch {
		case services.IsValidation(err):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no writer account for this user")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update status")
		}
		return
	}
	noContent(c)
}

// ContactBody carries the contact channel to seal and store.
type ContactBody struct {
	Contact string `json:"contact" binding:"required" example:"+14155550123"`
}

// SetContact godoc
// @ID          setContact
// @Summary     Store own contact channel
// @Description Validates and encrypts the phone number at rest. It is only ever disclosed to the writer who accepts one of this client's requests.
// @Tags        Profiles
// @Accept      json
// @Produce     json
// @Param       body body handlers.ContactBody true "Contact payload"
// @Success     204 {string} string "No Content"
// @Failure     400 {object} handlers.ErrorResponse "Invalid contact"
// @Failure     401 {object} handlers.ErrorResponse "Sign in required"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /me/contact [put]
func (h *Handlers) SetContact(c *gin.Context) {
	var body ContactBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "contact is required")
		return
	}
	p := middleware.PrincipalFrom(c)
	if err := h.profiles.SetContact(c.Request.Context(), p.UserID, body.Contact); err != nil {
		switch {
		case services.IsValidation(err):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not store contact")
		}
		return
	}
	noContent(c)
}

// PortfolioBody carries a writer's sample work entry.
type PortfolioBody struct {
	SampleURL   string `json:"sample_url" binding:"required" example:"https://samples.example.com/essay.pdf"`
	Description string `json:"description,omitempty" example:"Essays and lab reports, STEM focus"`
}

// UpsertPortfolio godoc
// @ID          upsertPortfolio
// @Summary     Create or replace own portfolio
// @Tags        Profiles
// @Accept      json
// @Produce     json
// @Param       body body handlers.PortfolioBody true "Portfolio payload"
// @Success     200 {object} domain.WriterPortfolio
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Failure     401 {object} handlers.ErrorResponse "Sign in required"
// @Failure     403 {object} handlers.ErrorResponse "Not a writer account"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /me/portfolio [put]
func (h *Handlers) UpsertPortfolio(c *gin.Context) {
	var body PortfolioBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sample_url is required")
		return
	}
	p := middleware.PrincipalFrom(c)
	pf, err := h.profiles.UpsertPortfolio(c.Request.Context(), p.UserID, body.SampleURL, body.Description)
	if err != nil {
		switch {
		case services.IsValidation(err):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrNotWriter):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "only writer accounts keep a portfolio")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not save portfolio")
		}
		return
	}
	ok(c, http.StatusOK, pf)
}
