package handlers

import (
	"github.com/campuswriters/go-market-backend/internal/services"
)

// Handlers bundles the service dependencies used by the HTTP endpoints.
type Handlers struct {
	requests *services.RequestService
	ratings  *services.RatingService
	profiles *services.ProfileService
}

// New constructs the handler set from its services.
func New(requests *services.RequestService, ratings *services.RatingService, profiles *services.ProfileService) *Handlers {
	return &Handlers{requests: requests, ratings: ratings, profiles: profiles}
}
