package jobs

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/campuswriters/go-market-backend/internal/services"
)

var staleExpired = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "marketplace_requests_expired_total",
		Help: "Open requests removed by the expiration sweeper.",
	},
)

func init() {
	prometheus.MustRegister(staleExpired)
}

// ExpireStaleJob removes open requests that outlived the retention window.
// Deleting them keeps the listing honest: a request nobody accepted in a week
// is noise, and the client can always repost.
type ExpireStaleJob struct {
	Requests *services.RequestService
	Log      zerolog.Logger
}

// Name implements Job.
func (j *ExpireStaleJob) Name() string { return "expire_stale_requests" }

// Run deletes stale open requests and logs how many were swept. Assigned and
// completed requests are never touched.
func (j *ExpireStaleJob) Run(ctx context.Context) error {
	n, err := j.Requests.ExpireStale(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		staleExpired.Add(float64(n))
		j.Log.Info().Int64("deleted", n).Msg("expired stale requests")
	}
	return nil
}
