package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/segyhp/lending-engine/internal/observability"
	"github.com/segyhp/lending-engine/pkg/response"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Offers   *OfferHandler
	Borrow   *BorrowHandler
	Accounts *AccountHandler
	Health   *HealthHandler
}

// NewRouter mounts the API under /api/v1 plus health and metrics endpoints
func NewRouter(h Handlers, gatherer prometheus.Gatherer, metrics *observability.Metrics, logger zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.CORSMiddleware, requestMiddleware(metrics, logger))

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/offers", h.Offers.SubmitOffer).Methods(http.MethodPost)
	api.HandleFunc("/offers/{key}", h.Offers.GetOffer).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{token}/offers", h.Offers.ListTokenOffers).Methods(http.MethodGet)
	api.HandleFunc("/owners/{owner}/offers", h.Offers.ListOwnerOffers).Methods(http.MethodGet)
	api.HandleFunc("/owners/{owner}/next-offer-id", h.Offers.NextOfferID).Methods(http.MethodGet)

	api.HandleFunc("/quotes", h.Borrow.Quote).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.Borrow.ConfirmLoan).Methods(http.MethodPost)

	api.HandleFunc("/accounts/{account}/health", h.Accounts.Health).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account}/deposits", h.Accounts.Deposits).Methods(http.MethodGet)

	return router
}

// requestMiddleware logs each request and records it by route template
func requestMiddleware(metrics *observability.Metrics, logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := response.NewStatusRecorder(w)

			next.ServeHTTP(recorder, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			elapsed := time.Since(start)

			if metrics != nil {
				metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(recorder.StatusCode)).Inc()
				metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
			}
			logger.Info().
				Str("method", r.Method).
				Str("route", route).
				Int("status", recorder.StatusCode).
				Dur("duration", elapsed).
				Msg("http request")
		})
	}
}
