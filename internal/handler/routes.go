package handler

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/deposit-service/internal/config"
	"github.com/Dan9191/deposit-service/internal/metrics"
	"github.com/Dan9191/deposit-service/internal/middleware"
)

const sessionIDPattern = "{id:[A-Za-z0-9_-]{1,64}}"

// NewRouter wires every route. m may be nil, in which case /metrics is not served.
func NewRouter(h *Handler, cfg *config.Config, m *metrics.Metrics, log *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(chimw.RequestID, middleware.RequestLogger(log), chimw.Recoverer)

	r.HandleFunc("/healthz", h.Health).Methods("GET")
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/key-rate", h.KeyRate).Methods("GET")

	// Public routes, attributed to the caller when a token is sent
	public := api.NewRoute().Subrouter()
	public.Use(middleware.OptionalAuthMiddleware(cfg, log))
	public.HandleFunc("/deposits/calculate", h.Calculate).Methods("POST")
	public.HandleFunc("/sessions/"+sessionIDPattern+"/submissions", h.Submit).Methods("POST")
	public.HandleFunc("/sessions/"+sessionIDPattern, h.GetSession).Methods("GET")

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg, log))
	protected.HandleFunc("/deposits/history", h.History).Methods("GET")
	protected.HandleFunc("/deposits/email", h.SendSummary).Methods("POST")

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})(r)
}
