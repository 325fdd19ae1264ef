package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/deposit-service/internal/calculator"
	"github.com/Dan9191/deposit-service/internal/middleware"
	"github.com/Dan9191/deposit-service/internal/models"
	"github.com/Dan9191/deposit-service/internal/service"
)

const maxBodyBytes = 1 << 20

// Handler serves the deposit API
type Handler struct {
	svc     *service.Service
	keyRate *service.KeyRateService
	log     *logrus.Logger
}

func NewHandler(svc *service.Service, keyRate *service.KeyRateService, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, keyRate: keyRate, log: log}
}

// Calculate returns the deposit quote with its explanation.
// POST /api/v1/deposits/calculate
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !h.decode(w, r, &req) {
		return
	}

	quote, err := h.svc.Calculate(r.Context(), owner(r), req.toParams())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// Submit starts a calculation for a form session and returns its pending view.
// Sessions are bound to the caller that created them.
// POST /api/v1/sessions/{id}/submissions
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.svc.Submit(r.Context(), owner(r), mux.Vars(r)["id"], req.toParams())
	if errors.Is(err, service.ErrSessionOwned) {
		writeError(w, http.StatusForbidden, "session belongs to another user", nil)
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

// GetSession returns the latest view of a form session.
// GET /api/v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, ok := h.svc.Session(owner(r), mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// History lists the caller's calculations.
// GET /api/v1/deposits/history?limit=N
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer", err)
			return
		}
		limit = parsed
	}

	calcs, err := h.svc.History(r.Context(), owner(r), limit)
	if err != nil {
		h.log.Errorf("Failed to list calculations: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load history", nil)
		return
	}
	if calcs == nil {
		calcs = []models.Calculation{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Calculations: calcs})
}

// SendSummary calculates the deposit and mails the summary.
// POST /api/v1/deposits/email
func (h *Handler) SendSummary(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	quote, err := h.svc.SendSummary(r.Context(), owner(r), req.To, req.Params.toParams())
	switch {
	case errors.Is(err, service.ErrInvalidRecipient):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "invalid recipient",
			Fields: []calculator.FieldError{{Field: "to", Message: "recipient must be a valid email address"}},
		})
	case errors.Is(err, service.ErrNotificationsDisabled):
		writeError(w, http.StatusServiceUnavailable, "email summaries are not available", nil)
	case errors.Is(err, service.ErrNotificationFailed):
		writeError(w, http.StatusBadGateway, "failed to send email", nil)
	case err != nil:
		h.writeServiceError(w, err)
	default:
		writeJSON(w, http.StatusOK, EmailResponse{Status: "sent", Quote: quote})
	}
}

// KeyRate returns the current central bank key rate.
// GET /api/v1/key-rate
func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.keyRate.Current(r.Context())
	if err != nil {
		h.log.Errorf("Failed to get key rate: %v", err)
		writeError(w, http.StatusBadGateway, "failed to get key rate", err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verrs calculator.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  calculator.ErrInvalidParameters.Error(),
			Fields: verrs,
		})
		return
	}
	h.log.Errorf("Request failed: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error", nil)
}

func owner(r *http.Request) string {
	if o, ok := middleware.OwnerFromContext(r.Context()); ok {
		return o
	}
	return service.AnonymousOwner
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
