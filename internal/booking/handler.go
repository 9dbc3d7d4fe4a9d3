package booking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/flash"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type selectRequest struct {
	HospitalID string `json:"hospital_id"`
	Specialty  string `json:"specialty"`
	DoctorID   string `json:"doctor_id"`
	Date       string `json:"date"`
	TimeSlot   string `json:"time_slot"`
	Reason     string `json:"reason"`
}

// RegisterRoutes mounts the wizard under /book-appointment on r, which must
// already be gated to patients.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/book-appointment", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/book-appointment/hospital", h.change(func(req selectRequest) func(context.Context, *Draft) error {
		return h.service.SelectHospital(req.HospitalID)
	})).Methods(http.MethodPost)
	r.HandleFunc("/book-appointment/specialty", h.change(func(req selectRequest) func(context.Context, *Draft) error {
		return h.service.SelectSpecialty(req.Specialty)
	})).Methods(http.MethodPost)
	r.HandleFunc("/book-appointment/doctor", h.change(func(req selectRequest) func(context.Context, *Draft) error {
		return h.service.SelectDoctor(req.DoctorID)
	})).Methods(http.MethodPost)
	r.HandleFunc("/book-appointment/date", h.change(func(req selectRequest) func(context.Context, *Draft) error {
		return h.service.SelectDate(req.Date)
	})).Methods(http.MethodPost)
	r.HandleFunc("/book-appointment/time", h.change(func(req selectRequest) func(context.Context, *Draft) error {
		return h.service.SelectTimeSlot(req.TimeSlot)
	})).Methods(http.MethodPost)
	r.HandleFunc("/book-appointment/next", h.change(func(selectRequest) func(context.Context, *Draft) error {
		return h.service.Next()
	})).Methods(http.MethodPost)
	r.HandleFunc("/book-appointment/back", h.change(func(selectRequest) func(context.Context, *Draft) error {
		return h.service.Back()
	})).Methods(http.MethodPost)
	r.HandleFunc("/book-appointment/submit", h.Submit).Methods(http.MethodPost)
}

// tokenSession stands in for the browser session of token-only callers.
const tokenSession = "token"

// sessionOf returns the browser session that scopes the caller's draft.
func sessionOf(r *http.Request) string {
	if id := auth.SessionIDFromContext(r.Context()); id != "" {
		return id
	}
	return tokenSession
}

// Get handles GET /book-appointment. Opening the wizard starts a new draft;
// ?resume=true returns the current one instead.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}
	load := h.service.Start
	if resume, _ := strconv.ParseBool(r.URL.Query().Get("resume")); resume {
		load = h.service.View
	}
	v, err := load(r.Context(), sessionOf(r), identity)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to load booking")
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *Handler) change(build func(selectRequest) func(context.Context, *Draft) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
			return
		}

		var req selectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}

		v, err := h.service.Update(r.Context(), sessionOf(r), identity, build(req))
		if err != nil {
			switch {
			case errors.Is(err, ErrStepIncomplete), errors.Is(err, ErrLastStep), errors.Is(err, ErrWrongStep):
				respondError(w, http.StatusConflict, "step_incomplete", err.Error())
			case errors.Is(err, ErrInvalidSlot), errors.Is(err, ErrInvalidDate),
				errors.Is(err, ErrDateNotBookable), errors.Is(err, ErrInvalidSelection):
				respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			default:
				respondError(w, http.StatusInternalServerError, "update_failed", "Failed to update booking")
			}
			return
		}
		respondJSON(w, http.StatusOK, v)
	}
}

// Submit handles POST /book-appointment/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	rec := flash.NewRecorder()
	ok = h.service.Submit(r.Context(), rec, sessionOf(r), identity, req.Reason)
	flash.Write(w, rec, ok, nil)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondJSON(w, statusCode, map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
