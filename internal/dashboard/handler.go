package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/directory"
	"github.com/WailSalutem-Health-Care/care-portal/internal/pagination"
	"github.com/WailSalutem-Health-Care/care-portal/internal/profile"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Patient handles GET /patient.
func (h *Handler) Patient(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	d, err := h.service.Patient(r.Context(), user)
	h.respond(w, r, d, err)
}

// Doctor handles GET /doctor?page=&limit=.
func (h *Handler) Doctor(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	d, err := h.service.Doctor(r.Context(), user, pagination.ParseParams(r))
	h.respond(w, r, d, err)
}

// Hospital handles GET /hospital.
func (h *Handler) Hospital(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	d, err := h.service.Hospital(r.Context(), user)
	h.respond(w, r, d, err)
}

// Caretaker handles GET /caretaker.
func (h *Handler) Caretaker(w http.ResponseWriter, r *http.Request) {
	user, ok := identity(w, r)
	if !ok {
		return
	}
	d, err := h.service.Caretaker(r.Context(), user)
	h.respond(w, r, d, err)
}

func identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	user, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
	}
	return user, ok
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, v interface{}, err error) {
	if err == nil {
		respondJSON(w, http.StatusOK, v)
		return
	}
	switch {
	case errors.Is(err, directory.ErrHospitalNotFound), errors.Is(err, profile.ErrCaretakerNotFound):
		respondError(w, http.StatusNotFound, "profile_not_found", "Profile details not found")
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to load dashboard")
		respondError(w, http.StatusInternalServerError, "fetch_failed", "Failed to load dashboard")
	}
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
