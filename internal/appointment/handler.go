package appointment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

type AppointmentSuccessResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Appointment *Appointment `json:"appointment,omitempty"`
}

// UpdateStatus handles PATCH /appointments/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "Appointment ID is required")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	a, err := h.service.UpdateStatus(r.Context(), identity, id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, ErrAppointmentNotFound):
			respondError(w, http.StatusNotFound, "not_found", "Appointment not found")
		case errors.Is(err, ErrForbidden):
			respondError(w, http.StatusForbidden, "forbidden", err.Error())
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrStatusConflict):
			respondError(w, http.StatusConflict, "invalid_transition", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "update_failed", "Failed to update appointment")
		}
		return
	}

	respondJSON(w, http.StatusOK, AppointmentSuccessResponse{
		Success:     true,
		Message:     "Appointment updated successfully",
		Appointment: a,
	})
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
