package medication

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

type MedicineSuccessResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Medicine *Medicine `json:"medicine,omitempty"`
}

// Prescribe handles POST /doctor/medicines.
func (h *Handler) Prescribe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req PrescribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	m, err := h.service.Prescribe(r.Context(), identity.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, ErrPatientNotFound):
			respondError(w, http.StatusNotFound, "patient_not_found", "Patient not found")
		default:
			respondError(w, http.StatusInternalServerError, "prescribe_failed", "Failed to prescribe medicine")
		}
		return
	}

	respondJSON(w, http.StatusCreated, MedicineSuccessResponse{
		Success:  true,
		Message:  "Medicine prescribed successfully",
		Medicine: m,
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
