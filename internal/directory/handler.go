package directory

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

type DoctorSuccessResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Doctor  *Doctor `json:"doctor,omitempty"`
}

// RegisterDoctor handles POST /hospital/doctors for the signed-in hospital.
func (h *Handler) RegisterDoctor(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req RegisterDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	doctor, err := h.service.RegisterDoctor(r.Context(), identity.ID, req)
	if err != nil {
		var pe *auth.ProviderError
		switch {
		case errors.Is(err, ErrInvalidRequest):
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, ErrHospitalNotFound):
			respondError(w, http.StatusNotFound, "hospital_not_found", "Hospital profile not found")
		case errors.Is(err, ErrDuplicateDoctor):
			respondError(w, http.StatusConflict, "duplicate_doctor", "A doctor with this email already exists")
		case errors.As(err, &pe):
			respondError(w, http.StatusUnprocessableEntity, "registration_failed", pe.Message)
		default:
			respondError(w, http.StatusInternalServerError, "registration_failed", "Failed to register doctor")
		}
		return
	}

	respondJSON(w, http.StatusCreated, DoctorSuccessResponse{
		Success: true,
		Message: "Doctor registered successfully",
		Doctor:  doctor,
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
