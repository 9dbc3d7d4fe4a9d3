package session

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/flash"
)

type Handler struct {
	manager *Manager
	// resetURL is where password recovery emails link to.
	resetURL string
}

func NewHandler(manager *Manager, publicURL string) *Handler {
	return &Handler{
		manager:  manager,
		resetURL: strings.TrimSuffix(publicURL, "/") + "/reset-password",
	}
}

type loginRequest struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

type LoginForm struct {
	Roles  []auth.Role `json:"roles"`
	Return string      `json:"return,omitempty"`
}

type SessionResponse struct {
	User    *auth.Identity `json:"user"`
	Loading bool           `json:"loading"`
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	s, ok := FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusInternalServerError, "session_unavailable", "Session is not available")
	}
	return s, ok
}

// LoginForm handles GET /login and GET /register.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, LoginForm{Roles: auth.AllRoles, Return: auth.ReturnLocation(r)})
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	role, _ := auth.ParseRole(string(req.Role))

	rec := flash.NewRecorder()
	ok = s.Login(r.Context(), rec, req.Email, req.Password, role)
	if ok {
		h.manager.SignedIn(r.Context(), w, s)
	}
	flash.Write(w, rec, ok, nil)
}

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if role, err := auth.ParseRole(string(req.Role)); err == nil {
		req.Role = role
	}

	rec := flash.NewRecorder()
	ok = s.Register(r.Context(), rec, req)
	if ok {
		if id, _ := s.Current(); id != nil {
			h.manager.SignedIn(r.Context(), w, s)
		}
	}
	flash.Write(w, rec, ok, nil)
}

// Logout handles POST /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	rec := flash.NewRecorder()
	s.Logout(r.Context(), rec)
	h.manager.Destroy(r.Context(), s)
	h.manager.ClearCookie(w)
	flash.Write(w, rec, true, nil)
}

// ForgotPassword handles POST /forgot-password.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	rec := flash.NewRecorder()
	ok = s.RequestPasswordReset(r.Context(), rec, req.Email, h.resetURL)
	flash.Write(w, rec, ok, nil)
}

// ResetPassword handles POST /reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	var req struct {
		AccessToken string `json:"access_token"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	rec := flash.NewRecorder()
	ok = s.ResetPassword(r.Context(), rec, req.AccessToken, req.Password)
	flash.Write(w, rec, ok, nil)
}

// Current handles GET /session.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	user, loading := s.Current()
	respondJSON(w, http.StatusOK, SessionResponse{User: user, Loading: loading})
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
