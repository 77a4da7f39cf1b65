package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// DefaultDeviceID is used when the client does not send X-Device-ID.
const DefaultDeviceID = "default"

type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// DeviceID extracts the device identifier from the request.
func DeviceID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Device-ID")); id != "" {
		return id
	}
	return DefaultDeviceID
}

// HandleLogin handles POST /v1/auth/login
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	resp, err := h.service.Login(r.Context(), DeviceID(r), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeErrorResponse(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
			return
		}
		writeErrorResponse(w, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// HandleLogout handles POST /v1/auth/logout
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), DeviceID(r)); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.service.Current())
}

// HandleSession handles GET /v1/auth/session
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Resolve(r.Context(), DeviceID(r))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(state)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
