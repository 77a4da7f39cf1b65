package refdata

import (
	"encoding/json"
	"net/http"

	"github.com/fdg312/stay-hub/internal/session"
)

// HandleNationalities handles GET /v1/refdata/nationalities
func HandleNationalities(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := service.Nationalities(r.Context(), session.DeviceID(r))
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "retry_later", err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"nationalities": items})
	}
}

// HandleRoomTypes handles GET /v1/refdata/room-types
func HandleRoomTypes(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := service.RoomTypes(r.Context(), session.DeviceID(r))
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "retry_later", err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"room_types": items})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
