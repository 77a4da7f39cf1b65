package devicestate

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fdg312/stay-hub/internal/session"
	"github.com/fdg312/stay-hub/internal/storage"
)

// maxValueBytes caps one stored value. Drafts and cached lists are small;
// anything bigger is a client bug.
const maxValueBytes = 256 * 1024

type Handlers struct {
	states storage.DeviceStateStorage
}

func NewHandlers(states storage.DeviceStateStorage) *Handlers {
	return &Handlers{states: states}
}

// HandleGet handles GET /v1/state/{key}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	value, err := h.states.Get(r.Context(), session.DeviceID(r), key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(value)
}

// HandlePut handles PUT /v1/state/{key}. The body is the JSON value as-is.
func (h *Handlers) HandlePut(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxValueBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unreadable body")
		return
	}
	if len(body) > maxValueBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "value exceeds size limit")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid_json", "value must be valid JSON")
		return
	}

	if err := h.states.Set(r.Context(), session.DeviceID(r), key, body); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/state/{key}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	if err := h.states.Delete(r.Context(), session.DeviceID(r), key); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /v1/state
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.states.List(r.Context(), session.DeviceID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Key)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"keys": keys})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
