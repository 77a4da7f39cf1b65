package checkins

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fdg312/stay-hub/internal/upstream"
)

// HandleList handles GET /v1/checkins?page=&page_size=&mode=&date=
func HandleList(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values := r.URL.Query()
		page, _ := strconv.Atoi(values.Get("page"))
		pageSize, _ := strconv.Atoi(values.Get("page_size"))
		mode := values.Get("mode")
		if mode == "" {
			mode = upstream.ModeDaily
		}

		result, err := service.List(r.Context(), page, pageSize, mode, values.Get("date"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(result)
	}
}

// HandleKPIs handles GET /v1/checkins/kpis?mode=&date=
func HandleKPIs(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := r.URL.Query().Get("mode")
		if mode == "" {
			mode = upstream.ModeDaily
		}

		kpis, err := service.KPIs(r.Context(), mode, r.URL.Query().Get("date"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(kpis)
	}
}

// HandleCreate handles POST /v1/checkins
func HandleCreate(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}

		checkin, err := service.Create(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(checkin)
	}
}

// HandleUpdate handles PUT /v1/checkins/{id}
func HandleUpdate(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "invalid checkin id")
			return
		}

		var req UpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}

		checkin, err := service.Update(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(checkin)
	}
}

// HandleDelete handles DELETE /v1/checkins/{id}
func HandleDelete(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "invalid checkin id")
			return
		}

		if err := service.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleDeleteNationality handles DELETE /v1/guestlogs/{logId}/nationalities/{nationId}
func HandleDeleteNationality(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logID, err1 := strconv.ParseInt(r.PathValue("logId"), 10, 64)
		nationID, err2 := strconv.ParseInt(r.PathValue("nationId"), 10, 64)
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "invalid path ids")
			return
		}

		if err := service.DeleteNationality(r.Context(), logID, nationID); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidMode), errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, upstream.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "upstream rejected the session")
	case errors.Is(err, upstream.ErrUnavailable):
		writeError(w, http.StatusNotFound, "unavailable", err.Error())
	case errors.Is(err, upstream.ErrRetryLater):
		writeError(w, http.StatusServiceUnavailable, "retry_later", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
