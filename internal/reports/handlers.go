package reports

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fdg312/stay-hub/internal/upstream"
	"github.com/google/uuid"
)

type Handlers struct {
	service *Service
	exports *ExportService
}

func NewHandlers(service *Service, exports *ExportService) *Handlers {
	return &Handlers{service: service, exports: exports}
}

// HandleGetReports handles GET /v1/reports
func (h *Handlers) HandleGetReports(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	page, err := h.service.RefreshPage(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleGetCounts handles GET /v1/reports/counts
func (h *Handlers) HandleGetCounts(w http.ResponseWriter, r *http.Request) {
	establishmentID, err := queryInt64(r, "establishment_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "establishment_id is required")
		return
	}
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))

	counts, err := h.service.FetchAggregateCounts(r.Context(), establishmentID, year)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

// HandleGetSummary handles GET /v1/reports/summary
func (h *Handlers) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	establishmentID, err := queryInt64(r, "establishment_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "establishment_id is required")
		return
	}

	summary, err := h.service.FetchEstablishmentSummary(r.Context(), establishmentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// HandleCreateExport handles POST /v1/reports/export
func (h *Handlers) HandleCreateExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	export, err := h.exports.CreateExport(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "invalid_period", err.Error())
			return
		}
		h.writeServiceError(w, err)
		return
	}

	baseURL := requestBaseURL(r)
	if url, err := h.exports.DownloadURL(r.Context(), export.ID, baseURL); err == nil {
		export.DownloadURL = url
	}

	writeJSON(w, http.StatusCreated, export)
}

// HandleListExports handles GET /v1/reports/exports
func (h *Handlers) HandleListExports(w http.ResponseWriter, r *http.Request) {
	establishmentID, err := queryInt64(r, "establishment_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "establishment_id is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	exports, err := h.exports.ListExports(r.Context(), establishmentID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"exports": exports})
}

// HandleGetExport handles GET /v1/reports/export/{id}
func (h *Handlers) HandleGetExport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid export ID")
		return
	}

	export, err := h.exports.GetExport(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Export not found")
		return
	}

	if url, err := h.exports.DownloadURL(r.Context(), id, requestBaseURL(r)); err == nil {
		export.DownloadURL = url
	}

	writeJSON(w, http.StatusOK, export)
}

// HandleDeleteExport handles DELETE /v1/reports/export/{id}
func (h *Handlers) HandleDeleteExport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid export ID")
		return
	}

	if err := h.exports.DeleteExport(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Export not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDownloadExport handles GET /v1/reports/export/{id}/download. Local
// mode serves the bytes directly; S3 mode redirects to a presigned URL.
func (h *Handlers) HandleDownloadExport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid export ID")
		return
	}

	if h.exports.LocalMode() {
		data, err := h.exports.Data(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found", "Export not found")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	url, err := h.exports.DownloadURL(r.Context(), id, requestBaseURL(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Export not found")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, upstream.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "upstream rejected the session")
	case errors.Is(err, ErrEstablishmentUnavailable):
		writeError(w, http.StatusNotFound, "establishment_unavailable", ErrEstablishmentUnavailable.Error())
	case errors.Is(err, ErrRetryLater):
		writeError(w, http.StatusServiceUnavailable, "retry_later", ErrRetryLater.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseReportQuery(r *http.Request) (ReportQuery, error) {
	establishmentID, err := queryInt64(r, "establishment_id")
	if err != nil {
		return ReportQuery{}, errors.New("establishment_id is required")
	}

	q := ReportQuery{
		EstablishmentID: establishmentID,
		Page:            1,
		PageSize:        20,
	}

	values := r.URL.Query()
	if v := values.Get("year"); v != "" {
		q.Year, err = strconv.Atoi(v)
		if err != nil {
			return ReportQuery{}, errors.New("year must be an integer")
		}
	}
	if v := values.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return ReportQuery{}, errors.New("month must be 1-12")
		}
		q.Month = &month
	}
	if v := values.Get("page"); v != "" {
		q.Page, err = strconv.Atoi(v)
		if err != nil || q.Page < 1 {
			return ReportQuery{}, errors.New("page must be >= 1")
		}
	}
	if v := values.Get("page_size"); v != "" {
		q.PageSize, err = strconv.Atoi(v)
		if err != nil || q.PageSize < 1 {
			return ReportQuery{}, errors.New("page_size must be >= 1")
		}
	}
	if v := values.Get("status"); v != "" {
		q.Status = ParseStatus(v)
	}
	return q, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return v, nil
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
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
