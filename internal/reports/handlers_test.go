package reports

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/stay-hub/internal/storage/memory"
	"github.com/fdg312/stay-hub/internal/upstream"
)

func newTestMux(fetch func(upstream.MergedReportsQuery) (*upstream.ReportsPage, error)) *http.ServeMux {
	svc := NewService(&mockFetcher{fetch: fetch})
	exports := NewExportService(svc, memory.NewExportsStorage(), nil, 600, 12)
	h := NewHandlers(svc, exports)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/reports", h.HandleGetReports)
	mux.HandleFunc("GET /v1/reports/counts", h.HandleGetCounts)
	mux.HandleFunc("GET /v1/reports/summary", h.HandleGetSummary)
	mux.HandleFunc("POST /v1/reports/export", h.HandleCreateExport)
	mux.HandleFunc("GET /v1/reports/export/{id}/download", h.HandleDownloadExport)
	return mux
}

func TestHandleGetReports(t *testing.T) {
	mux := newTestMux(func(q upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return paginate(sampleRows(), q), nil
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reports?establishment_id=3&page=1&page_size=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var page ReportPage
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(page.Records) != 5 || page.TotalCount != 7 {
		t.Fatalf("unexpected page: len=%d total=%d", len(page.Records), page.TotalCount)
	}
}

func TestHandleGetReports_MissingEstablishment(t *testing.T) {
	mux := newTestMux(func(q upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return paginate(sampleRows(), q), nil
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reports", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleGetReports_UnavailableEstablishment(t *testing.T) {
	mux := newTestMux(func(upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return nil, upstream.ErrUnavailable
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reports?establishment_id=99", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "establishment does not exist or is unavailable") {
		t.Fatalf("expected scoped unavailable message, got %s", rec.Body.String())
	}
}

func TestHandleGetReports_UpstreamUnauthorized(t *testing.T) {
	mux := newTestMux(func(upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return nil, upstream.ErrUnauthorized
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reports?establishment_id=3", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"unauthorized"`) {
		t.Fatalf("expected unauthorized error code, got %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "internal_error") {
		t.Fatalf("auth failure must not surface as internal_error: %s", rec.Body.String())
	}
}

func TestHandleCounts(t *testing.T) {
	mux := newTestMux(func(q upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return paginate(sampleRows(), q), nil
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reports/counts?establishment_id=3&year=2026", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var counts AggregateCounts
	if err := json.NewDecoder(rec.Body).Decode(&counts); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if counts.FlaggedCount != 1 || counts.MissingCount != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestHandleExportAndDownload(t *testing.T) {
	mux := newTestMux(func(q upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return paginate(sampleRows(), q), nil
	})

	body := strings.NewReader(`{"establishment_id":3,"year":2026}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/reports/export", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var export Export
	if err := json.NewDecoder(rec.Body).Decode(&export); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if export.DownloadURL == "" {
		t.Fatal("expected a download URL")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reports/export/"+export.ID.String()+"/download", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", got)
	}
}
