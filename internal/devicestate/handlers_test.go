package devicestate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/stay-hub/internal/storage/memory"
)

func newTestMux() *http.ServeMux {
	h := NewHandlers(memory.NewDeviceStateStorage())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/state", h.HandleList)
	mux.HandleFunc("GET /v1/state/{key}", h.HandleGet)
	mux.HandleFunc("PUT /v1/state/{key}", h.HandlePut)
	mux.HandleFunc("DELETE /v1/state/{key}", h.HandleDelete)
	return mux
}

func doReq(mux *http.ServeMux, method, path, body, deviceID string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if deviceID != "" {
		req.Header.Set("X-Device-ID", deviceID)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestStateRoundTrip(t *testing.T) {
	mux := newTestMux()

	if rec := doReq(mux, http.MethodPut, "/v1/state/APP_THEME_MODE", `"dark"`, "dev1"); rec.Code != http.StatusNoContent {
		t.Fatalf("put: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec := doReq(mux, http.MethodGet, "/v1/state/APP_THEME_MODE", "", "dev1")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `"dark"` {
		t.Fatalf("expected stored value back, got %q", rec.Body.String())
	}

	if rec := doReq(mux, http.MethodDelete, "/v1/state/APP_THEME_MODE", "", "dev1"); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if rec := doReq(mux, http.MethodGet, "/v1/state/APP_THEME_MODE", "", "dev1"); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestStateRejectsInvalidJSON(t *testing.T) {
	mux := newTestMux()

	rec := doReq(mux, http.MethodPut, "/v1/state/draft", `{not json`, "dev1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", rec.Code)
	}
}

func TestStateIsolatedPerDevice(t *testing.T) {
	mux := newTestMux()

	if rec := doReq(mux, http.MethodPut, "/v1/state/reset_email", `"a@b.c"`, "dev1"); rec.Code != http.StatusNoContent {
		t.Fatalf("put failed: %d", rec.Code)
	}

	if rec := doReq(mux, http.MethodGet, "/v1/state/reset_email", "", "dev2"); rec.Code != http.StatusNotFound {
		t.Fatalf("dev2 must not see dev1 keys, got %d", rec.Code)
	}
}

func TestStateList(t *testing.T) {
	mux := newTestMux()

	doReq(mux, http.MethodPut, "/v1/state/b-key", `1`, "dev1")
	doReq(mux, http.MethodPut, "/v1/state/a-key", `2`, "dev1")

	rec := doReq(mux, http.MethodGet, "/v1/state", "", "dev1")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"a-key","b-key"`) {
		t.Fatalf("expected sorted keys, got %s", rec.Body.String())
	}
}
