package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase = "http://localhost:8080"
)

var (
	apiBase         string
	token           string
	deviceID        string
	establishmentID string
	testYear        int
	client          = &http.Client{Timeout: 30 * time.Second}
	createdIDs      = make(map[string]string) // track created resources for cleanup
)

func main() {
	fmt.Println("=== Stay Hub E2E Smoke Test ===")
	fmt.Println()

	// Load config from env
	apiBase = getEnv("API_BASE_URL", defaultAPIBase)
	deviceID = getEnv("SMOKE_DEVICE_ID", "smoke-device")
	establishmentID = getEnv("SMOKE_ESTABLISHMENT_ID", "1")
	testYear = time.Now().Year()

	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Printf("Device ID: %s\n", deviceID)
	fmt.Printf("Establishment ID: %s\n", establishmentID)
	fmt.Println()

	// Run smoke tests
	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Login", testLogin},
		{"Resolve Session", testResolveSession},
		{"Reports Page", testReportsPage},
		{"Counts Invariance", testCountsInvariance},
		{"Reports Summary", testReportsSummary},
		{"Create Export", testCreateExport},
		{"Download Export", testDownloadExport},
		{"Delete Export", testDeleteExport},
		{"State Roundtrip", testStateRoundtrip},
		{"Logout", testLogout},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	resp, err := doRequest("GET", "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return expectStatus(resp, http.StatusOK)
}

func testLogin() error {
	username := getEnv("SMOKE_USERNAME", "")
	password := getEnv("SMOKE_PASSWORD", "")
	if username == "" || password == "" {
		return fmt.Errorf("SMOKE_USERNAME and SMOKE_PASSWORD must be set")
	}

	payload := map[string]string{
		"username": username,
		"password": password,
	}

	resp, err := doRequest("POST", "/v1/auth/login", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	var result struct {
		AccessToken string `json:"access_token"`
		Role        string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	if result.AccessToken == "" {
		return fmt.Errorf("empty access_token in login response")
	}
	fmt.Printf("(role=%s, token=%s) ", result.Role, maskString(result.AccessToken))

	token = result.AccessToken
	return nil
}

func testResolveSession() error {
	resp, err := doRequest("GET", "/v1/auth/session", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	var state struct {
		Authenticated bool   `json:"authenticated"`
		Role          string `json:"role"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	if !state.Authenticated {
		return fmt.Errorf("session not authenticated after login")
	}
	if state.Role == "" {
		return fmt.Errorf("session has no role")
	}

	return nil
}

func testReportsPage() error {
	path := fmt.Sprintf("/v1/reports?establishment_id=%s&year=%d&page=1&page_size=5", establishmentID, testYear)
	resp, err := doRequest("GET", path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	var page struct {
		Records    []json.RawMessage `json:"records"`
		TotalCount int               `json:"total_count"`
		EmptyLabel string            `json:"empty_label"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	if len(page.Records) == 0 && page.EmptyLabel == "" {
		return fmt.Errorf("empty page without empty_label")
	}

	return nil
}

// testCountsInvariance verifies the counts endpoint reports the same
// flagged/missing totals regardless of the status filter used for paging.
func testCountsInvariance() error {
	countsPath := fmt.Sprintf("/v1/reports/counts?establishment_id=%s&year=%d", establishmentID, testYear)

	first, err := fetchCounts(countsPath)
	if err != nil {
		return err
	}

	// Page through a filtered view, then re-read the counts.
	filteredPath := fmt.Sprintf("/v1/reports?establishment_id=%s&year=%d&page=1&page_size=5&status=FLAGGED", establishmentID, testYear)
	resp, err := doRequest("GET", filteredPath, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	second, err := fetchCounts(countsPath)
	if err != nil {
		return err
	}

	if first.FlaggedCount != second.FlaggedCount || first.MissingCount != second.MissingCount {
		return fmt.Errorf("counts changed after filtered page: was flagged=%d missing=%d, now flagged=%d missing=%d",
			first.FlaggedCount, first.MissingCount, second.FlaggedCount, second.MissingCount)
	}

	return nil
}

type countsResponse struct {
	FlaggedCount int `json:"flagged_count"`
	MissingCount int `json:"missing_count"`
	TotalCount   int `json:"total_count"`
}

func fetchCounts(path string) (*countsResponse, error) {
	resp, err := doRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}

	var counts countsResponse
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return &counts, nil
}

func testReportsSummary() error {
	path := fmt.Sprintf("/v1/reports/summary?establishment_id=%s", establishmentID)
	resp, err := doRequest("GET", path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	var summary struct {
		Years  []int             `json:"years"`
		Latest []json.RawMessage `json:"latest"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	// Years must come back ascending
	for i := 1; i < len(summary.Years); i++ {
		if summary.Years[i-1] >= summary.Years[i] {
			return fmt.Errorf("years not strictly ascending: %v", summary.Years)
		}
	}
	if len(summary.Latest) > 5 {
		return fmt.Errorf("latest has %d entries (max 5)", len(summary.Latest))
	}

	return nil
}

func testCreateExport() error {
	var estID int64
	fmt.Sscanf(establishmentID, "%d", &estID)
	payload := map[string]interface{}{
		"establishment_id": estID,
		"year":             testYear,
	}

	resp, err := doRequest("POST", "/v1/reports/export", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusCreated); err != nil {
		return err
	}

	var result struct {
		ID          string `json:"id"`
		SizeBytes   int64  `json:"size_bytes"`
		DownloadURL string `json:"download_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	if result.SizeBytes < 10 {
		return fmt.Errorf("export size is %d bytes (too small)", result.SizeBytes)
	}
	if result.DownloadURL == "" {
		return fmt.Errorf("export has no download_url")
	}

	createdIDs["export"] = result.ID
	return nil
}

func testDownloadExport() error {
	exportID := createdIDs["export"]
	if exportID == "" {
		return fmt.Errorf("no export ID to download")
	}

	// Don't follow redirects automatically - S3 mode answers 302
	originalCheckRedirect := client.CheckRedirect
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	defer func() { client.CheckRedirect = originalCheckRedirect }()

	resp, err := doRequest("GET", fmt.Sprintf("/v1/reports/export/%s/download", exportID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Accept 200 (direct serve, local mode) or 302 (presigned redirect, s3 mode)
	if resp.StatusCode == http.StatusOK {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		if len(data) < 10 || !bytes.HasPrefix(data, []byte("%PDF")) {
			return fmt.Errorf("body does not look like a PDF (%d bytes)", len(data))
		}
		return nil
	}

	if resp.StatusCode == http.StatusFound {
		location := resp.Header.Get("Location")
		if location == "" {
			return fmt.Errorf("redirect without Location header")
		}

		getReq, err := http.NewRequest("GET", location, nil)
		if err != nil {
			return fmt.Errorf("failed to create redirect request: %w", err)
		}

		getResp, err := client.Do(getReq)
		if err != nil {
			return fmt.Errorf("failed to follow redirect: %w", err)
		}
		defer getResp.Body.Close()

		if getResp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(getResp.Body, 4096))
			return fmt.Errorf("redirect failed: status=%d body=%s", getResp.StatusCode, string(body))
		}

		data, err := io.ReadAll(getResp.Body)
		if err != nil {
			return fmt.Errorf("failed to read redirected body: %w", err)
		}
		if len(data) < 10 {
			return fmt.Errorf("export too small: %d bytes", len(data))
		}
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("unexpected status=%d body=%s", resp.StatusCode, string(body))
}

func testDeleteExport() error {
	exportID := createdIDs["export"]
	if exportID == "" {
		return fmt.Errorf("no export ID to delete")
	}

	resp, err := doRequest("DELETE", fmt.Sprintf("/v1/reports/export/%s", exportID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return expectStatus(resp, http.StatusNoContent)
}

func testStateRoundtrip() error {
	value := map[string]string{"mode": "dark"}

	// PUT
	resp, err := doRequest("PUT", "/v1/state/APP_THEME_MODE", value)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("put: status=%d", resp.StatusCode)
	}

	// GET back
	resp, err = doRequest("GET", "/v1/state/APP_THEME_MODE", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if got["mode"] != "dark" {
		return fmt.Errorf("state roundtrip mismatch: got %v", got)
	}

	// DELETE
	resp, err = doRequest("DELETE", "/v1/state/APP_THEME_MODE", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete: status=%d", resp.StatusCode)
	}

	return nil
}

func testLogout() error {
	resp, err := doRequest("POST", "/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}

	var state struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if state.Authenticated {
		return fmt.Errorf("still authenticated after logout")
	}

	return nil
}

// Helper functions

func doRequest(method, path string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Device-ID", deviceID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return client.Do(req)
}

func expectStatus(resp *http.Response, want int) error {
	if resp.StatusCode != want {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status=%d (want %d) body=%s", resp.StatusCode, want, string(body))
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
