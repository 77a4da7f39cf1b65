package reports

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fdg312/stay-hub/internal/upstream"
)

type mockFetcher struct {
	mu      sync.Mutex
	queries []upstream.MergedReportsQuery
	fetch   func(query upstream.MergedReportsQuery) (*upstream.ReportsPage, error)
}

func (m *mockFetcher) GetMergedReports(_ context.Context, query upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	return m.fetch(query)
}

func intPtr(v int) *int { return &v }

func sampleRows() []upstream.ReportRow {
	return []upstream.ReportRow{
		{ID: 7, EstablishmentID: 3, EstablishmentName: "Bayview Inn", Year: 2026, Month: intPtr(7), Status: "SUBMITTED", TotalGuests: 120},
		{ID: 6, EstablishmentID: 3, EstablishmentName: "Bayview Inn", Year: 2026, Month: intPtr(6), Status: "flagged"},
		{ID: 5, EstablishmentID: 3, EstablishmentName: "Bayview Inn", Year: 2026, Month: intPtr(5), Status: "MISSING"},
		{ID: 4, EstablishmentID: 3, EstablishmentName: "Bayview Inn", Year: 2025, Month: intPtr(12), Status: "AUTO"},
		{ID: 3, EstablishmentID: 3, EstablishmentName: "Bayview Inn", Year: 2025, Month: intPtr(11), Status: "pending"},
		{ID: 2, EstablishmentID: 3, EstablishmentName: "Bayview Inn", Year: 2024, Month: intPtr(2), Status: "MISSING"},
		{ID: 1, EstablishmentID: 3, EstablishmentName: "Bayview Inn", Year: 2024, Month: intPtr(1), Status: "weird-status"},
	}
}

// paginate mimics the server: stable order, page slicing, optional status
// filter, count over the filtered set.
func paginate(rows []upstream.ReportRow, q upstream.MergedReportsQuery) *upstream.ReportsPage {
	filtered := rows
	if q.Status != "" {
		filtered = nil
		for _, row := range rows {
			if row.Status == q.Status {
				filtered = append(filtered, row)
			}
		}
	}

	page := &upstream.ReportsPage{Count: len(filtered)}
	if q.PageSize <= 0 {
		page.Results = filtered
		return page
	}

	start := (q.Page - 1) * q.PageSize
	if start >= len(filtered) {
		page.Results = []upstream.ReportRow{}
		return page
	}
	end := start + q.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	page.Results = filtered[start:end]
	return page
}

func TestFetchPage_MapsRowsAndStatuses(t *testing.T) {
	fetcher := &mockFetcher{fetch: func(q upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return paginate(sampleRows(), q), nil
	}}
	svc := NewService(fetcher)

	page, err := svc.FetchPage(context.Background(), ReportQuery{EstablishmentID: 3, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalCount != 7 || len(page.Records) != 7 {
		t.Fatalf("expected 7 records, got total=%d len=%d", page.TotalCount, len(page.Records))
	}

	// Server order is preserved.
	if page.Records[0].ID != 7 || page.Records[6].ID != 1 {
		t.Fatalf("server order not preserved: first=%d last=%d", page.Records[0].ID, page.Records[6].ID)
	}

	// Case-insensitive classification, unknowns map to UNKNOWN.
	if page.Records[1].Status != StatusFlagged {
		t.Fatalf("expected lowercase 'flagged' to classify, got %q", page.Records[1].Status)
	}
	if page.Records[6].Status != StatusUnknown {
		t.Fatalf("expected unknown fallback, got %q", page.Records[6].Status)
	}
}

func TestFetchPage_ValidatesQuery(t *testing.T) {
	svc := NewService(&mockFetcher{fetch: func(upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		t.Fatal("fetch must not be called for invalid queries")
		return nil, nil
	}})

	for _, q := range []ReportQuery{
		{EstablishmentID: 3, Page: 0, PageSize: 10},
		{EstablishmentID: 3, Page: 1, PageSize: 0},
	} {
		if _, err := svc.FetchPage(context.Background(), q); !errors.Is(err, ErrInvalidQuery) {
			t.Fatalf("expected ErrInvalidQuery for %+v, got %v", q, err)
		}
	}
}

func TestFetchPage_EmptySetGetsLabel(t *testing.T) {
	svc := NewService(&mockFetcher{fetch: func(upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return &upstream.ReportsPage{Results: []upstream.ReportRow{}}, nil
	}})

	page, err := svc.FetchPage(context.Background(), ReportQuery{EstablishmentID: 3, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.EmptyLabel != EmptyLabel {
		t.Fatalf("expected %q, got %q", EmptyLabel, page.EmptyLabel)
	}
}

func TestFetchPage_PaginationRoundTrip(t *testing.T) {
	fetcher := &mockFetcher{fetch: func(q upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return paginate(sampleRows(), q), nil
	}}
	svc := NewService(fetcher)

	page1, err := svc.FetchPage(context.Background(), ReportQuery{EstablishmentID: 3, Page: 1, PageSize: 5})
	if err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	page2, err := svc.FetchPage(context.Background(), ReportQuery{EstablishmentID: 3, Page: 2, PageSize: 5})
	if err != nil {
		t.Fatalf("page 2 failed: %v", err)
	}

	if len(page1.Records) != 5 || len(page2.Records) != 2 {
		t.Fatalf("expected 5 then 2 records, got %d and %d", len(page1.Records), len(page2.Records))
	}

	seen := make(map[int64]bool)
	for _, rec := range append(page1.Records, page2.Records...) {
		if seen[rec.ID] {
			t.Fatalf("record %d appears on both pages", rec.ID)
		}
		seen[rec.ID] = true
	}
	if len(seen) != 7 {
		t.Fatalf("expected full coverage of 7 records, got %d", len(seen))
	}
}

func TestFetchAggregateCounts_IgnoresStatusFilter(t *testing.T) {
	fetcher := &mockFetcher{fetch: func(q upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return paginate(sampleRows(), q), nil
	}}
	svc := NewService(fetcher)

	// A filtered page view must not affect the counts.
	if _, err := svc.FetchPage(context.Background(), ReportQuery{EstablishmentID: 3, Page: 1, PageSize: 5, Status: StatusSubmitted}); err != nil {
		t.Fatalf("filtered page failed: %v", err)
	}

	counts, err := svc.FetchAggregateCounts(context.Background(), 3, 2026)
	if err != nil {
		t.Fatalf("counts failed: %v", err)
	}
	if counts.FlaggedCount != 1 || counts.MissingCount != 2 {
		t.Fatalf("expected flagged=1 missing=2 over the full set, got %+v", counts)
	}

	// The counts fetch itself must be unbounded and unfiltered.
	last := fetcher.queries[len(fetcher.queries)-1]
	if last.Status != "" {
		t.Fatalf("counts query must not carry a status filter, got %q", last.Status)
	}
	if last.PageSize != 0 {
		t.Fatalf("counts query must be unbounded, got page_size=%d", last.PageSize)
	}
}

func TestFetchEstablishmentSummary(t *testing.T) {
	fetcher := &mockFetcher{fetch: func(q upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		return paginate(sampleRows(), q), nil
	}}
	svc := NewService(fetcher)

	summary, err := svc.FetchEstablishmentSummary(context.Background(), 3)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	wantYears := []int{2024, 2025, 2026}
	if len(summary.Years) != len(wantYears) {
		t.Fatalf("expected years %v, got %v", wantYears, summary.Years)
	}
	for i, y := range wantYears {
		if summary.Years[i] != y {
			t.Fatalf("expected years %v ascending, got %v", wantYears, summary.Years)
		}
	}

	// Latest five is a prefix of server order, never a re-sort.
	if len(summary.Latest) != 5 {
		t.Fatalf("expected 5 latest records, got %d", len(summary.Latest))
	}
	for i, wantID := range []int64{7, 6, 5, 4, 3} {
		if summary.Latest[i].ID != wantID {
			t.Fatalf("latest[%d]: expected ID %d, got %d", i, wantID, summary.Latest[i].ID)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		upstream error
		want     error
	}{
		{"not found maps to unavailable", upstream.ErrUnavailable, ErrEstablishmentUnavailable},
		{"transport maps to retry later", upstream.ErrRetryLater, ErrRetryLater},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&mockFetcher{fetch: func(upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
				return nil, tt.upstream
			}})

			_, err := svc.FetchPage(context.Background(), ReportQuery{EstablishmentID: 3, Page: 1, PageSize: 5})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestViewer_LastIssuedWins(t *testing.T) {
	v := NewViewer()

	t1 := v.Issue()
	t2 := v.Issue()

	newer := &ReportPage{TotalCount: 2}
	if !v.Apply(t2, newer) {
		t.Fatal("latest ticket must apply")
	}

	// The earlier response arrives late and must be discarded.
	if v.Apply(t1, &ReportPage{TotalCount: 1}) {
		t.Fatal("stale ticket must be discarded")
	}
	if v.Current() != newer {
		t.Fatal("displayed page must reflect the most recently issued query")
	}
}

func TestRefreshPage_OverlappingQueries(t *testing.T) {
	q1Started := make(chan struct{})
	q2Done := make(chan struct{})

	fetcher := &mockFetcher{fetch: func(q upstream.MergedReportsQuery) (*upstream.ReportsPage, error) {
		if q.Page == 1 {
			close(q1Started)
			// Q1's response arrives only after Q2 has completed.
			<-q2Done
		}
		return paginate(sampleRows(), q), nil
	}}
	svc := NewService(fetcher)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.RefreshPage(context.Background(), ReportQuery{EstablishmentID: 3, Page: 1, PageSize: 5})
	}()

	<-q1Started
	if _, err := svc.RefreshPage(context.Background(), ReportQuery{EstablishmentID: 3, Page: 2, PageSize: 5}); err != nil {
		t.Fatalf("second query failed: %v", err)
	}
	close(q2Done)
	wg.Wait()

	current := svc.viewer(3).Current()
	if current == nil || len(current.Records) != 2 {
		t.Fatalf("displayed page must be Q2's (2 records), got %+v", current)
	}
	if current.Records[0].ID != 2 {
		t.Fatalf("expected page 2 content, got first ID %d", current.Records[0].ID)
	}
}
