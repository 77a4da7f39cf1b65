package reports

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fdg312/stay-hub/internal/upstream"
)

var (
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEstablishmentUnavailable covers 404/500 upstream answers for a
	// specific establishment, as opposed to transient transport failures.
	ErrEstablishmentUnavailable = errors.New("establishment does not exist or is unavailable")
	ErrRetryLater               = errors.New("temporarily unavailable, retry later")
)

// latestLimit is how many most recent records the summary view carries.
const latestLimit = 5

// Fetcher is the upstream merged-reports dependency.
type Fetcher interface {
	GetMergedReports(ctx context.Context, query upstream.MergedReportsQuery) (*upstream.ReportsPage, error)
}

// Service is the report aggregation layer: it turns paginated raw upstream
// rows into display-ready pages, full-set counts, and per-establishment
// summaries.
type Service struct {
	client Fetcher

	mu      sync.Mutex
	viewers map[int64]*Viewer
}

func NewService(client Fetcher) *Service {
	return &Service{
		client:  client,
		viewers: make(map[int64]*Viewer),
	}
}

// FetchPage issues a single paginated request and maps the rows. TotalCount
// comes from the server's count field; flagged/missing counts come from a
// separate FetchAggregateCounts call, not from the page.
func (s *Service) FetchPage(ctx context.Context, q ReportQuery) (*ReportPage, error) {
	if q.Page < 1 || q.PageSize < 1 {
		return nil, fmt.Errorf("%w: page and page_size must be >= 1", ErrInvalidQuery)
	}

	raw, err := s.client.GetMergedReports(ctx, upstream.MergedReportsQuery{
		EstablishmentID: q.EstablishmentID,
		Year:            q.Year,
		Month:           q.Month,
		Page:            q.Page,
		PageSize:        q.PageSize,
		Status:          string(q.Status),
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	page := &ReportPage{
		Records:    make([]ReportRecord, 0, len(raw.Results)),
		TotalCount: raw.Count,
	}
	for _, row := range raw.Results {
		page.Records = append(page.Records, mapRecord(row))
	}
	if len(page.Records) == 0 {
		page.EmptyLabel = EmptyLabel
	}
	return page, nil
}

// FetchAggregateCounts issues a second, unbounded fetch without the status
// filter and tallies flagged/missing over the complete establishment/year
// set. Deliberately a full fetch: the counts must not depend on which page
// or status filter the caller is viewing.
func (s *Service) FetchAggregateCounts(ctx context.Context, establishmentID int64, year int) (*AggregateCounts, error) {
	raw, err := s.client.GetMergedReports(ctx, upstream.MergedReportsQuery{
		EstablishmentID: establishmentID,
		Year:            year,
		Page:            1,
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	counts := &AggregateCounts{
		EstablishmentID: establishmentID,
		Year:            year,
		TotalCount:      raw.Count,
	}
	for _, row := range raw.Results {
		switch ParseStatus(row.Status) {
		case StatusFlagged:
			counts.FlaggedCount++
		case StatusMissing:
			counts.MissingCount++
		}
	}
	return counts, nil
}

// FetchEstablishmentSummary fetches the complete record set and derives the
// distinct years present (ascending) plus the most recent records. "Most
// recent" is a prefix of server order; the server is the order authority.
func (s *Service) FetchEstablishmentSummary(ctx context.Context, establishmentID int64) (*EstablishmentSummary, error) {
	raw, err := s.client.GetMergedReports(ctx, upstream.MergedReportsQuery{
		EstablishmentID: establishmentID,
		Page:            1,
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	summary := &EstablishmentSummary{
		EstablishmentID: establishmentID,
		Years:           []int{},
		Latest:          []ReportRecord{},
	}

	seen := make(map[int]bool)
	for _, row := range raw.Results {
		if !seen[row.Year] {
			seen[row.Year] = true
			summary.Years = insertSorted(summary.Years, row.Year)
		}
		if len(summary.Latest) < latestLimit {
			summary.Latest = append(summary.Latest, mapRecord(row))
		}
	}
	if len(raw.Results) == 0 {
		summary.EmptyLabel = EmptyLabel
	}
	return summary, nil
}

// RefreshPage runs FetchPage under the establishment's staleness guard and
// returns the currently displayed page. When queries overlap, the page
// reflects the most recently issued one regardless of completion order.
func (s *Service) RefreshPage(ctx context.Context, q ReportQuery) (*ReportPage, error) {
	viewer := s.viewer(q.EstablishmentID)
	ticket := viewer.Issue()

	page, err := s.FetchPage(ctx, q)
	if err != nil {
		return nil, err
	}

	viewer.Apply(ticket, page)
	return viewer.Current(), nil
}

func (s *Service) viewer(establishmentID int64) *Viewer {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.viewers[establishmentID]
	if !ok {
		v = NewViewer()
		s.viewers[establishmentID] = v
	}
	return v
}

func (s *Service) mapError(err error) error {
	switch {
	case errors.Is(err, upstream.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrEstablishmentUnavailable, err)
	case errors.Is(err, upstream.ErrRetryLater):
		return fmt.Errorf("%w: %v", ErrRetryLater, err)
	default:
		return err
	}
}

func insertSorted(years []int, year int) []int {
	i := 0
	for i < len(years) && years[i] < year {
		i++
	}
	years = append(years, 0)
	copy(years[i+1:], years[i:])
	years[i] = year
	return years
}
