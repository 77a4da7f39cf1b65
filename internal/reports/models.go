package reports

import (
	"strings"

	"github.com/google/uuid"

	"github.com/fdg312/stay-hub/internal/upstream"
)

// Status classifies one reporting period.
type Status string

const (
	StatusAuto      Status = "AUTO"
	StatusPending   Status = "PENDING"
	StatusSubmitted Status = "SUBMITTED"
	StatusFlagged   Status = "FLAGGED"
	StatusMissing   Status = "MISSING"
	// StatusUnknown is the fallback for free-form upstream values that do
	// not match any known status. We never guess a known one.
	StatusUnknown Status = "UNKNOWN"
)

// ParseStatus classifies a raw upstream status string, case-insensitively.
func ParseStatus(raw string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusAuto:
		return StatusAuto
	case StatusPending:
		return StatusPending
	case StatusSubmitted:
		return StatusSubmitted
	case StatusFlagged:
		return StatusFlagged
	case StatusMissing:
		return StatusMissing
	default:
		return StatusUnknown
	}
}

// EmptyLabel is shown instead of an empty record list.
const EmptyLabel = "no reports yet"

// ReportRecord is one display-ready reporting period.
type ReportRecord struct {
	ID                 int64   `json:"id"`
	EstablishmentID    int64   `json:"establishment_id"`
	EstablishmentName  string  `json:"establishment_name"`
	Year               int     `json:"year"`
	Month              *int    `json:"month,omitempty"`
	Date               string  `json:"date,omitempty"`
	Status             Status  `json:"status"`
	TotalGuests        int     `json:"total_guests"`
	TotalGuestNights   int     `json:"total_guest_nights"`
	ForeignGuests      int     `json:"foreign_guests"`
	ForeignGuestNights int     `json:"foreign_guest_nights"`
	AvailableRooms     int     `json:"available_rooms"`
	RoomsOccupied      int     `json:"rooms_occupied"`
	AvgOccupancyRate   float64 `json:"avg_occupancy_rate"`
	AvgLengthOfStay    float64 `json:"avg_length_of_stay"`
}

func mapRecord(row upstream.ReportRow) ReportRecord {
	return ReportRecord{
		ID:                 row.ID,
		EstablishmentID:    row.EstablishmentID,
		EstablishmentName:  row.EstablishmentName,
		Year:               row.Year,
		Month:              row.Month,
		Date:               row.Date,
		Status:             ParseStatus(row.Status),
		TotalGuests:        row.TotalGuests,
		TotalGuestNights:   row.TotalGuestNights,
		ForeignGuests:      row.ForeignGuests,
		ForeignGuestNights: row.ForeignGuestNights,
		AvailableRooms:     row.AvailableRooms,
		RoomsOccupied:      row.RoomsOccupied,
		AvgOccupancyRate:   row.AvgOccupancyRate,
		AvgLengthOfStay:    row.AvgLengthOfStay,
	}
}

// ReportQuery is the page-scoped query contract.
type ReportQuery struct {
	EstablishmentID int64  `json:"establishment_id"`
	Year            int    `json:"year,omitempty"`
	Month           *int   `json:"month,omitempty"`
	Page            int    `json:"page"`
	PageSize        int    `json:"page_size"`
	Status          Status `json:"status,omitempty"`
}

// ReportPage is one page of records plus full-set counts. Counts cover the
// complete establishment/year result regardless of the page's status filter.
type ReportPage struct {
	Records      []ReportRecord `json:"records"`
	TotalCount   int            `json:"total_count"`
	FlaggedCount int            `json:"flagged_count"`
	MissingCount int            `json:"missing_count"`
	EmptyLabel   string         `json:"empty_label,omitempty"`
}

// AggregateCounts is the full-set flagged/missing tally for a year.
type AggregateCounts struct {
	EstablishmentID int64 `json:"establishment_id"`
	Year            int   `json:"year,omitempty"`
	FlaggedCount    int   `json:"flagged_count"`
	MissingCount    int   `json:"missing_count"`
	TotalCount      int   `json:"total_count"`
}

// EstablishmentSummary backs the "latest submissions" view.
type EstablishmentSummary struct {
	EstablishmentID int64          `json:"establishment_id"`
	Years           []int          `json:"years"`
	Latest          []ReportRecord `json:"latest"`
	EmptyLabel      string         `json:"empty_label,omitempty"`
}

// ExportRequest is the body of POST /v1/reports/export.
type ExportRequest struct {
	EstablishmentID int64 `json:"establishment_id"`
	Year            int   `json:"year"`
	Month           *int  `json:"month,omitempty"`
}

// Export describes a generated PDF export.
type Export struct {
	ID              uuid.UUID `json:"id"`
	EstablishmentID int64     `json:"establishment_id"`
	Year            int       `json:"year"`
	Month           *int      `json:"month,omitempty"`
	Filename        string    `json:"filename"`
	SizeBytes       int64     `json:"size_bytes"`
	DownloadURL     string    `json:"download_url,omitempty"`
	CreatedAt       string    `json:"created_at"`
}

// ErrorResponse is the error envelope shared by all handlers.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
