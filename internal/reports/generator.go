package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/fdg312/stay-hub/internal/format"
)

// Generator renders report pages into PDF documents.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GeneratePDF renders the establishment's records for the selected period,
// a status tally header, and a KPI footer. Records come in server order.
func (g *Generator) GeneratePDF(req ExportRequest, records []ReportRecord, counts *AggregateCounts) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Guest Log Report")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Establishment #%d — %s", req.EstablishmentID, periodLabel(req)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Generated %s", format.Date(time.Now())))
	pdf.Ln(10)

	if counts != nil {
		pdf.SetFont("Helvetica", "", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Periods: %s    Flagged: %s    Missing: %s",
			format.ReadableNumber(float64(counts.TotalCount)),
			format.ReadableNumber(float64(counts.FlaggedCount)),
			format.ReadableNumber(float64(counts.MissingCount)),
		))
		pdf.Ln(10)
	}

	if len(records) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 8, EmptyLabel)
	} else {
		g.drawRecordsTable(pdf, records)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) drawRecordsTable(pdf *gofpdf.Fpdf, records []ReportRecord) {
	pdf.SetFont("Helvetica", "B", 8)

	headers := []struct {
		label string
		width float64
	}{
		{"Period", 30},
		{"Status", 24},
		{"Guests", 22},
		{"Guest nights", 26},
		{"Foreign", 22},
		{"Foreign nights", 28},
		{"Rooms occ.", 24},
		{"Rooms avail.", 26},
		{"Occupancy", 24},
		{"Avg stay", 22},
	}
	for i, h := range headers {
		border := 0
		if i == len(headers)-1 {
			border = 1
		}
		pdf.CellFormat(h.width, 6, h.label, "1", border, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 8)
	for _, rec := range records {
		pdf.CellFormat(30, 6, recordPeriod(rec), "1", 0, "C", false, 0, "")
		pdf.CellFormat(24, 6, string(rec.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, format.CompactNumber(float64(rec.TotalGuests)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 6, format.CompactNumber(float64(rec.TotalGuestNights)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, format.CompactNumber(float64(rec.ForeignGuests)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, format.CompactNumber(float64(rec.ForeignGuestNights)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, format.ReadableNumber(float64(rec.RoomsOccupied)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(26, 6, format.ReadableNumber(float64(rec.AvailableRooms)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, format.Percent(rec.AvgOccupancyRate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, format.ReadableNumber(rec.AvgLengthOfStay), "1", 1, "R", false, 0, "")
	}
}

func recordPeriod(rec ReportRecord) string {
	if rec.Date != "" {
		return rec.Date
	}
	if rec.Month != nil {
		return fmt.Sprintf("%04d-%02d", rec.Year, *rec.Month)
	}
	return fmt.Sprintf("%04d", rec.Year)
}

func periodLabel(req ExportRequest) string {
	if req.Month != nil {
		return fmt.Sprintf("%s %d", time.Month(*req.Month).String(), req.Year)
	}
	return fmt.Sprintf("year %d", req.Year)
}
