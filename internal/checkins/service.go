package checkins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/stay-hub/internal/format"
	"github.com/fdg312/stay-hub/internal/upstream"
)

var (
	ErrInvalidDate  = errors.New("invalid date format, expected YYYY-MM-DD")
	ErrInvalidMode  = errors.New("mode must be DAILY or MONTHLY")
	ErrInvalidInput = errors.New("invalid input")
)

// Client is the upstream guest-log dependency.
type Client interface {
	GetCheckins(ctx context.Context, page, pageSize int, mode, date string) (*upstream.CheckinsPage, error)
	GetCheckinKPIs(ctx context.Context, mode, date string) (*upstream.KPISnapshot, error)
	CreateCheckin(ctx context.Context, req upstream.CheckinUpsert) (*upstream.CheckinRow, error)
	UpdateCheckin(ctx context.Context, id int64, req upstream.CheckinUpsert) (*upstream.CheckinRow, error)
	DeleteCheckin(ctx context.Context, id int64) error
	DeleteGuestlogNationality(ctx context.Context, logID, nationID int64) error
}

// Service is a thin facade over the upstream guest-log endpoints that
// reshapes raw rows for display.
type Service struct {
	client Client
}

func NewService(client Client) *Service {
	return &Service{client: client}
}

// List fetches one page of guest log entries for the mode/date.
func (s *Service) List(ctx context.Context, page, pageSize int, mode, date string) (*CheckinsPage, error) {
	if err := validateMode(mode); err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	raw, err := s.client.GetCheckins(ctx, page, pageSize, mode, date)
	if err != nil {
		return nil, fmt.Errorf("fetch checkins: %w", err)
	}

	out := &CheckinsPage{
		Checkins:   make([]Checkin, 0, len(raw.Results)),
		TotalCount: raw.Count,
	}
	for _, row := range raw.Results {
		out.Checkins = append(out.Checkins, mapCheckin(row))
	}
	return out, nil
}

// KPIs fetches the scalar KPI snapshot and formats it for display.
func (s *Service) KPIs(ctx context.Context, mode, date string) (*KPIView, error) {
	if err := validateMode(mode); err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}

	snap, err := s.client.GetCheckinKPIs(ctx, mode, date)
	if err != nil {
		return nil, fmt.Errorf("fetch KPIs: %w", err)
	}

	return &KPIView{
		TotalGuests:        format.CompactNumber(float64(snap.TotalGuests)),
		TotalGuestNights:   format.CompactNumber(float64(snap.TotalGuestNights)),
		ForeignGuests:      format.CompactNumber(float64(snap.ForeignGuests)),
		ForeignGuestNights: format.CompactNumber(float64(snap.ForeignGuestNights)),
		RoomsOccupied:      format.ReadableNumber(float64(snap.RoomsOccupied)),
		AvailableRooms:     format.ReadableNumber(float64(snap.AvailableRooms)),
		AvgOccupancyRate:   format.Percent(snap.AvgOccupancyRate),
		AvgLengthOfStay:    format.ReadableNumber(snap.AvgLengthOfStay),
	}, nil
}

// Create forwards a new guest log entry upstream.
func (s *Service) Create(ctx context.Context, req UpsertRequest) (*Checkin, error) {
	if err := validateUpsert(req); err != nil {
		return nil, err
	}

	row, err := s.client.CreateCheckin(ctx, toUpstream(req))
	if err != nil {
		return nil, fmt.Errorf("create checkin: %w", err)
	}
	out := mapCheckin(*row)
	return &out, nil
}

// Update forwards changes to an existing entry upstream.
func (s *Service) Update(ctx context.Context, id int64, req UpsertRequest) (*Checkin, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	if err := validateUpsert(req); err != nil {
		return nil, err
	}

	row, err := s.client.UpdateCheckin(ctx, id, toUpstream(req))
	if err != nil {
		return nil, fmt.Errorf("update checkin: %w", err)
	}
	out := mapCheckin(*row)
	return &out, nil
}

// Delete removes a guest log entry upstream.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	if err := s.client.DeleteCheckin(ctx, id); err != nil {
		return fmt.Errorf("delete checkin: %w", err)
	}
	return nil
}

// DeleteNationality removes one nationality line from a guest log.
func (s *Service) DeleteNationality(ctx context.Context, logID, nationID int64) error {
	if logID <= 0 || nationID <= 0 {
		return fmt.Errorf("%w: ids must be positive", ErrInvalidInput)
	}
	if err := s.client.DeleteGuestlogNationality(ctx, logID, nationID); err != nil {
		return fmt.Errorf("delete guestlog nationality: %w", err)
	}
	return nil
}

func mapCheckin(row upstream.CheckinRow) Checkin {
	return Checkin{
		ID:              row.ID,
		EstablishmentID: row.EstablishmentID,
		Date:            row.Date,
		DateLabel:       format.DateString(row.Date),
		Time:            row.Time,
		TimeLabel:       format.TimeOfDay(row.Time),
		RoomTypeID:      row.RoomTypeID,
		RoomTypeName:    row.RoomTypeName,
		LengthOfStay:    row.LengthOfStay,
		GuestCount:      row.GuestCount,
		Nationalities:   row.Nationalities,
	}
}

func toUpstream(req UpsertRequest) upstream.CheckinUpsert {
	return upstream.CheckinUpsert{
		EstablishmentID: req.EstablishmentID,
		Date:            req.Date,
		Time:            req.Time,
		RoomTypeID:      req.RoomTypeID,
		LengthOfStay:    req.LengthOfStay,
		Nationalities:   req.Nationalities,
	}
}

func validateUpsert(req UpsertRequest) error {
	if req.EstablishmentID <= 0 {
		return fmt.Errorf("%w: establishment_id is required", ErrInvalidInput)
	}
	if err := validateDate(req.Date); err != nil {
		return err
	}
	if req.RoomTypeID <= 0 {
		return fmt.Errorf("%w: room_type_id is required", ErrInvalidInput)
	}
	if req.LengthOfStay < 1 {
		return fmt.Errorf("%w: length_of_stay must be >= 1", ErrInvalidInput)
	}
	return nil
}

func validateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func validateMode(mode string) error {
	if mode != upstream.ModeDaily && mode != upstream.ModeMonthly {
		return ErrInvalidMode
	}
	return nil
}
