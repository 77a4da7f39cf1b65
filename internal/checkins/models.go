package checkins

import (
	"github.com/fdg312/stay-hub/internal/upstream"
)

// Checkin is one display-ready guest log entry.
type Checkin struct {
	ID              int64                       `json:"id"`
	EstablishmentID int64                       `json:"establishment_id"`
	Date            string                      `json:"date"`
	DateLabel       string                      `json:"date_label"`
	Time            string                      `json:"time"`
	TimeLabel       string                      `json:"time_label"`
	RoomTypeID      int64                       `json:"room_type_id"`
	RoomTypeName    string                      `json:"room_type_name"`
	LengthOfStay    int                         `json:"length_of_stay"`
	GuestCount      int                         `json:"guest_count"`
	Nationalities   []upstream.GuestNationality `json:"nationalities"`
}

// CheckinsPage is the paginated list response.
type CheckinsPage struct {
	Checkins   []Checkin `json:"checkins"`
	TotalCount int       `json:"total_count"`
}

// KPIView is the formatted KPI snapshot for a dashboard.
type KPIView struct {
	TotalGuests        string `json:"total_guests"`
	TotalGuestNights   string `json:"total_guest_nights"`
	ForeignGuests      string `json:"foreign_guests"`
	ForeignGuestNights string `json:"foreign_guest_nights"`
	RoomsOccupied      string `json:"rooms_occupied"`
	AvailableRooms     string `json:"available_rooms"`
	AvgOccupancyRate   string `json:"avg_occupancy_rate"`
	AvgLengthOfStay    string `json:"avg_length_of_stay"`
}

// UpsertRequest is the create/update payload for a guest log entry.
type UpsertRequest struct {
	EstablishmentID int64                       `json:"establishment_id"`
	Date            string                      `json:"date"`
	Time            string                      `json:"time"`
	RoomTypeID      int64                       `json:"room_type_id"`
	LengthOfStay    int                         `json:"length_of_stay"`
	Nationalities   []upstream.GuestNationality `json:"nationalities,omitempty"`
}

// ErrorResponse is the error envelope shared by all handlers.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
