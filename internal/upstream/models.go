package upstream

// Reporting modes governing which report screens an AE sees.
const (
	ModeDaily   = "DAILY"
	ModeMonthly = "MONTHLY"
)

// LoginRequest is the credential exchange payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued access token
type LoginResponse struct {
	Access string `json:"access"`
	Role   string `json:"role"`
}

// GuestNationality is one nationality line of a guest log
type GuestNationality struct {
	ID            int64  `json:"id"`
	NationalityID int64  `json:"nationality"`
	Name          string `json:"nationality_name"`
	Count         int    `json:"count"`
}

// CheckinRow is one raw check-in (guest log) row
type CheckinRow struct {
	ID              int64              `json:"id"`
	EstablishmentID int64              `json:"establishment"`
	Date            string             `json:"date"` // YYYY-MM-DD
	Time            string             `json:"time"` // HH:MM:SS[.ffffff]
	RoomTypeID      int64              `json:"room_type"`
	RoomTypeName    string             `json:"room_type_name"`
	LengthOfStay    int                `json:"length_of_stay"`
	GuestCount      int                `json:"guest_count"`
	Nationalities   []GuestNationality `json:"nationalities"`
}

// CheckinsPage is the paginated check-ins response
type CheckinsPage struct {
	Results []CheckinRow `json:"results"`
	Count   int          `json:"count"`
}

// CheckinUpsert is the create/update payload for a check-in
type CheckinUpsert struct {
	EstablishmentID int64              `json:"establishment"`
	Date            string             `json:"date"`
	Time            string             `json:"time"`
	RoomTypeID      int64              `json:"room_type"`
	LengthOfStay    int                `json:"length_of_stay"`
	Nationalities   []GuestNationality `json:"nationalities,omitempty"`
}

// KPISnapshot is the scalar KPI response for a mode/date
type KPISnapshot struct {
	TotalGuests        int     `json:"total_guests"`
	TotalGuestNights   int     `json:"total_guest_nights"`
	ForeignGuests      int     `json:"foreign_guests"`
	ForeignGuestNights int     `json:"foreign_guest_nights"`
	RoomsOccupied      int     `json:"rooms_occupied"`
	AvailableRooms     int     `json:"available_rooms"`
	AvgOccupancyRate   float64 `json:"avg_occupancy_rate"`
	AvgLengthOfStay    float64 `json:"avg_length_of_stay"`
}

// RoomType is a reference room type of an establishment
type RoomType struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Nationality is a reference nationality entry
type Nationality struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ReportRow is one raw merged-report row (per establishment × period).
// Status is a free-form string on the wire; classification happens in
// the aggregation layer.
type ReportRow struct {
	ID                 int64   `json:"id"`
	EstablishmentID    int64   `json:"establishment"`
	EstablishmentName  string  `json:"establishment_name"`
	Year               int     `json:"year"`
	Month              *int    `json:"month,omitempty"`
	Date               string  `json:"date,omitempty"` // daily-mode periods only
	Status             string  `json:"status"`
	TotalGuests        int     `json:"total_guests"`
	TotalGuestNights   int     `json:"total_guest_nights"`
	ForeignGuests      int     `json:"foreign_guests"`
	ForeignGuestNights int     `json:"foreign_guest_nights"`
	AvailableRooms     int     `json:"available_rooms"`
	RoomsOccupied      int     `json:"rooms_occupied"`
	AvgOccupancyRate   float64 `json:"avg_occupancy_rate"`
	AvgLengthOfStay    float64 `json:"avg_length_of_stay"`
}

// ReportsPage is the paginated merged-reports response
type ReportsPage struct {
	Results []ReportRow `json:"results"`
	Count   int         `json:"count"`
}

// MergedReportsQuery is the merged-reports filter.
// PageSize <= 0 requests the complete (unbounded) result set.
type MergedReportsQuery struct {
	EstablishmentID int64
	Year            int
	Month           *int
	Page            int
	PageSize        int
	Status          string
}
