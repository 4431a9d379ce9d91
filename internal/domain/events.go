package domain

import "time"

type ParkingEventType string

const (
	EventLotCreated          ParkingEventType = "lot_created"
	EventLotResized          ParkingEventType = "lot_resized"
	EventLotDeleted          ParkingEventType = "lot_deleted"
	EventSpotDeleted         ParkingEventType = "spot_deleted"
	EventReservationOpened   ParkingEventType = "reservation_opened"
	EventReservationReleased ParkingEventType = "reservation_released"
)

// ParkingEvent is published after a committed change to lots, spots or reservations.
type ParkingEvent struct {
	EventID       string           `json:"event_id"`
	Type          ParkingEventType `json:"event_type"`
	LotID         int              `json:"lot_id"`
	LotName       string           `json:"lot_name,omitempty"`
	SpotID        int              `json:"spot_id,omitempty"`
	SpotNumber    string           `json:"spot_number,omitempty"`
	ReservationID int              `json:"reservation_id,omitempty"`
	UserID        int              `json:"user_id,omitempty"`
	TotalCost     float64          `json:"total_cost,omitempty"`
	Occupied      int              `json:"occupied"`
	Available     int              `json:"available"`
	Timestamp     time.Time        `json:"timestamp"`
}

// VisibleTo reports whether p may see who booked and what was charged.
func (e ParkingEvent) VisibleTo(p Principal) bool {
	return p.IsAdmin || (e.UserID != 0 && e.UserID == p.UserID)
}

// Redacted keeps only lot and spot occupancy.
func (e ParkingEvent) Redacted() ParkingEvent {
	e.ReservationID = 0
	e.UserID = 0
	e.TotalCost = 0
	return e
}
