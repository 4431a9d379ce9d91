package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Reservation binds a user to a spot from InTime until release. OutTime, Hours
// and TotalCost stay null until the reservation is released.
type Reservation struct {
	ID            int        `json:"id"`
	UserID        int        `json:"user_id"`
	SpotID        int        `json:"spot_id"`
	VehicleNumber string     `json:"vehicle_number"`
	InTime        time.Time  `json:"in_time"`
	OutTime       null.Time  `json:"out_time"`
	Hours         null.Int   `json:"hours"`
	TotalCost     null.Float `json:"total_cost"`
	Released      bool       `json:"is_released"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ReservationDetail is a reservation joined with its user, spot and lot.
type ReservationDetail struct {
	Reservation
	Username     string  `json:"username"`
	LotID        int     `json:"lot_id"`
	LotName      string  `json:"lot_name"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	Pincode      string  `json:"pincode"`
	SpotNumber   string  `json:"spot_number"`
	PricePerHour float64 `json:"price_per_hour"`
}

type ReservationFilter struct {
	UserID   null.Int
	Released null.Bool
}

type OpenReservationDTO struct {
	LotID         int        `json:"lot_id" binding:"required"`
	SpotNumber    string     `json:"spot_number"`
	VehicleNumber string     `json:"vehicle_number" binding:"required,max=20"`
	InTime        *time.Time `json:"in_time"`
}

// CloseReservationDTO may echo the hours and cost shown to the user. They are
// compared with the recomputed values and never stored.
type CloseReservationDTO struct {
	OutTime   *time.Time `json:"out_time"`
	Hours     *int64     `json:"hours"`
	TotalCost *float64   `json:"total_cost"`
}

type ReleaseQuote struct {
	ReservationID int       `json:"reservation_id"`
	SpotNumber    string    `json:"spot_number"`
	LotName       string    `json:"lot_name"`
	InTime        time.Time `json:"in_time"`
	OutTime       time.Time `json:"out_time"`
	Hours         int64     `json:"hours"`
	PricePerHour  float64   `json:"price_per_hour"`
	TotalCost     float64   `json:"total_cost"`
}
