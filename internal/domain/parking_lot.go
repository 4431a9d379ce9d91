package domain

import "time"

type ParkingLot struct {
	ID           int            `json:"id"`
	Name         string         `json:"name"`
	Address      string         `json:"address"`
	City         string         `json:"city"`
	Pincode      string         `json:"pincode"`
	PricePerHour float64        `json:"price_per_hour"`
	SpotCount    int            `json:"spot_count"`
	State        LifecycleState `json:"state"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type ParkingLotDTO struct {
	Name         string  `json:"name" binding:"required,max=100"`
	Address      string  `json:"address" binding:"required,max=200"`
	City         string  `json:"city" binding:"required,max=50"`
	Pincode      string  `json:"pincode" binding:"required,len=6,numeric"`
	PricePerHour float64 `json:"price_per_hour" binding:"gte=0"`
	SpotCount    int     `json:"spot_count" binding:"gte=0"`
}

// ParkingLotOverview is a lot together with its live occupancy.
type ParkingLotOverview struct {
	ParkingLot
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

type LotAvailability struct {
	Lot       ParkingLot    `json:"lot"`
	Spots     []ParkingSpot `json:"spots"`
	Occupied  int           `json:"occupied"`
	Available int           `json:"available"`
}
