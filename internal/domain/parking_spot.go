package domain

import (
	"fmt"
	"time"
)

type ParkingSpot struct {
	ID        int            `json:"id"`
	LotID     int            `json:"lot_id"`
	Seq       int            `json:"seq"`
	Number    string         `json:"spot_number"`
	Occupied  bool           `json:"occupied"`
	State     LifecycleState `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (s ParkingSpot) Available() bool {
	return !s.Occupied && s.State == StateActive
}

// SpotNumber renders a spot sequence as its display number, e.g. 7 -> "P007".
func SpotNumber(seq int) string {
	return fmt.Sprintf("P%03d", seq)
}

// SpotCounts aggregates the spots of one lot. Occupied only counts active spots.
type SpotCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Occupied int `json:"occupied"`
}

func (c SpotCounts) Available() int {
	return c.Active - c.Occupied
}
