package service

import (
	"math"
	"time"
)

// BillableHours rounds elapsed time up to whole hours: 1s bills 1h, 3600s bills
// 1h, 3601s bills 2h. Zero elapsed time bills nothing.
func BillableHours(in, out time.Time) (int64, error) {
	if out.Before(in) {
		return 0, validationError("out time %s is before in time %s", out.Format(time.RFC3339), in.Format(time.RFC3339))
	}
	elapsed := out.Sub(in)
	hours := int64(elapsed / time.Hour)
	if elapsed%time.Hour != 0 {
		hours++
	}
	return hours, nil
}

// Charge is hours times the hourly price, rounded to cents.
func Charge(hours int64, pricePerHour float64) float64 {
	return math.Round(float64(hours)*pricePerHour*100) / 100
}
