package domain

import "gopkg.in/guregu/null.v4"

type LotStats struct {
	LotID          int         `json:"lot_id"`
	LotName        string      `json:"lot_name"`
	Active         int         `json:"active"`
	Completed      int         `json:"completed"`
	MonthlyRevenue [12]float64 `json:"monthly_revenue"`
}

type UserStats struct {
	UserID       int         `json:"user_id"`
	Username     string      `json:"username"`
	Active       int         `json:"active"`
	Completed    int         `json:"completed"`
	MonthlySpend [12]float64 `json:"monthly_spend"`
}

// ReportFilter scopes a projection to one user when UserID is valid.
type ReportFilter struct {
	UserID null.Int
}

type BookingCountRow struct {
	EntityID  int
	Name      string
	Active    int
	Completed int
}

// MonthlyAmountRow is one (entity, month) bucket. Month is 1-12 or null.
type MonthlyAmountRow struct {
	EntityID int
	Name     string
	Month    null.Int
	Amount   float64
}
