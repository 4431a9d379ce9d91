package memory

import (
	"context"
	"sort"
	"time"

	"gopkg.in/guregu/null.v4"

	"parking_allocator/internal/domain"
)

type reportRepository struct {
	repositories
}

type reportKey struct {
	id    int
	month int64
	valid bool
}

func inScope(f domain.ReportFilter, res domain.Reservation) bool {
	return !f.UserID.Valid || int64(res.UserID) == f.UserID.Int64
}

func lotOf(st *state, res domain.Reservation) domain.ParkingLot {
	return st.lots[st.spots[res.SpotID].LotID]
}

func (r *reportRepository) counts(f domain.ReportFilter, entity func(st *state, res domain.Reservation) (int, string)) ([]domain.BookingCountRow, error) {
	var rows []domain.BookingCountRow
	err := r.a.read(func(st *state) error {
		byID := make(map[int]*domain.BookingCountRow)
		for _, res := range st.reservations {
			if !inScope(f, res) {
				continue
			}
			id, name := entity(st, res)
			row, ok := byID[id]
			if !ok {
				row = &domain.BookingCountRow{EntityID: id, Name: name}
				byID[id] = row
			}
			if res.Released {
				row.Completed++
			} else {
				row.Active++
			}
		}
		for _, row := range byID {
			rows = append(rows, *row)
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, err
}

func (r *reportRepository) monthly(f domain.ReportFilter,
	entity func(st *state, res domain.Reservation) (int, string),
	month func(res domain.Reservation) null.Time,
) ([]domain.MonthlyAmountRow, error) {
	var rows []domain.MonthlyAmountRow
	err := r.a.read(func(st *state) error {
		sums := make(map[reportKey]*domain.MonthlyAmountRow)
		for _, res := range st.reservations {
			if !res.Released || !inScope(f, res) {
				continue
			}
			id, name := entity(st, res)
			at := month(res)
			key := reportKey{id: id, valid: at.Valid}
			if at.Valid {
				key.month = int64(at.Time.In(time.UTC).Month())
			}
			row, ok := sums[key]
			if !ok {
				row = &domain.MonthlyAmountRow{EntityID: id, Name: name, Month: null.NewInt(key.month, key.valid)}
				sums[key] = row
			}
			row.Amount += res.TotalCost.Float64
		}
		for _, row := range sums {
			rows = append(rows, *row)
		}
		return nil
	})
	return rows, err
}

func lotEntity(st *state, res domain.Reservation) (int, string) {
	lot := lotOf(st, res)
	return lot.ID, lot.Name
}

func userEntity(st *state, res domain.Reservation) (int, string) {
	return res.UserID, st.users[res.UserID].Username
}

func (r *reportRepository) LotBookingCounts(ctx context.Context, f domain.ReportFilter) ([]domain.BookingCountRow, error) {
	return r.counts(f, lotEntity)
}

func (r *reportRepository) UserBookingCounts(ctx context.Context, f domain.ReportFilter) ([]domain.BookingCountRow, error) {
	return r.counts(f, userEntity)
}

func (r *reportRepository) LotMonthlyRevenue(ctx context.Context, f domain.ReportFilter) ([]domain.MonthlyAmountRow, error) {
	return r.monthly(f, lotEntity, func(res domain.Reservation) null.Time { return res.OutTime })
}

func (r *reportRepository) UserMonthlySpend(ctx context.Context, f domain.ReportFilter) ([]domain.MonthlyAmountRow, error) {
	return r.monthly(f, userEntity, func(res domain.Reservation) null.Time { return null.TimeFrom(res.InTime) })
}
