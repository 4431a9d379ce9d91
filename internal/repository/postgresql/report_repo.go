package postgresql

import (
	"context"
	"fmt"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

type pgReportRepository struct {
	db querier
}

func newPgReportRepository(db querier) repository.ReportRepository {
	return &pgReportRepository{db: db}
}

// userScope restricts a report to one user when the filter asks for it.
func userScope(f domain.ReportFilter) (string, []any) {
	if f.UserID.Valid {
		return ` WHERE r.user_id = $1`, []any{f.UserID.Int64}
	}
	return "", nil
}

func (r *pgReportRepository) LotBookingCounts(ctx context.Context, f domain.ReportFilter) ([]domain.BookingCountRow, error) {
	where, args := userScope(f)
	query := `SELECT l.id, l.name,
	                 COUNT(*) FILTER (WHERE r.is_release = FALSE),
	                 COUNT(*) FILTER (WHERE r.is_release = TRUE)
	            FROM reservations r
	            JOIN parking_spots s ON s.id = r.spot_id
	            JOIN parking_lots l ON l.id = s.lot_id` + where + `
	           GROUP BY l.id, l.name
	           ORDER BY l.name`
	return r.queryCounts(ctx, "LotBookingCounts", query, args...)
}

func (r *pgReportRepository) UserBookingCounts(ctx context.Context, f domain.ReportFilter) ([]domain.BookingCountRow, error) {
	where, args := userScope(f)
	query := `SELECT u.id, u.username,
	                 COUNT(*) FILTER (WHERE r.is_release = FALSE),
	                 COUNT(*) FILTER (WHERE r.is_release = TRUE)
	            FROM reservations r
	            JOIN users u ON u.id = r.user_id` + where + `
	           GROUP BY u.id, u.username
	           ORDER BY u.username`
	return r.queryCounts(ctx, "UserBookingCounts", query, args...)
}

func (r *pgReportRepository) LotMonthlyRevenue(ctx context.Context, f domain.ReportFilter) ([]domain.MonthlyAmountRow, error) {
	where, args := userScope(f)
	if where == "" {
		where = ` WHERE r.is_release = TRUE`
	} else {
		where += ` AND r.is_release = TRUE`
	}
	query := `SELECT l.id, l.name, EXTRACT(MONTH FROM r.out_time AT TIME ZONE 'UTC')::INT, COALESCE(SUM(r.total_cost), 0)
	            FROM reservations r
	            JOIN parking_spots s ON s.id = r.spot_id
	            JOIN parking_lots l ON l.id = s.lot_id` + where + `
	           GROUP BY 1, 2, 3`
	return r.queryMonthly(ctx, "LotMonthlyRevenue", query, args...)
}

func (r *pgReportRepository) UserMonthlySpend(ctx context.Context, f domain.ReportFilter) ([]domain.MonthlyAmountRow, error) {
	where, args := userScope(f)
	if where == "" {
		where = ` WHERE r.is_release = TRUE`
	} else {
		where += ` AND r.is_release = TRUE`
	}
	query := `SELECT u.id, u.username, EXTRACT(MONTH FROM r.in_time AT TIME ZONE 'UTC')::INT, COALESCE(SUM(r.total_cost), 0)
	            FROM reservations r
	            JOIN users u ON u.id = r.user_id` + where + `
	           GROUP BY 1, 2, 3`
	return r.queryMonthly(ctx, "UserMonthlySpend", query, args...)
}

func (r *pgReportRepository) queryCounts(ctx context.Context, op, query string, args ...any) ([]domain.BookingCountRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.%s: %w", op, err)
	}
	defer rows.Close()

	var result []domain.BookingCountRow
	for rows.Next() {
		var row domain.BookingCountRow
		if err := rows.Scan(&row.EntityID, &row.Name, &row.Active, &row.Completed); err != nil {
			return nil, fmt.Errorf("ReportRepository.%s (scanning row): %w", op, err)
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReportRepository.%s (rows error): %w", op, err)
	}
	return result, nil
}

func (r *pgReportRepository) queryMonthly(ctx context.Context, op, query string, args ...any) ([]domain.MonthlyAmountRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReportRepository.%s: %w", op, err)
	}
	defer rows.Close()

	var result []domain.MonthlyAmountRow
	for rows.Next() {
		var row domain.MonthlyAmountRow
		if err := rows.Scan(&row.EntityID, &row.Name, &row.Month, &row.Amount); err != nil {
			return nil, fmt.Errorf("ReportRepository.%s (scanning row): %w", op, err)
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReportRepository.%s (rows error): %w", op, err)
	}
	return result, nil
}
