package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

type pgReservationRepository struct {
	db querier
}

func newPgReservationRepository(db querier) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

const reservationColumns = `r.id, r.user_id, r.spot_id, r.vehicle_number, r.in_time, r.out_time, r.hours,
	r.total_cost, r.is_release, r.created_at, r.updated_at`

const reservationDetailSelect = `SELECT ` + reservationColumns + `,
	u.username, l.id, l.name, l.address, l.city, l.pincode, s.spot_number, l.price_per_hour
	FROM reservations r
	JOIN users u ON u.id = r.user_id
	JOIN parking_spots s ON s.id = r.spot_id
	JOIN parking_lots l ON l.id = s.lot_id`

func scanReservation(dest []any, res *domain.Reservation) []any {
	return append(dest, &res.ID, &res.UserID, &res.SpotID, &res.VehicleNumber, &res.InTime, &res.OutTime,
		&res.Hours, &res.TotalCost, &res.Released, &res.CreatedAt, &res.UpdatedAt)
}

func normalizeReservation(res *domain.Reservation) {
	res.InTime = res.InTime.In(time.UTC)
	if res.OutTime.Valid {
		res.OutTime.Time = res.OutTime.Time.In(time.UTC)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
}

func scanReservationDetail(row interface{ Scan(...any) error }, d *domain.ReservationDetail) error {
	dest := scanReservation(nil, &d.Reservation)
	dest = append(dest, &d.Username, &d.LotID, &d.LotName, &d.Address, &d.City, &d.Pincode,
		&d.SpotNumber, &d.PricePerHour)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	normalizeReservation(&d.Reservation)
	return nil
}

func (r *pgReservationRepository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	query := `INSERT INTO reservations (user_id, spot_id, vehicle_number, in_time, is_release)
	           VALUES ($1, $2, $3, $4, FALSE)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, res.UserID, res.SpotID, res.VehicleNumber, res.InTime).
		Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: spot %d already has an active reservation", repository.ErrDuplicateEntry, res.SpotID)
		}
		return nil, fmt.Errorf("ReservationRepository.Create: %w", err)
	}
	normalizeReservation(res)
	return res, nil
}

func (r *pgReservationRepository) FindByID(ctx context.Context, id int) (*domain.ReservationDetail, error) {
	detail := &domain.ReservationDetail{}
	err := scanReservationDetail(r.db.QueryRowContext(ctx, reservationDetailSelect+` WHERE r.id = $1`, id), detail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	return detail, nil
}

func (r *pgReservationRepository) LockActiveByID(ctx context.Context, id int) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1 AND r.is_release = FALSE FOR UPDATE`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(scanReservation(nil, res)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoActiveReservation
		}
		return nil, fmt.Errorf("ReservationRepository.LockActiveByID: %w", err)
	}
	normalizeReservation(res)
	return res, nil
}

func (r *pgReservationRepository) Release(ctx context.Context, res *domain.Reservation) error {
	query := `UPDATE reservations
	           SET out_time = $1, hours = $2, total_cost = $3, is_release = TRUE, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $4 AND is_release = FALSE
	           RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, res.OutTime, res.Hours, res.TotalCost, res.ID).Scan(&res.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNoActiveReservation
		}
		return fmt.Errorf("ReservationRepository.Release: %w", err)
	}
	res.Released = true
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgReservationRepository) CountActiveByUserID(ctx context.Context, userID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM reservations WHERE user_id = $1 AND is_release = FALSE`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ReservationRepository.CountActiveByUserID: %w", err)
	}
	return count, nil
}

func (r *pgReservationRepository) CountsByUser(ctx context.Context) (map[int]domain.BookingCountRow, error) {
	query := `SELECT u.id, u.username,
	                 COUNT(r.id) FILTER (WHERE r.is_release = FALSE),
	                 COUNT(r.id) FILTER (WHERE r.is_release = TRUE)
	            FROM users u
	            JOIN reservations r ON r.user_id = u.id
	           GROUP BY u.id, u.username`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.CountsByUser: %w", err)
	}
	defer rows.Close()

	result := make(map[int]domain.BookingCountRow)
	for rows.Next() {
		var row domain.BookingCountRow
		if err := rows.Scan(&row.EntityID, &row.Name, &row.Active, &row.Completed); err != nil {
			return nil, fmt.Errorf("ReservationRepository.CountsByUser (scanning row): %w", err)
		}
		result[row.EntityID] = row
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.CountsByUser (rows error): %w", err)
	}
	return result, nil
}

func (r *pgReservationRepository) Find(ctx context.Context, filter domain.ReservationFilter) ([]domain.ReservationDetail, error) {
	var conditions []string
	var args []any
	argID := 1

	if filter.UserID.Valid {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", argID))
		args = append(args, filter.UserID.Int64)
		argID++
	}
	if filter.Released.Valid {
		conditions = append(conditions, fmt.Sprintf("r.is_release = $%d", argID))
		args = append(args, filter.Released.Bool)
		argID++
	}

	query := reservationDetailSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY r.in_time DESC, r.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find: %w", err)
	}
	defer rows.Close()

	var details []domain.ReservationDetail
	for rows.Next() {
		var detail domain.ReservationDetail
		if err := scanReservationDetail(rows, &detail); err != nil {
			return nil, fmt.Errorf("ReservationRepository.Find (scanning row): %w", err)
		}
		details = append(details, detail)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find (rows error): %w", err)
	}
	return details, nil
}
