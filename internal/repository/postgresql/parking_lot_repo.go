package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

type pgParkingLotRepository struct {
	db querier
}

func newPgParkingLotRepository(db querier) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

const lotColumns = `id, name, address, city, pincode, price_per_hour, spot_count, state, created_at, updated_at`

func scanLot(row interface{ Scan(...any) error }, lot *domain.ParkingLot) error {
	err := row.Scan(&lot.ID, &lot.Name, &lot.Address, &lot.City, &lot.Pincode, &lot.PricePerHour,
		&lot.SpotCount, &lot.State, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		return err
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgParkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	query := `INSERT INTO parking_lots (name, address, city, pincode, price_per_hour, spot_count, state)
	           VALUES ($1, $2, $3, $4, $5, $6, 'active')
	           RETURNING id, state, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, lot.Name, lot.Address, lot.City, lot.Pincode,
		lot.PricePerHour, lot.SpotCount).Scan(&lot.ID, &lot.State, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: parking lot '%s'", repository.ErrDuplicateEntry, lot.Name)
		}
		return nil, fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return r.findOne(ctx, "FindByID", `SELECT `+lotColumns+` FROM parking_lots WHERE id = $1`, id)
}

func (r *pgParkingLotRepository) LockByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return r.findOne(ctx, "LockByID", `SELECT `+lotColumns+` FROM parking_lots WHERE id = $1 FOR UPDATE`, id)
}

func (r *pgParkingLotRepository) findOne(ctx context.Context, op, query string, args ...any) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	if err := scanLot(r.db.QueryRowContext(ctx, query, args...), lot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.%s: %w", op, err)
	}
	return lot, nil
}

func (r *pgParkingLotRepository) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE state = 'active' ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var lots []domain.ParkingLot
	for rows.Next() {
		var lot domain.ParkingLot
		if err := scanLot(rows, &lot); err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAll (scanning row): %w", err)
		}
		lots = append(lots, lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll (rows error): %w", err)
	}
	return lots, nil
}

func (r *pgParkingLotRepository) Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	query := `UPDATE parking_lots SET name = $1, address = $2, city = $3, pincode = $4, price_per_hour = $5,
	           spot_count = $6, updated_at = CURRENT_TIMESTAMP WHERE id = $7 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, lot.Name, lot.Address, lot.City, lot.Pincode,
		lot.PricePerHour, lot.SpotCount, lot.ID).Scan(&lot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: parking lot '%s'", repository.ErrDuplicateEntry, lot.Name)
		}
		return nil, fmt.Errorf("ParkingLotRepository.Update: %w", err)
	}
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) SoftDelete(ctx context.Context, id int) error {
	query := `UPDATE parking_lots SET state = 'deleted', spot_count = 0, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1 AND state = 'active'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.SoftDelete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.SoftDelete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
