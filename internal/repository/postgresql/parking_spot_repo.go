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

type pgParkingSpotRepository struct {
	db querier
}

func newPgParkingSpotRepository(db querier) repository.ParkingSpotRepository {
	return &pgParkingSpotRepository{db: db}
}

const spotColumns = `id, lot_id, seq, spot_number, occupied, state, created_at, updated_at`

func scanSpot(row interface{ Scan(...any) error }, spot *domain.ParkingSpot) error {
	err := row.Scan(&spot.ID, &spot.LotID, &spot.Seq, &spot.Number, &spot.Occupied, &spot.State,
		&spot.CreatedAt, &spot.UpdatedAt)
	if err != nil {
		return err
	}
	spot.CreatedAt = spot.CreatedAt.In(time.UTC)
	spot.UpdatedAt = spot.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgParkingSpotRepository) CreateBatch(ctx context.Context, lotID int, seqs []int) ([]domain.ParkingSpot, error) {
	query := `INSERT INTO parking_spots (lot_id, seq, spot_number, occupied, state)
	           VALUES ($1, $2, $3, FALSE, 'active')
	           RETURNING ` + spotColumns
	spots := make([]domain.ParkingSpot, 0, len(seqs))
	for _, seq := range seqs {
		var spot domain.ParkingSpot
		err := scanSpot(r.db.QueryRowContext(ctx, query, lotID, seq, domain.SpotNumber(seq)), &spot)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: spot %s in lot %d", repository.ErrDuplicateEntry, domain.SpotNumber(seq), lotID)
			}
			return nil, fmt.Errorf("ParkingSpotRepository.CreateBatch: %w", err)
		}
		spots = append(spots, spot)
	}
	return spots, nil
}

func (r *pgParkingSpotRepository) findOne(ctx context.Context, op, query string, args ...any) (*domain.ParkingSpot, error) {
	spot := &domain.ParkingSpot{}
	if err := scanSpot(r.db.QueryRowContext(ctx, query, args...), spot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSpotRepository.%s: %w", op, err)
	}
	return spot, nil
}

func (r *pgParkingSpotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSpot, error) {
	return r.findOne(ctx, "FindByID", `SELECT `+spotColumns+` FROM parking_spots WHERE id = $1`, id)
}

func (r *pgParkingSpotRepository) LockByID(ctx context.Context, id int) (*domain.ParkingSpot, error) {
	return r.findOne(ctx, "LockByID", `SELECT `+spotColumns+` FROM parking_spots WHERE id = $1 FOR UPDATE`, id)
}

func (r *pgParkingSpotRepository) LockByLotIDAndNumber(ctx context.Context, lotID int, number string) (*domain.ParkingSpot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots
	           WHERE lot_id = $1 AND spot_number = $2 AND state = 'active'
	           FOR UPDATE`
	return r.findOne(ctx, "LockByLotIDAndNumber", query, lotID, number)
}

func (r *pgParkingSpotRepository) LockFirstAvailable(ctx context.Context, lotID int) (*domain.ParkingSpot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots
	           WHERE lot_id = $1 AND state = 'active' AND occupied = FALSE
	           ORDER BY seq ASC LIMIT 1
	           FOR UPDATE SKIP LOCKED`
	return r.findOne(ctx, "LockFirstAvailable", query, lotID)
}

func (r *pgParkingSpotRepository) FindFirstAvailable(ctx context.Context, lotID int) (*domain.ParkingSpot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots
	           WHERE lot_id = $1 AND state = 'active' AND occupied = FALSE
	           ORDER BY seq ASC LIMIT 1`
	return r.findOne(ctx, "FindFirstAvailable", query, lotID)
}

func (r *pgParkingSpotRepository) FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE lot_id = $1 AND state = 'active' ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpotRepository.FindByLotID: %w", err)
	}
	defer rows.Close()

	var spots []domain.ParkingSpot
	for rows.Next() {
		var spot domain.ParkingSpot
		if err := scanSpot(rows, &spot); err != nil {
			return nil, fmt.Errorf("ParkingSpotRepository.FindByLotID (scanning row): %w", err)
		}
		spots = append(spots, spot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSpotRepository.FindByLotID (rows error): %w", err)
	}
	return spots, nil
}

const spotCountsSelect = `SELECT lot_id,
	       COUNT(*),
	       COUNT(*) FILTER (WHERE state = 'active'),
	       COUNT(*) FILTER (WHERE state = 'active' AND occupied)
	  FROM parking_spots`

func (r *pgParkingSpotRepository) CountByLotID(ctx context.Context, lotID int) (domain.SpotCounts, error) {
	var counts domain.SpotCounts
	var ignored int
	query := spotCountsSelect + ` WHERE lot_id = $1 GROUP BY lot_id`
	err := r.db.QueryRowContext(ctx, query, lotID).Scan(&ignored, &counts.Total, &counts.Active, &counts.Occupied)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return counts, fmt.Errorf("ParkingSpotRepository.CountByLotID: %w", err)
	}
	return counts, nil
}

func (r *pgParkingSpotRepository) CountAllByLot(ctx context.Context) (map[int]domain.SpotCounts, error) {
	rows, err := r.db.QueryContext(ctx, spotCountsSelect+` GROUP BY lot_id`)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpotRepository.CountAllByLot: %w", err)
	}
	defer rows.Close()

	result := make(map[int]domain.SpotCounts)
	for rows.Next() {
		var lotID int
		var counts domain.SpotCounts
		if err := rows.Scan(&lotID, &counts.Total, &counts.Active, &counts.Occupied); err != nil {
			return nil, fmt.Errorf("ParkingSpotRepository.CountAllByLot (scanning row): %w", err)
		}
		result[lotID] = counts
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSpotRepository.CountAllByLot (rows error): %w", err)
	}
	return result, nil
}

func (r *pgParkingSpotRepository) Reactivate(ctx context.Context, lotID int, limit int) (int, error) {
	query := `UPDATE parking_spots SET state = 'active', occupied = FALSE, updated_at = CURRENT_TIMESTAMP
	           WHERE id IN (
	               SELECT id FROM parking_spots
	                WHERE lot_id = $1 AND state = 'deleted'
	                ORDER BY seq ASC LIMIT $2
	                FOR UPDATE)`
	return r.execCount(ctx, "Reactivate", query, lotID, limit)
}

func (r *pgParkingSpotRepository) SoftDeleteAvailable(ctx context.Context, lotID int, limit int) (int, error) {
	query := `UPDATE parking_spots SET state = 'deleted', updated_at = CURRENT_TIMESTAMP
	           WHERE id IN (
	               SELECT id FROM parking_spots
	                WHERE lot_id = $1 AND state = 'active' AND occupied = FALSE
	                ORDER BY seq DESC LIMIT $2
	                FOR UPDATE)`
	return r.execCount(ctx, "SoftDeleteAvailable", query, lotID, limit)
}

func (r *pgParkingSpotRepository) SoftDeleteByLotID(ctx context.Context, lotID int) (int, error) {
	query := `UPDATE parking_spots SET state = 'deleted', updated_at = CURRENT_TIMESTAMP
	           WHERE lot_id = $1 AND state = 'active'`
	return r.execCount(ctx, "SoftDeleteByLotID", query, lotID)
}

func (r *pgParkingSpotRepository) SoftDelete(ctx context.Context, id int) error {
	query := `UPDATE parking_spots SET state = 'deleted', updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1 AND state = 'active'`
	n, err := r.execCount(ctx, "SoftDelete", query, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingSpotRepository) SetOccupied(ctx context.Context, id int, occupied bool) error {
	query := `UPDATE parking_spots SET occupied = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	n, err := r.execCount(ctx, "SetOccupied", query, occupied, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingSpotRepository) execCount(ctx context.Context, op, query string, args ...any) (int, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ParkingSpotRepository.%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ParkingSpotRepository.%s (checking rows affected): %w", op, err)
	}
	return int(rowsAffected), nil
}
