package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"parking_allocator/internal/repository"
)

type pgRepositories struct {
	q querier
}

func (r pgRepositories) Users() repository.UserRepository       { return newPgUserRepository(r.q) }
func (r pgRepositories) Lots() repository.ParkingLotRepository   { return newPgParkingLotRepository(r.q) }
func (r pgRepositories) Spots() repository.ParkingSpotRepository { return newPgParkingSpotRepository(r.q) }
func (r pgRepositories) Reservations() repository.ReservationRepository {
	return newPgReservationRepository(r.q)
}
func (r pgRepositories) Reports() repository.ReportRepository { return newPgReportRepository(r.q) }

type pgStore struct {
	pgRepositories
	db *sql.DB
}

func NewStore(db *sql.DB) repository.Store {
	return &pgStore{pgRepositories: pgRepositories{q: db}, db: db}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Store.WithTx (begin): %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(pgRepositories{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("Store.WithTx (commit): %w", err)
	}
	return nil
}

func (s *pgStore) Close() error {
	return s.db.Close()
}
