package repository

import (
	"context"
	"errors"

	"parking_allocator/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")
var ErrNoActiveReservation = errors.New("no active reservation found")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindAll(ctx context.Context, admins bool) ([]domain.User, error)
	CountAdmins(ctx context.Context) (int, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	SoftDelete(ctx context.Context, id int) error
}

type ParkingLotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	// LockByID returns the lot and holds a row lock until the transaction ends.
	LockByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAll(ctx context.Context) ([]domain.ParkingLot, error)
	Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	SoftDelete(ctx context.Context, id int) error
}

type ParkingSpotRepository interface {
	CreateBatch(ctx context.Context, lotID int, seqs []int) ([]domain.ParkingSpot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingSpot, error)
	// FindByLotID lists active spots ordered by sequence.
	FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error)
	LockByID(ctx context.Context, id int) (*domain.ParkingSpot, error)
	LockByLotIDAndNumber(ctx context.Context, lotID int, number string) (*domain.ParkingSpot, error)
	LockFirstAvailable(ctx context.Context, lotID int) (*domain.ParkingSpot, error)
	// FindFirstAvailable is LockFirstAvailable without the row lock.
	FindFirstAvailable(ctx context.Context, lotID int) (*domain.ParkingSpot, error)
	CountByLotID(ctx context.Context, lotID int) (domain.SpotCounts, error)
	CountAllByLot(ctx context.Context) (map[int]domain.SpotCounts, error)
	// Reactivate restores up to limit deleted spots, lowest sequence first.
	Reactivate(ctx context.Context, lotID int, limit int) (int, error)
	// SoftDeleteAvailable removes up to limit available spots, highest sequence first.
	SoftDeleteAvailable(ctx context.Context, lotID int, limit int) (int, error)
	SoftDeleteByLotID(ctx context.Context, lotID int) (int, error)
	SoftDelete(ctx context.Context, id int) error
	SetOccupied(ctx context.Context, id int, occupied bool) error
}

type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error)
	FindByID(ctx context.Context, id int) (*domain.ReservationDetail, error)
	// LockActiveByID returns ErrNoActiveReservation for missing or released rows.
	LockActiveByID(ctx context.Context, id int) (*domain.Reservation, error)
	Release(ctx context.Context, r *domain.Reservation) error
	CountActiveByUserID(ctx context.Context, userID int) (int, error)
	CountsByUser(ctx context.Context) (map[int]domain.BookingCountRow, error)
	Find(ctx context.Context, filter domain.ReservationFilter) ([]domain.ReservationDetail, error)
}

type ReportRepository interface {
	LotBookingCounts(ctx context.Context, f domain.ReportFilter) ([]domain.BookingCountRow, error)
	LotMonthlyRevenue(ctx context.Context, f domain.ReportFilter) ([]domain.MonthlyAmountRow, error)
	UserBookingCounts(ctx context.Context, f domain.ReportFilter) ([]domain.BookingCountRow, error)
	UserMonthlySpend(ctx context.Context, f domain.ReportFilter) ([]domain.MonthlyAmountRow, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Users() UserRepository
	Lots() ParkingLotRepository
	Spots() ParkingSpotRepository
	Reservations() ReservationRepository
	Reports() ReportRepository
}

// Store runs fn inside a transaction: it commits when fn returns nil and rolls
// back otherwise. Repositories outside WithTx run without a transaction.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
	Close() error
}
