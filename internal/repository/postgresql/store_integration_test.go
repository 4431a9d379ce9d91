package postgresql_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_allocator/internal/config"
	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
	"parking_allocator/internal/repository/postgresql"
	"parking_allocator/internal/service"
)

// Runs against the database configured by the DB_* variables.
func setupStore(t *testing.T) repository.Store {
	t.Helper()
	if os.Getenv("RUN_PG_INTEGRATION") != "true" {
		t.Skip("set RUN_PG_INTEGRATION=true to run PostgreSQL integration tests")
	}

	cfg := config.Load()
	db, err := postgresql.NewDB(cfg)
	require.NoError(t, err)
	require.NoError(t, postgresql.Migrate(context.Background(), db))

	store := postgresql.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func unique(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func TestOneActiveReservationPerSpot(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user, err := store.Users().Create(ctx, &domain.User{Username: unique("user"), PasswordHash: "x", Name: "T", City: "Delhi", Pincode: "110001"})
	require.NoError(t, err)
	lot, err := store.Lots().Create(ctx, &domain.ParkingLot{Name: unique("Lot"), Address: "a", City: "Delhi", Pincode: "110001", PricePerHour: 10, SpotCount: 1})
	require.NoError(t, err)
	spots, err := store.Spots().CreateBatch(ctx, lot.ID, []int{1})
	require.NoError(t, err)

	in := time.Now().UTC().Truncate(time.Second)
	_, err = store.Reservations().Create(ctx, &domain.Reservation{UserID: user.ID, SpotID: spots[0].ID, VehicleNumber: "DL3C1234", InTime: in})
	require.NoError(t, err)

	_, err = store.Reservations().Create(ctx, &domain.Reservation{UserID: user.ID, SpotID: spots[0].ID, VehicleNumber: "DL3C5678", InTime: in})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

func TestFindFirstAvailableIgnoresRowLocks(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	lot, err := store.Lots().Create(ctx, &domain.ParkingLot{Name: unique("Lot"), Address: "a", City: "Delhi", Pincode: "110001", PricePerHour: 10, SpotCount: 2})
	require.NoError(t, err)
	_, err = store.Spots().CreateBatch(ctx, lot.ID, []int{1, 2})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(tx repository.Repositories) error {
		locked, err := tx.Spots().LockFirstAvailable(ctx, lot.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "P001", locked.Number)

		preview, err := store.Spots().FindFirstAvailable(ctx, lot.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "P001", preview.Number)

		skipped, err := store.Spots().LockFirstAvailable(ctx, lot.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "P002", skipped.Number)
		return nil
	})
	require.NoError(t, err)
}

func TestWithTxRollsBack(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	name := unique("Rollback")

	errBoom := errors.New("boom")
	err := store.WithTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Lots().Create(ctx, &domain.ParkingLot{Name: name, Address: "a", City: "Delhi", Pincode: "110001"}); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	lots, err := store.Lots().FindAll(ctx)
	require.NoError(t, err)
	for _, lot := range lots {
		assert.NotEqual(t, name, lot.Name)
	}
}

func TestCentralScenarioOnPostgres(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	admin, err := store.Users().Create(ctx, &domain.User{Username: unique("admin"), PasswordHash: "x", IsAdmin: true, Name: "A", City: "Delhi", Pincode: "110043"})
	require.NoError(t, err)
	user, err := store.Users().Create(ctx, &domain.User{Username: unique("user"), PasswordHash: "x", Name: "U", City: "Delhi", Pincode: "110001"})
	require.NoError(t, err)
	adminP := domain.Principal{UserID: admin.ID, IsAdmin: true}
	userP := domain.Principal{UserID: user.ID}

	parking := service.NewParkingService(store, nil)
	in := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := in
	reservations := service.NewReservationService(store, nil).WithClock(func() time.Time { return clock })
	users := service.NewUserService(store)

	name := unique("central")
	dto := domain.ParkingLotDTO{Name: name, Address: "a", City: "Delhi", Pincode: "110001", PricePerHour: 10, SpotCount: 3}
	lot, err := parking.CreateParkingLot(ctx, adminP, dto)
	require.NoError(t, err)

	res, err := reservations.OpenReservation(ctx, userP, domain.OpenReservationDTO{LotID: lot.ID, SpotNumber: "P001", VehicleNumber: "DL3C1234"})
	require.NoError(t, err)

	dto.Name = lot.Name
	dto.SpotCount = 0
	_, err = parking.UpdateParkingLot(ctx, adminP, lot.ID, dto)
	assert.ErrorIs(t, err, service.ErrCapacityBelowOccupancy)

	dto.SpotCount = 2
	_, err = parking.UpdateParkingLot(ctx, adminP, lot.ID, dto)
	require.NoError(t, err)
	availability, err := parking.GetLotAvailability(ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, availability.Spots, 2)
	assert.Equal(t, "P001", availability.Spots[0].Number)
	assert.Equal(t, "P002", availability.Spots[1].Number)

	assert.ErrorIs(t, users.DeleteUser(ctx, adminP, user.ID), service.ErrActiveReservationExists)

	clock = time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)
	closed, err := reservations.CloseReservation(ctx, userP, res.ID, domain.CloseReservationDTO{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), closed.Hours.Int64)
	assert.Equal(t, 30.0, closed.TotalCost.Float64)

	_, err = reservations.CloseReservation(ctx, userP, res.ID, domain.CloseReservationDTO{})
	assert.ErrorIs(t, err, service.ErrReservationNotFound)

	require.NoError(t, users.DeleteUser(ctx, adminP, user.ID))
	require.NoError(t, parking.DeleteParkingLot(ctx, adminP, lot.ID))
}
