package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"parking_allocator/internal/domain"
)

func TestReleaseBillsWholeHours(t *testing.T) {
	env := newTestEnv(t)
	user := env.user(t, "asha")
	lot := env.lot(t, "Central", 3, 10)

	res := env.open(t, user, lot.ID, "P001", at(10, 0))
	assert.Equal(t, "P001", res.SpotNumber)
	assert.Equal(t, "Central", res.LotName)
	assert.False(t, res.Released)
	assert.False(t, res.OutTime.Valid)

	env.clock = at(12, 30)
	hours, cost := int64(1), 5.0
	closed, err := env.reservations.CloseReservation(context.Background(), user, res.ID, domain.CloseReservationDTO{
		Hours:     &hours,
		TotalCost: &cost,
	})
	require.NoError(t, err)
	assert.True(t, closed.Released)
	assert.Equal(t, int64(3), closed.Hours.Int64)
	assert.Equal(t, 30.0, closed.TotalCost.Float64)
	assert.True(t, closed.OutTime.Time.Equal(at(12, 30)))

	event := env.notifier.last()
	assert.Equal(t, domain.EventReservationReleased, event.Type)
	assert.Equal(t, 30.0, event.TotalCost)
	assert.Equal(t, 3, event.Available)

	_, err = env.reservations.CloseReservation(context.Background(), user, res.ID, domain.CloseReservationDTO{})
	assert.ErrorIs(t, err, ErrReservationNotFound)

	availability, err := env.parking.GetLotAvailability(context.Background(), lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, availability.Occupied)
}

func timePtr(t time.Time) *time.Time { return &t }

func TestOpenReservationAssignsLowestFreeSpot(t *testing.T) {
	env := newTestEnv(t)
	user := env.user(t, "asha")
	lot := env.lot(t, "Central", 2, 10)

	first := env.open(t, user, lot.ID, "", at(10, 0))
	second := env.open(t, user, lot.ID, "", at(10, 5))
	assert.Equal(t, "P001", first.SpotNumber)
	assert.Equal(t, "P002", second.SpotNumber)
	assert.Equal(t, "DL3C1234", first.VehicleNumber)

	event := env.notifier.last()
	assert.Equal(t, domain.EventReservationOpened, event.Type)
	assert.Equal(t, 2, event.Occupied)
	assert.Equal(t, 0, event.Available)

	_, err := env.reservations.OpenReservation(context.Background(), user, domain.OpenReservationDTO{LotID: lot.ID, VehicleNumber: "KA01MJ2022"})
	assert.ErrorIs(t, err, ErrNoSpotAvailable)
}

func TestOpenReservationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "asha")
	lot := env.lot(t, "Central", 2, 10)
	env.open(t, user, lot.ID, "P001", at(10, 0))

	tests := []struct {
		name string
		p    domain.Principal
		dto  domain.OpenReservationDTO
		want error
	}{
		{"spot taken", user, domain.OpenReservationDTO{LotID: lot.ID, SpotNumber: "p001", VehicleNumber: "MH12AB1234"}, ErrSpotOccupied},
		{"unknown spot", user, domain.OpenReservationDTO{LotID: lot.ID, SpotNumber: "P009", VehicleNumber: "MH12AB1234"}, ErrSpotNotFound},
		{"unknown lot", user, domain.OpenReservationDTO{LotID: 999, VehicleNumber: "MH12AB1234"}, ErrLotNotFound},
		{"blank vehicle", user, domain.OpenReservationDTO{LotID: lot.ID, VehicleNumber: "   "}, ErrValidation},
		{"unknown user", domain.Principal{UserID: 999}, domain.OpenReservationDTO{LotID: lot.ID, VehicleNumber: "MH12AB1234"}, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reservations.OpenReservation(ctx, tt.p, tt.dto)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("lowercase spot number", func(t *testing.T) {
		res, err := env.reservations.OpenReservation(ctx, user, domain.OpenReservationDTO{LotID: lot.ID, SpotNumber: " p002 ", VehicleNumber: "mh 12 ab 1234"})
		require.NoError(t, err)
		assert.Equal(t, "P002", res.SpotNumber)
		assert.Equal(t, "MH12AB1234", res.VehicleNumber)
	})
}

func TestOpenReservationUsesClockWhenNoInTime(t *testing.T) {
	env := newTestEnv(t)
	user := env.user(t, "asha")
	lot := env.lot(t, "Central", 1, 10)

	res, err := env.reservations.OpenReservation(context.Background(), user, domain.OpenReservationDTO{LotID: lot.ID, VehicleNumber: "DL3C1234"})
	require.NoError(t, err)
	assert.True(t, res.InTime.Equal(fixedNow))
}

func TestOpenReservationStampsServerTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "asha")
	lot := env.lot(t, "Central", 3, 10)

	_, err := env.reservations.OpenReservation(ctx, user, domain.OpenReservationDTO{
		LotID: lot.ID, VehicleNumber: "DL3C1234", InTime: timePtr(fixedNow.AddDate(1, 0, 0)),
	})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.reservations.OpenReservation(ctx, env.admin, domain.OpenReservationDTO{
		LotID: lot.ID, VehicleNumber: "DL3C1234", InTime: timePtr(fixedNow.Add(time.Minute)),
	})
	assert.ErrorIs(t, err, ErrValidation)

	availability, err := env.parking.GetLotAvailability(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, availability.Occupied)

	res, err := env.reservations.OpenReservation(ctx, user, domain.OpenReservationDTO{
		LotID: lot.ID, VehicleNumber: "DL3C1234", InTime: timePtr(at(6, 0)),
	})
	require.NoError(t, err)
	assert.True(t, res.InTime.Equal(fixedNow))

	backfilled, err := env.reservations.OpenReservation(ctx, env.admin, domain.OpenReservationDTO{
		LotID: lot.ID, VehicleNumber: "KA01MJ2022", InTime: timePtr(at(6, 0)),
	})
	require.NoError(t, err)
	assert.True(t, backfilled.InTime.Equal(at(6, 0)))
}

func TestCloseReservationBillsServerTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "asha")
	lot := env.lot(t, "Central", 1, 10)
	res := env.open(t, user, lot.ID, "", at(10, 0))

	env.clock = at(13, 0)
	closed, err := env.reservations.CloseReservation(ctx, user, res.ID, domain.CloseReservationDTO{
		OutTime: timePtr(at(10, 0).Add(time.Second)),
	})
	require.NoError(t, err)
	assert.True(t, closed.OutTime.Time.Equal(at(13, 0)))
	assert.Equal(t, int64(3), closed.Hours.Int64)
	assert.Equal(t, 30.0, closed.TotalCost.Float64)
}

func TestCloseReservationAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "asha")
	other := env.user(t, "ravi")
	lot := env.lot(t, "Central", 2, 10)
	res := env.open(t, owner, lot.ID, "", at(10, 0))

	_, err := env.reservations.CloseReservation(ctx, other, res.ID, domain.CloseReservationDTO{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.reservations.CloseReservation(ctx, owner, res.ID, domain.CloseReservationDTO{OutTime: timePtr(at(11, 0))})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.reservations.CloseReservation(ctx, owner, 999, domain.CloseReservationDTO{})
	assert.ErrorIs(t, err, ErrReservationNotFound)

	closed, err := env.reservations.CloseReservation(ctx, env.admin, res.ID, domain.CloseReservationDTO{OutTime: timePtr(at(10, 0))})
	require.NoError(t, err)
	assert.Equal(t, int64(0), closed.Hours.Int64)
	assert.Equal(t, 0.0, closed.TotalCost.Float64)
}

func TestQuoteRelease(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.user(t, "asha")
	lot := env.lot(t, "Central", 1, 12.5)
	res := env.open(t, user, lot.ID, "", at(10, 0))

	quote, err := env.reservations.QuoteRelease(ctx, user, res.ID, timePtr(at(11, 1)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), quote.Hours)
	assert.Equal(t, 25.0, quote.TotalCost)
	assert.Equal(t, "P001", quote.SpotNumber)

	_, err = env.reservations.QuoteRelease(ctx, env.user(t, "ravi"), res.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	env.release(t, user, res.ID, at(11, 0))
	_, err = env.reservations.QuoteRelease(ctx, user, res.ID, nil)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestListReservations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asha := env.user(t, "asha")
	ravi := env.user(t, "ravi")
	lot := env.lot(t, "Central", 3, 10)

	first := env.open(t, asha, lot.ID, "", at(10, 0))
	env.open(t, asha, lot.ID, "", at(10, 30))
	env.open(t, ravi, lot.ID, "", at(11, 0))
	env.release(t, asha, first.ID, at(12, 0))

	all, err := env.reservations.ListReservations(ctx, env.admin, null.Bool{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := env.reservations.ListReservations(ctx, asha, null.Bool{})
	require.NoError(t, err)
	assert.Len(t, own, 2)

	active, err := env.reservations.ListReservations(ctx, asha, null.BoolFrom(false))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.False(t, active[0].Released)

	released, err := env.reservations.ListReservations(ctx, ravi, null.BoolFrom(true))
	require.NoError(t, err)
	assert.NotNil(t, released)
	assert.Empty(t, released)
}
