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

func TestReportStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asha := env.user(t, "asha")
	ravi := env.user(t, "ravi")
	central := env.lot(t, "Central", 2, 10)
	north := env.lot(t, "North", 1, 20)

	jan := time.Date(2024, 1, 31, 22, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)

	r1 := env.open(t, asha, central.ID, "", jan)
	env.release(t, asha, r1.ID, feb)
	env.open(t, asha, central.ID, "", feb)
	r3 := env.open(t, ravi, north.ID, "", jan)
	env.release(t, ravi, r3.ID, jan.Add(time.Hour))

	t.Run("admin sees every lot", func(t *testing.T) {
		stats, err := env.reports.LotStats(ctx, env.admin)
		require.NoError(t, err)
		require.Len(t, stats, 2)

		assert.Equal(t, "Central", stats[0].LotName)
		assert.Equal(t, 1, stats[0].Active)
		assert.Equal(t, 1, stats[0].Completed)
		assert.Equal(t, 30.0, stats[0].MonthlyRevenue[1])
		assert.Equal(t, 0.0, stats[0].MonthlyRevenue[0])

		assert.Equal(t, "North", stats[1].LotName)
		assert.Equal(t, 20.0, stats[1].MonthlyRevenue[0])
	})

	t.Run("user sees own bookings only", func(t *testing.T) {
		stats, err := env.reports.UserStats(ctx, asha)
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, "asha", stats[0].Username)
		assert.Equal(t, 1, stats[0].Active)
		assert.Equal(t, 1, stats[0].Completed)
		assert.Equal(t, 30.0, stats[0].MonthlySpend[0])

		lots, err := env.reports.LotStats(ctx, ravi)
		require.NoError(t, err)
		require.Len(t, lots, 1)
		assert.Equal(t, "North", lots[0].LotName)
	})

	t.Run("empty history", func(t *testing.T) {
		stats, err := env.reports.UserStats(ctx, env.user(t, "meera"))
		require.NoError(t, err)
		assert.Empty(t, stats)
	})
}

func TestProjectSkipsInvalidMonths(t *testing.T) {
	projected := project(
		[]domain.BookingCountRow{{EntityID: 1, Name: "b", Active: 1}},
		[]domain.MonthlyAmountRow{
			{EntityID: 1, Name: "b", Month: null.IntFrom(3), Amount: 5},
			{EntityID: 1, Name: "b", Month: null.Int{}, Amount: 7},
			{EntityID: 1, Name: "b", Month: null.IntFrom(13), Amount: 9},
			{EntityID: 2, Name: "a", Month: null.IntFrom(3), Amount: 1},
		},
	)
	require.Len(t, projected, 2)
	assert.Equal(t, "a", projected[0].name)
	assert.Equal(t, 5.0, projected[1].monthly[2])
	assert.Equal(t, 5.0, sum(projected[1].monthly))
}

func sum(values [12]float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
