package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillableHours(t *testing.T) {
	in := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		elapsed time.Duration
		want    int64
	}{
		{"zero", 0, 0},
		{"one second", time.Second, 1},
		{"exactly one hour", time.Hour, 1},
		{"one hour one second", time.Hour + time.Second, 2},
		{"two and a half hours", 150 * time.Minute, 3},
		{"one day", 24 * time.Hour, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BillableHours(in, in.Add(tt.elapsed))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBillableHoursOutBeforeIn(t *testing.T) {
	in := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := BillableHours(in, in.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCharge(t *testing.T) {
	assert.Equal(t, 30.0, Charge(3, 10))
	assert.Equal(t, 0.0, Charge(0, 10))
	assert.Equal(t, 0.33, Charge(1, 0.333))
	assert.Equal(t, 40.5, Charge(3, 13.5))
}
