package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.ParkingEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.ParkingEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) last() domain.ParkingEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

type testEnv struct {
	store        *memory.Store
	notifier     *recordingNotifier
	parking      *ParkingService
	reservations *ReservationService
	users        *UserService
	reports      *ReportService
	admin        domain.Principal
	clock        time.Time
}

var fixedNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	env := &testEnv{
		store:    store,
		notifier: notifier,
		parking:  NewParkingService(store, notifier),
		users:    NewUserService(store),
		reports:  NewReportService(store.Reports()),
		clock:    fixedNow,
	}
	env.reservations = NewReservationService(store, notifier).WithClock(func() time.Time { return env.clock })
	admin, err := store.Users().Create(context.Background(), &domain.User{Username: "admin", IsAdmin: true})
	require.NoError(t, err)
	env.admin = domain.Principal{UserID: admin.ID, Username: admin.Username, IsAdmin: true}
	return env
}

func (env *testEnv) user(t *testing.T, username string) domain.Principal {
	t.Helper()
	u, err := env.store.Users().Create(context.Background(), &domain.User{Username: username, Name: "Test", City: "Delhi", Pincode: "110001"})
	require.NoError(t, err)
	return domain.Principal{UserID: u.ID, Username: u.Username}
}

func (env *testEnv) lot(t *testing.T, name string, spots int, price float64) *domain.ParkingLot {
	t.Helper()
	lot, err := env.parking.CreateParkingLot(context.Background(), env.admin, domain.ParkingLotDTO{
		Name:         name,
		Address:      "1 main road",
		City:         "delhi",
		Pincode:      "110001",
		PricePerHour: price,
		SpotCount:    spots,
	})
	require.NoError(t, err)
	return lot
}

// open books at the given clock time.
func (env *testEnv) open(t *testing.T, p domain.Principal, lotID int, spot string, in time.Time) *domain.ReservationDetail {
	t.Helper()
	env.clock = in
	res, err := env.reservations.OpenReservation(context.Background(), p, domain.OpenReservationDTO{
		LotID:         lotID,
		SpotNumber:    spot,
		VehicleNumber: "DL3C1234",
	})
	require.NoError(t, err)
	return res
}

func (env *testEnv) release(t *testing.T, p domain.Principal, id int, out time.Time) *domain.ReservationDetail {
	t.Helper()
	env.clock = out
	res, err := env.reservations.CloseReservation(context.Background(), p, id, domain.CloseReservationDTO{})
	require.NoError(t, err)
	return res
}

func spotNumbers(spots []domain.ParkingSpot) []string {
	numbers := make([]string, 0, len(spots))
	for _, s := range spots {
		numbers = append(numbers, s.Number)
	}
	return numbers
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}
