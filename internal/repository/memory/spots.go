package memory

import (
	"context"
	"sort"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

type parkingSpotRepository struct {
	repositories
}

// lotSpots returns the spots of a lot ordered by sequence.
func lotSpots(st *state, lotID int) []domain.ParkingSpot {
	var spots []domain.ParkingSpot
	for _, spot := range st.spots {
		if spot.LotID == lotID {
			spots = append(spots, spot)
		}
	}
	sort.Slice(spots, func(i, j int) bool { return spots[i].Seq < spots[j].Seq })
	return spots
}

func countSpots(spots []domain.ParkingSpot) domain.SpotCounts {
	var counts domain.SpotCounts
	for _, spot := range spots {
		counts.Total++
		if spot.State == domain.StateActive {
			counts.Active++
			if spot.Occupied {
				counts.Occupied++
			}
		}
	}
	return counts
}

func (r *parkingSpotRepository) CreateBatch(ctx context.Context, lotID int, seqs []int) ([]domain.ParkingSpot, error) {
	var created []domain.ParkingSpot
	err := r.a.write(func(st *state) error {
		if _, ok := st.lots[lotID]; !ok {
			return repository.ErrNotFound
		}
		taken := make(map[int]bool)
		for _, spot := range lotSpots(st, lotID) {
			taken[spot.Seq] = true
		}
		now := r.timestamp()
		for _, seq := range seqs {
			if taken[seq] {
				return repository.ErrDuplicateEntry
			}
			taken[seq] = true
			spot := domain.ParkingSpot{
				ID:        st.nextID("parking_spots"),
				LotID:     lotID,
				Seq:       seq,
				Number:    domain.SpotNumber(seq),
				State:     domain.StateActive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			st.spots[spot.ID] = spot
			created = append(created, spot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *parkingSpotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSpot, error) {
	var spot domain.ParkingSpot
	err := r.a.read(func(st *state) error {
		found, ok := st.spots[id]
		if !ok {
			return repository.ErrNotFound
		}
		spot = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &spot, nil
}

func (r *parkingSpotRepository) LockByID(ctx context.Context, id int) (*domain.ParkingSpot, error) {
	return r.FindByID(ctx, id)
}

func (r *parkingSpotRepository) FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error) {
	var active []domain.ParkingSpot
	err := r.a.read(func(st *state) error {
		for _, spot := range lotSpots(st, lotID) {
			if spot.State == domain.StateActive {
				active = append(active, spot)
			}
		}
		return nil
	})
	return active, err
}

func (r *parkingSpotRepository) LockByLotIDAndNumber(ctx context.Context, lotID int, number string) (*domain.ParkingSpot, error) {
	return r.findFirst(lotID, func(s domain.ParkingSpot) bool {
		return s.State == domain.StateActive && s.Number == number
	})
}

func (r *parkingSpotRepository) LockFirstAvailable(ctx context.Context, lotID int) (*domain.ParkingSpot, error) {
	return r.findFirst(lotID, domain.ParkingSpot.Available)
}

func (r *parkingSpotRepository) FindFirstAvailable(ctx context.Context, lotID int) (*domain.ParkingSpot, error) {
	return r.findFirst(lotID, domain.ParkingSpot.Available)
}

func (r *parkingSpotRepository) findFirst(lotID int, match func(domain.ParkingSpot) bool) (*domain.ParkingSpot, error) {
	var spot *domain.ParkingSpot
	err := r.a.read(func(st *state) error {
		for _, s := range lotSpots(st, lotID) {
			if match(s) {
				found := s
				spot = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return spot, err
}

func (r *parkingSpotRepository) CountByLotID(ctx context.Context, lotID int) (domain.SpotCounts, error) {
	var counts domain.SpotCounts
	err := r.a.read(func(st *state) error {
		counts = countSpots(lotSpots(st, lotID))
		return nil
	})
	return counts, err
}

func (r *parkingSpotRepository) CountAllByLot(ctx context.Context) (map[int]domain.SpotCounts, error) {
	result := make(map[int]domain.SpotCounts)
	err := r.a.read(func(st *state) error {
		for lotID := range st.lots {
			if counts := countSpots(lotSpots(st, lotID)); counts.Total > 0 {
				result[lotID] = counts
			}
		}
		return nil
	})
	return result, err
}

func (r *parkingSpotRepository) Reactivate(ctx context.Context, lotID int, limit int) (int, error) {
	n := 0
	err := r.a.write(func(st *state) error {
		for _, spot := range lotSpots(st, lotID) {
			if n >= limit {
				break
			}
			if spot.State == domain.StateDeleted {
				spot.State = domain.StateActive
				spot.Occupied = false
				spot.UpdatedAt = r.timestamp()
				st.spots[spot.ID] = spot
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *parkingSpotRepository) SoftDeleteAvailable(ctx context.Context, lotID int, limit int) (int, error) {
	n := 0
	err := r.a.write(func(st *state) error {
		spots := lotSpots(st, lotID)
		for i := len(spots) - 1; i >= 0 && n < limit; i-- {
			if spots[i].Available() {
				r.markDeleted(st, spots[i])
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *parkingSpotRepository) SoftDeleteByLotID(ctx context.Context, lotID int) (int, error) {
	n := 0
	err := r.a.write(func(st *state) error {
		for _, spot := range lotSpots(st, lotID) {
			if spot.State == domain.StateActive {
				r.markDeleted(st, spot)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *parkingSpotRepository) SoftDelete(ctx context.Context, id int) error {
	return r.a.write(func(st *state) error {
		spot, ok := st.spots[id]
		if !ok || spot.State != domain.StateActive {
			return repository.ErrNotFound
		}
		r.markDeleted(st, spot)
		return nil
	})
}

func (r *parkingSpotRepository) markDeleted(st *state, spot domain.ParkingSpot) {
	spot.State = domain.StateDeleted
	spot.UpdatedAt = r.timestamp()
	st.spots[spot.ID] = spot
}

func (r *parkingSpotRepository) SetOccupied(ctx context.Context, id int, occupied bool) error {
	return r.a.write(func(st *state) error {
		spot, ok := st.spots[id]
		if !ok {
			return repository.ErrNotFound
		}
		spot.Occupied = occupied
		spot.UpdatedAt = r.timestamp()
		st.spots[id] = spot
		return nil
	})
}
