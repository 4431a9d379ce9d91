package memory

import (
	"context"
	"fmt"
	"sort"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

type parkingLotRepository struct {
	repositories
}

func nameTaken(st *state, name string, exceptID int) bool {
	for _, lot := range st.lots {
		if lot.ID != exceptID && lot.Name == name {
			return true
		}
	}
	return false
}

func (r *parkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	err := r.a.write(func(st *state) error {
		if nameTaken(st, lot.Name, 0) {
			return fmt.Errorf("%w: parking lot '%s'", repository.ErrDuplicateEntry, lot.Name)
		}
		lot.ID = st.nextID("parking_lots")
		lot.State = domain.StateActive
		lot.CreatedAt = r.timestamp()
		lot.UpdatedAt = lot.CreatedAt
		st.lots[lot.ID] = *lot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (r *parkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	var lot domain.ParkingLot
	err := r.a.read(func(st *state) error {
		found, ok := st.lots[id]
		if !ok {
			return repository.ErrNotFound
		}
		lot = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *parkingLotRepository) LockByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return r.FindByID(ctx, id)
}

func (r *parkingLotRepository) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	var lots []domain.ParkingLot
	err := r.a.read(func(st *state) error {
		for _, lot := range st.lots {
			if lot.State == domain.StateActive {
				lots = append(lots, lot)
			}
		}
		return nil
	})
	sort.Slice(lots, func(i, j int) bool { return lots[i].Name < lots[j].Name })
	return lots, err
}

func (r *parkingLotRepository) Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	err := r.a.write(func(st *state) error {
		current, ok := st.lots[lot.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if nameTaken(st, lot.Name, lot.ID) {
			return fmt.Errorf("%w: parking lot '%s'", repository.ErrDuplicateEntry, lot.Name)
		}
		current.Name = lot.Name
		current.Address = lot.Address
		current.City = lot.City
		current.Pincode = lot.Pincode
		current.PricePerHour = lot.PricePerHour
		current.SpotCount = lot.SpotCount
		current.UpdatedAt = r.timestamp()
		st.lots[lot.ID] = current
		*lot = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (r *parkingLotRepository) SoftDelete(ctx context.Context, id int) error {
	return r.a.write(func(st *state) error {
		lot, ok := st.lots[id]
		if !ok || lot.State != domain.StateActive {
			return repository.ErrNotFound
		}
		lot.State = domain.StateDeleted
		lot.SpotCount = 0
		lot.UpdatedAt = r.timestamp()
		st.lots[id] = lot
		return nil
	})
}
