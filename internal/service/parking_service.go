package service

import (
	"context"
	"errors"
	"fmt"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/metrics"
	"parking_allocator/internal/repository"
)

// ParkingService manages lot capacity: creation, resizing and soft deletion
// of lots and spots.
type ParkingService struct {
	store  repository.Store
	events eventPublisher
}

func NewParkingService(store repository.Store, notifier EventNotifier) *ParkingService {
	return &ParkingService{
		store:  store,
		events: eventPublisher{store: store, notifier: notifier},
	}
}

func seqRange(from, n int) []int {
	seqs := make([]int, n)
	for i := range seqs {
		seqs[i] = from + i
	}
	return seqs
}

func lotFromDTO(dto domain.ParkingLotDTO) (domain.ParkingLot, error) {
	lot := domain.ParkingLot{
		Name:         titleCase(dto.Name),
		Address:      titleCase(dto.Address),
		City:         titleCase(dto.City),
		Pincode:      dto.Pincode,
		PricePerHour: dto.PricePerHour,
		SpotCount:    dto.SpotCount,
	}
	switch {
	case lot.Name == "":
		return lot, validationError("lot name is required")
	case lot.PricePerHour < 0:
		return lot, validationError("price per hour must not be negative")
	case lot.SpotCount < 0:
		return lot, validationError("spot count must not be negative")
	}
	return lot, nil
}

// lockActiveLot returns ErrLotNotFound for missing and soft-deleted lots.
func lockActiveLot(ctx context.Context, tx repository.Repositories, id int) (*domain.ParkingLot, error) {
	lot, err := tx.Lots().LockByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && lot.State != domain.StateActive) {
		return nil, ErrLotNotFound
	}
	return lot, err
}

// --- ParkingLot ---
func (s *ParkingService) CreateParkingLot(ctx context.Context, p domain.Principal, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	lot, err := lotFromDTO(dto)
	if err != nil {
		return nil, err
	}

	var created *domain.ParkingLot
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		var err error
		created, err = tx.Lots().Create(ctx, &lot)
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, lot.Name)
		}
		if err != nil {
			return err
		}
		_, err = tx.Spots().CreateBatch(ctx, created.ID, seqRange(1, lot.SpotCount))
		return err
	})
	metrics.CapacityOperations.WithLabelValues("create_lot", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, storeError("ParkingService.CreateParkingLot", err)
	}

	s.events.publish(ctx, domain.ParkingEvent{Type: domain.EventLotCreated, LotID: created.ID, LotName: created.Name})
	return created, nil
}

func (s *ParkingService) GetParkingLotByID(ctx context.Context, id int) (*domain.ParkingLotOverview, error) {
	lot, err := s.store.Lots().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && lot.State != domain.StateActive) {
		return nil, ErrLotNotFound
	}
	if err != nil {
		return nil, storeError("ParkingService.GetParkingLotByID", err)
	}
	counts, err := s.store.Spots().CountByLotID(ctx, id)
	if err != nil {
		return nil, storeError("ParkingService.GetParkingLotByID", err)
	}
	return &domain.ParkingLotOverview{ParkingLot: *lot, Occupied: counts.Occupied, Available: counts.Available()}, nil
}

func (s *ParkingService) GetAllParkingLots(ctx context.Context) ([]domain.ParkingLotOverview, error) {
	lots, err := s.store.Lots().FindAll(ctx)
	if err != nil {
		return nil, storeError("ParkingService.GetAllParkingLots", err)
	}
	counts, err := s.store.Spots().CountAllByLot(ctx)
	if err != nil {
		return nil, storeError("ParkingService.GetAllParkingLots", err)
	}
	overviews := make([]domain.ParkingLotOverview, 0, len(lots))
	for _, lot := range lots {
		c := counts[lot.ID]
		overviews = append(overviews, domain.ParkingLotOverview{ParkingLot: lot, Occupied: c.Occupied, Available: c.Available()})
	}
	return overviews, nil
}

// UpdateParkingLot replaces the lot's metadata and reconciles its spots with
// dto.SpotCount. Growth reactivates deleted spots before numbering new ones;
// shrinking deletes available spots from the highest number down.
func (s *ParkingService) UpdateParkingLot(ctx context.Context, p domain.Principal, id int, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	changes, err := lotFromDTO(dto)
	if err != nil {
		return nil, err
	}

	var updated *domain.ParkingLot
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		lot, err := lockActiveLot(ctx, tx, id)
		if err != nil {
			return err
		}
		counts, err := tx.Spots().CountByLotID(ctx, id)
		if err != nil {
			return err
		}
		if changes.SpotCount < counts.Occupied {
			return fmt.Errorf("%w: %d occupied, %d requested", ErrCapacityBelowOccupancy, counts.Occupied, changes.SpotCount)
		}

		lot.Name = changes.Name
		lot.Address = changes.Address
		lot.City = changes.City
		lot.Pincode = changes.Pincode
		lot.PricePerHour = changes.PricePerHour
		lot.SpotCount = changes.SpotCount
		updated, err = tx.Lots().Update(ctx, lot)
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, lot.Name)
		}
		if err != nil {
			return err
		}

		delta := changes.SpotCount - counts.Active
		switch {
		case delta > 0:
			reactivated, err := tx.Spots().Reactivate(ctx, id, delta)
			if err != nil {
				return err
			}
			if remaining := delta - reactivated; remaining > 0 {
				if _, err := tx.Spots().CreateBatch(ctx, id, seqRange(counts.Total+1, remaining)); err != nil {
					return err
				}
			}
		case delta < 0:
			removed, err := tx.Spots().SoftDeleteAvailable(ctx, id, -delta)
			if err != nil {
				return err
			}
			if removed < -delta {
				return fmt.Errorf("%w: only %d of %d spots could be removed", ErrCapacityBelowOccupancy, removed, -delta)
			}
		}
		return nil
	})
	metrics.CapacityOperations.WithLabelValues("resize_lot", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, storeError("ParkingService.UpdateParkingLot", err)
	}

	s.events.publish(ctx, domain.ParkingEvent{Type: domain.EventLotResized, LotID: updated.ID, LotName: updated.Name})
	return updated, nil
}

// DeleteParkingLot soft-deletes the lot and all its spots unless a spot is occupied.
func (s *ParkingService) DeleteParkingLot(ctx context.Context, p domain.Principal, id int) error {
	if err := requireAdmin(p); err != nil {
		return err
	}

	var name string
	err := s.store.WithTx(ctx, func(tx repository.Repositories) error {
		lot, err := lockActiveLot(ctx, tx, id)
		if err != nil {
			return err
		}
		name = lot.Name
		counts, err := tx.Spots().CountByLotID(ctx, id)
		if err != nil {
			return err
		}
		if counts.Occupied > 0 {
			return fmt.Errorf("%w: %d spots occupied", ErrLotOccupied, counts.Occupied)
		}
		if _, err := tx.Spots().SoftDeleteByLotID(ctx, id); err != nil {
			return err
		}
		return tx.Lots().SoftDelete(ctx, id)
	})
	metrics.CapacityOperations.WithLabelValues("delete_lot", metrics.Outcome(err)).Inc()
	if err != nil {
		return storeError("ParkingService.DeleteParkingLot", err)
	}

	s.events.publish(ctx, domain.ParkingEvent{Type: domain.EventLotDeleted, LotID: id, LotName: name})
	return nil
}

// --- ParkingSpot ---

// DeleteParkingSpot soft-deletes one spot and shrinks the lot's declared
// capacity by one. Occupied spots are refused with ErrSpotOccupied.
func (s *ParkingService) DeleteParkingSpot(ctx context.Context, p domain.Principal, spotID int) error {
	if err := requireAdmin(p); err != nil {
		return err
	}

	var spot *domain.ParkingSpot
	err := s.store.WithTx(ctx, func(tx repository.Repositories) error {
		found, err := tx.Spots().FindByID(ctx, spotID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSpotNotFound
		}
		if err != nil {
			return err
		}
		lot, err := tx.Lots().LockByID(ctx, found.LotID)
		if err != nil {
			return err
		}
		spot, err = tx.Spots().LockByID(ctx, spotID)
		if err != nil {
			return err
		}
		if spot.State != domain.StateActive {
			return ErrSpotNotFound
		}
		if spot.Occupied {
			return fmt.Errorf("%w: %s", ErrSpotOccupied, spot.Number)
		}
		if err := tx.Spots().SoftDelete(ctx, spotID); err != nil {
			return err
		}
		lot.SpotCount--
		_, err = tx.Lots().Update(ctx, lot)
		return err
	})
	metrics.CapacityOperations.WithLabelValues("delete_spot", metrics.Outcome(err)).Inc()
	if err != nil {
		return storeError("ParkingService.DeleteParkingSpot", err)
	}

	s.events.publish(ctx, domain.ParkingEvent{Type: domain.EventSpotDeleted, LotID: spot.LotID, SpotID: spot.ID, SpotNumber: spot.Number})
	return nil
}

// GetLotAvailability lists the active spots of a lot with occupancy totals.
func (s *ParkingService) GetLotAvailability(ctx context.Context, lotID int) (*domain.LotAvailability, error) {
	overview, err := s.GetParkingLotByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	spots, err := s.store.Spots().FindByLotID(ctx, lotID)
	if err != nil {
		return nil, storeError("ParkingService.GetLotAvailability", err)
	}
	if spots == nil {
		spots = []domain.ParkingSpot{}
	}
	return &domain.LotAvailability{
		Lot:       overview.ParkingLot,
		Spots:     spots,
		Occupied:  overview.Occupied,
		Available: overview.Available,
	}, nil
}

// NextAvailableSpot previews the spot an auto-assigned booking would receive.
func (s *ParkingService) NextAvailableSpot(ctx context.Context, lotID int) (*domain.ParkingSpot, error) {
	if _, err := s.GetParkingLotByID(ctx, lotID); err != nil {
		return nil, err
	}
	spot, err := s.store.Spots().FindFirstAvailable(ctx, lotID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoSpotAvailable
	}
	if err != nil {
		return nil, storeError("ParkingService.NextAvailableSpot", err)
	}
	return spot, nil
}
