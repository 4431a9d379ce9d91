package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

type reservationRepository struct {
	repositories
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	err := r.a.write(func(st *state) error {
		if _, ok := st.users[res.UserID]; !ok {
			return fmt.Errorf("ReservationRepository.Create: user %d: %w", res.UserID, repository.ErrNotFound)
		}
		if _, ok := st.spots[res.SpotID]; !ok {
			return fmt.Errorf("ReservationRepository.Create: spot %d: %w", res.SpotID, repository.ErrNotFound)
		}
		for _, existing := range st.reservations {
			if existing.SpotID == res.SpotID && !existing.Released {
				return fmt.Errorf("%w: spot %d already has an active reservation", repository.ErrDuplicateEntry, res.SpotID)
			}
		}
		res.ID = st.nextID("reservations")
		res.InTime = res.InTime.In(time.UTC)
		res.Released = false
		res.CreatedAt = r.timestamp()
		res.UpdatedAt = res.CreatedAt
		st.reservations[res.ID] = *res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func detailOf(st *state, res domain.Reservation) domain.ReservationDetail {
	detail := domain.ReservationDetail{Reservation: res}
	detail.Username = st.users[res.UserID].Username
	spot := st.spots[res.SpotID]
	lot := st.lots[spot.LotID]
	detail.SpotNumber = spot.Number
	detail.LotID = lot.ID
	detail.LotName = lot.Name
	detail.Address = lot.Address
	detail.City = lot.City
	detail.Pincode = lot.Pincode
	detail.PricePerHour = lot.PricePerHour
	return detail
}

func (r *reservationRepository) FindByID(ctx context.Context, id int) (*domain.ReservationDetail, error) {
	var detail domain.ReservationDetail
	err := r.a.read(func(st *state) error {
		res, ok := st.reservations[id]
		if !ok {
			return repository.ErrNotFound
		}
		detail = detailOf(st, res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *reservationRepository) LockActiveByID(ctx context.Context, id int) (*domain.Reservation, error) {
	var res domain.Reservation
	err := r.a.read(func(st *state) error {
		found, ok := st.reservations[id]
		if !ok || found.Released {
			return repository.ErrNoActiveReservation
		}
		res = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) Release(ctx context.Context, res *domain.Reservation) error {
	return r.a.write(func(st *state) error {
		current, ok := st.reservations[res.ID]
		if !ok || current.Released {
			return repository.ErrNoActiveReservation
		}
		current.OutTime = res.OutTime
		current.Hours = res.Hours
		current.TotalCost = res.TotalCost
		current.Released = true
		current.UpdatedAt = r.timestamp()
		st.reservations[res.ID] = current
		*res = current
		return nil
	})
}

func (r *reservationRepository) CountActiveByUserID(ctx context.Context, userID int) (int, error) {
	count := 0
	err := r.a.read(func(st *state) error {
		for _, res := range st.reservations {
			if res.UserID == userID && !res.Released {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *reservationRepository) CountsByUser(ctx context.Context) (map[int]domain.BookingCountRow, error) {
	result := make(map[int]domain.BookingCountRow)
	err := r.a.read(func(st *state) error {
		for _, res := range st.reservations {
			row := result[res.UserID]
			row.EntityID = res.UserID
			row.Name = st.users[res.UserID].Username
			if res.Released {
				row.Completed++
			} else {
				row.Active++
			}
			result[res.UserID] = row
		}
		return nil
	})
	return result, err
}

func (r *reservationRepository) Find(ctx context.Context, filter domain.ReservationFilter) ([]domain.ReservationDetail, error) {
	var details []domain.ReservationDetail
	err := r.a.read(func(st *state) error {
		for _, res := range st.reservations {
			if filter.UserID.Valid && int64(res.UserID) != filter.UserID.Int64 {
				continue
			}
			if filter.Released.Valid && res.Released != filter.Released.Bool {
				continue
			}
			details = append(details, detailOf(st, res))
		}
		return nil
	})
	sort.Slice(details, func(i, j int) bool {
		if !details[i].InTime.Equal(details[j].InTime) {
			return details[i].InTime.After(details[j].InTime)
		}
		return details[i].ID > details[j].ID
	})
	return details, err
}
