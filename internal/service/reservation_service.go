package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/metrics"
	"parking_allocator/internal/repository"
)

// ReservationService opens and releases reservations. Occupying a spot and
// recording its reservation always commit together.
type ReservationService struct {
	store  repository.Store
	events eventPublisher
	now    func() time.Time
}

func NewReservationService(store repository.Store, notifier EventNotifier) *ReservationService {
	return &ReservationService{
		store:  store,
		events: eventPublisher{store: store, notifier: notifier},
		now:    time.Now,
	}
}

// WithClock replaces the clock that stamps in and out times.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

func (s *ReservationService) stamp(t *time.Time) time.Time {
	if t != nil {
		return t.In(time.UTC).Truncate(time.Second)
	}
	return s.now().In(time.UTC).Truncate(time.Second)
}

// eventTime stamps an open or release with the server clock. Only admins may
// record an earlier time, and nobody may record a later one.
func (s *ReservationService) eventTime(p domain.Principal, requested *time.Time, field string) (time.Time, error) {
	now := s.stamp(nil)
	if requested == nil {
		return now, nil
	}
	at := s.stamp(requested)
	if at.After(now) {
		return time.Time{}, validationError("%s %s is in the future", field, at.Format(time.RFC3339))
	}
	if !p.IsAdmin {
		if !at.Equal(now) {
			zap.L().Debug("client supplied time ignored",
				zap.Int("user_id", p.UserID), zap.String("field", field), zap.Time("requested", at))
		}
		return now, nil
	}
	return at, nil
}

// OpenReservation books dto.SpotNumber in dto.LotID for the principal, or the
// lowest numbered available spot when no number is given.
func (s *ReservationService) OpenReservation(ctx context.Context, p domain.Principal, dto domain.OpenReservationDTO) (*domain.ReservationDetail, error) {
	vehicle := normalizeVehicleNumber(dto.VehicleNumber)
	if vehicle == "" || len(vehicle) > 20 {
		return nil, validationError("vehicle number must be 1-20 characters")
	}
	inTime, err := s.eventTime(p, dto.InTime, "in time")
	if err != nil {
		return nil, err
	}

	var created *domain.Reservation
	var spot *domain.ParkingSpot
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		user, err := tx.Users().FindByID(ctx, p.UserID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && user.State != domain.StateActive) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if _, err := lockActiveLot(ctx, tx, dto.LotID); err != nil {
			return err
		}

		if number := normalizeSpotNumber(dto.SpotNumber); number == "" {
			spot, err = tx.Spots().LockFirstAvailable(ctx, dto.LotID)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoSpotAvailable
			}
		} else {
			spot, err = tx.Spots().LockByLotIDAndNumber(ctx, dto.LotID, number)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrSpotNotFound, number)
			}
		}
		if err != nil {
			return err
		}
		if !spot.Available() {
			return fmt.Errorf("%w: %s", ErrSpotOccupied, spot.Number)
		}

		if err := tx.Spots().SetOccupied(ctx, spot.ID, true); err != nil {
			return err
		}
		created, err = tx.Reservations().Create(ctx, &domain.Reservation{
			UserID:        p.UserID,
			SpotID:        spot.ID,
			VehicleNumber: vehicle,
			InTime:        inTime,
		})
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return fmt.Errorf("%w: %s", ErrSpotOccupied, spot.Number)
		}
		return err
	})
	if err != nil {
		return nil, storeError("ReservationService.OpenReservation", err)
	}
	metrics.ReservationsOpened.Inc()

	detail, err := s.store.Reservations().FindByID(ctx, created.ID)
	if err != nil {
		return nil, storeError("ReservationService.OpenReservation", err)
	}
	s.events.publish(ctx, domain.ParkingEvent{
		Type:          domain.EventReservationOpened,
		LotID:         detail.LotID,
		LotName:       detail.LotName,
		SpotID:        spot.ID,
		SpotNumber:    spot.Number,
		ReservationID: created.ID,
		UserID:        p.UserID,
	})
	return detail, nil
}

// CloseReservation releases an active reservation and frees its spot. Hours
// and cost are always recomputed from the lot price; values echoed by the
// client are only compared and logged.
func (s *ReservationService) CloseReservation(ctx context.Context, p domain.Principal, id int, dto domain.CloseReservationDTO) (*domain.ReservationDetail, error) {
	outTime, err := s.eventTime(p, dto.OutTime, "out time")
	if err != nil {
		return nil, err
	}

	var released *domain.Reservation
	err = s.store.WithTx(ctx, func(tx repository.Repositories) error {
		res, err := tx.Reservations().LockActiveByID(ctx, id)
		if errors.Is(err, repository.ErrNoActiveReservation) {
			return ErrReservationNotFound
		}
		if err != nil {
			return err
		}
		if !p.IsAdmin && res.UserID != p.UserID {
			return ErrForbidden
		}
		spot, err := tx.Spots().FindByID(ctx, res.SpotID)
		if err != nil {
			return err
		}
		lot, err := tx.Lots().FindByID(ctx, spot.LotID)
		if err != nil {
			return err
		}

		hours, err := BillableHours(res.InTime, outTime)
		if err != nil {
			return err
		}
		cost := Charge(hours, lot.PricePerHour)
		warnOnClientCharges(id, dto, hours, cost)

		res.OutTime = null.TimeFrom(outTime)
		res.Hours = null.IntFrom(hours)
		res.TotalCost = null.FloatFrom(cost)
		if err := tx.Reservations().Release(ctx, res); err != nil {
			if errors.Is(err, repository.ErrNoActiveReservation) {
				return ErrReservationNotFound
			}
			return err
		}
		released = res
		return tx.Spots().SetOccupied(ctx, spot.ID, false)
	})
	if err != nil {
		return nil, storeError("ReservationService.CloseReservation", err)
	}
	metrics.ReservationsReleased.Inc()
	metrics.BilledRevenue.Add(released.TotalCost.Float64)

	detail, err := s.store.Reservations().FindByID(ctx, id)
	if err != nil {
		return nil, storeError("ReservationService.CloseReservation", err)
	}
	s.events.publish(ctx, domain.ParkingEvent{
		Type:          domain.EventReservationReleased,
		LotID:         detail.LotID,
		LotName:       detail.LotName,
		SpotID:        detail.SpotID,
		SpotNumber:    detail.SpotNumber,
		ReservationID: id,
		UserID:        detail.UserID,
		TotalCost:     released.TotalCost.Float64,
	})
	return detail, nil
}

func warnOnClientCharges(id int, dto domain.CloseReservationDTO, hours int64, cost float64) {
	hoursDiffer := dto.Hours != nil && *dto.Hours != hours
	costDiffers := dto.TotalCost != nil && math.Abs(*dto.TotalCost-cost) > 0.005
	if hoursDiffer || costDiffers {
		zap.L().Warn("client supplied charges ignored",
			zap.Int("reservation_id", id),
			zap.Int64("hours", hours),
			zap.Float64("total_cost", cost),
			zap.Any("client_hours", dto.Hours),
			zap.Any("client_total_cost", dto.TotalCost),
		)
	}
}

// QuoteRelease previews what CloseReservation would charge at outTime.
func (s *ReservationService) QuoteRelease(ctx context.Context, p domain.Principal, id int, outTime *time.Time) (*domain.ReleaseQuote, error) {
	detail, err := s.GetReservation(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if detail.Released {
		return nil, ErrReservationNotFound
	}
	out := s.stamp(outTime)
	hours, err := BillableHours(detail.InTime, out)
	if err != nil {
		return nil, err
	}
	return &domain.ReleaseQuote{
		ReservationID: detail.ID,
		SpotNumber:    detail.SpotNumber,
		LotName:       detail.LotName,
		InTime:        detail.InTime,
		OutTime:       out,
		Hours:         hours,
		PricePerHour:  detail.PricePerHour,
		TotalCost:     Charge(hours, detail.PricePerHour),
	}, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, p domain.Principal, id int) (*domain.ReservationDetail, error) {
	detail, err := s.store.Reservations().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, storeError("ReservationService.GetReservation", err)
	}
	if !p.IsAdmin && detail.UserID != p.UserID {
		return nil, ErrForbidden
	}
	return detail, nil
}

// ListReservations returns every reservation for admins and the caller's own
// otherwise, optionally filtered by released state.
func (s *ReservationService) ListReservations(ctx context.Context, p domain.Principal, released null.Bool) ([]domain.ReservationDetail, error) {
	filter := domain.ReservationFilter{Released: released}
	if !p.IsAdmin {
		filter.UserID = null.IntFrom(int64(p.UserID))
	}
	details, err := s.store.Reservations().Find(ctx, filter)
	if err != nil {
		return nil, storeError("ReservationService.ListReservations", err)
	}
	if details == nil {
		details = []domain.ReservationDetail{}
	}
	return details, nil
}
