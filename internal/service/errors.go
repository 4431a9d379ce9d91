package service

import (
	"errors"
	"fmt"

	"parking_allocator/internal/domain"
)

var (
	ErrDuplicateName           = errors.New("parking lot name already in use")
	ErrCapacityBelowOccupancy  = errors.New("requested capacity is below current occupancy")
	ErrLotOccupied             = errors.New("parking lot has occupied spots")
	ErrLotNotFound             = errors.New("parking lot not found")
	ErrSpotNotFound            = errors.New("parking spot not found")
	ErrSpotOccupied            = errors.New("parking spot is occupied")
	ErrNoSpotAvailable         = errors.New("no spot available in parking lot")
	ErrReservationNotFound     = errors.New("active reservation not found")
	ErrActiveReservationExists = errors.New("user has an active reservation")
	ErrUserNotFound            = errors.New("user not found")
	ErrUserDeleted             = errors.New("user account is deleted")
	ErrValidation              = errors.New("validation failed")
	ErrForbidden               = errors.New("operation not permitted")
	ErrStore                   = errors.New("store operation failed")
	ErrDuplicateRequest        = errors.New("request already processed")
)

var kinds = []error{
	ErrDuplicateName, ErrCapacityBelowOccupancy, ErrLotOccupied, ErrLotNotFound, ErrSpotNotFound,
	ErrSpotOccupied, ErrNoSpotAvailable, ErrReservationNotFound, ErrActiveReservationExists,
	ErrUserNotFound, ErrUserDeleted, ErrValidation, ErrForbidden, ErrStore, ErrDuplicateRequest,
	ErrInvalidCredentials, ErrUserAlreadyExists, ErrTokenInvalid, ErrPlateNotRecognized,
}

func isKind(err error) bool {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// storeError passes typed errors through and wraps everything else in ErrStore.
func storeError(op string, err error) error {
	if err == nil || isKind(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func requireAdmin(p domain.Principal) error {
	if !p.IsAdmin {
		return ErrForbidden
	}
	return nil
}
