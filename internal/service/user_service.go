package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

type UserService struct {
	store repository.Store
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetProfile(ctx context.Context, p domain.Principal) (*domain.User, error) {
	user, err := s.store.Users().FindByID(ctx, p.UserID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && user.State != domain.StateActive) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("UserService.GetProfile", err)
	}
	return user, nil
}

// UpdateProfile applies the non-empty fields of dto. A password change needs
// the current password and a different new one of at least 5 characters.
func (s *UserService) UpdateProfile(ctx context.Context, p domain.Principal, dto domain.UpdateProfileDTO) (*domain.User, error) {
	user, err := s.GetProfile(ctx, p)
	if err != nil {
		return nil, err
	}

	changed := false
	if username := strings.TrimSpace(dto.Username); username != "" && username != user.Username {
		existing, err := s.store.Users().FindByUsername(ctx, username)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, storeError("UserService.UpdateProfile", err)
		}
		if existing != nil {
			return nil, ErrUserAlreadyExists
		}
		user.Username = username
		changed = true
	}
	for _, f := range []struct {
		value  string
		target *string
	}{
		{titleCase(dto.Name), &user.Name},
		{titleCase(dto.City), &user.City},
		{strings.TrimSpace(dto.Pincode), &user.Pincode},
	} {
		if f.value != "" && f.value != *f.target {
			*f.target = f.value
			changed = true
		}
	}

	if dto.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.OldPassword)); err != nil {
			return nil, ErrInvalidCredentials
		}
		if len(dto.NewPassword) < 5 {
			return nil, validationError("new password must be at least 5 characters")
		}
		if dto.NewPassword == dto.OldPassword {
			return nil, validationError("new password must differ from the current one")
		}
		hashed, err := hashPassword(dto.NewPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
		changed = true
	}

	if !changed {
		return nil, validationError("no changes")
	}
	updated, err := s.store.Users().Update(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEntry) {
		return nil, ErrUserAlreadyExists
	}
	if err != nil {
		return nil, storeError("UserService.UpdateProfile", err)
	}
	return updated, nil
}

// ListUsers returns regular users with their booking counts.
func (s *UserService) ListUsers(ctx context.Context, p domain.Principal) ([]domain.UserSummary, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	users, err := s.store.Users().FindAll(ctx, false)
	if err != nil {
		return nil, storeError("UserService.ListUsers", err)
	}
	counts, err := s.store.Reservations().CountsByUser(ctx)
	if err != nil {
		return nil, storeError("UserService.ListUsers", err)
	}
	summaries := make([]domain.UserSummary, 0, len(users))
	for _, user := range users {
		c := counts[user.ID]
		summaries = append(summaries, domain.UserSummary{User: user, ActiveBookings: c.Active, CompletedBookings: c.Completed})
	}
	return summaries, nil
}

// DeleteUser soft-deletes a user that holds no active reservation.
// Reservations are left untouched.
func (s *UserService) DeleteUser(ctx context.Context, p domain.Principal, userID int) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(tx repository.Repositories) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && user.State != domain.StateActive) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if user.IsAdmin {
			return fmt.Errorf("%w: administrators cannot be deleted", ErrForbidden)
		}
		active, err := tx.Reservations().CountActiveByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: %d active", ErrActiveReservationExists, active)
		}
		return tx.Users().SoftDelete(ctx, userID)
	})
	return storeError("UserService.DeleteUser", err)
}
