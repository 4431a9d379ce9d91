package memory

import (
	"context"
	"fmt"
	"sort"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

type userRepository struct {
	repositories
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	err := r.a.write(func(st *state) error {
		for _, existing := range st.users {
			if existing.Username == user.Username {
				return fmt.Errorf("%w: username '%s'", repository.ErrDuplicateEntry, user.Username)
			}
		}
		user.ID = st.nextID("users")
		if user.State == "" {
			user.State = domain.StateActive
		}
		user.CreatedAt = r.timestamp()
		user.UpdatedAt = user.CreatedAt
		st.users[user.ID] = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	err := r.a.read(func(st *state) error {
		found, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user *domain.User
	err := r.a.read(func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				found := u
				user = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return user, err
}

func (r *userRepository) FindAll(ctx context.Context, admins bool) ([]domain.User, error) {
	var users []domain.User
	err := r.a.read(func(st *state) error {
		for _, u := range st.users {
			if u.IsAdmin == admins && u.State == domain.StateActive {
				users = append(users, u)
			}
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, err
}

func (r *userRepository) CountAdmins(ctx context.Context) (int, error) {
	admins, err := r.FindAll(ctx, true)
	return len(admins), err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	err := r.a.write(func(st *state) error {
		current, ok := st.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		for _, other := range st.users {
			if other.ID != user.ID && other.Username == user.Username {
				return fmt.Errorf("%w: username '%s'", repository.ErrDuplicateEntry, user.Username)
			}
		}
		current.Username = user.Username
		current.PasswordHash = user.PasswordHash
		current.Name = user.Name
		current.City = user.City
		current.Pincode = user.Pincode
		current.UpdatedAt = r.timestamp()
		st.users[user.ID] = current
		*user = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) SoftDelete(ctx context.Context, id int) error {
	return r.a.write(func(st *state) error {
		user, ok := st.users[id]
		if !ok || user.State != domain.StateActive {
			return repository.ErrNotFound
		}
		user.State = domain.StateDeleted
		user.UpdatedAt = r.timestamp()
		st.users[id] = user
		return nil
	})
}
