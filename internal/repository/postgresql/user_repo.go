package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

type pgUserRepository struct {
	db querier
}

func newPgUserRepository(db querier) repository.UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, password_hash, name, city, pincode, is_admin, state, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, user *domain.User) error {
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Name, &user.City,
		&user.Pincode, &user.IsAdmin, &user.State, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return err
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (username, password_hash, name, city, pincode, is_admin, state)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           RETURNING id, created_at, updated_at`
	if user.State == "" {
		user.State = domain.StateActive
	}
	err := r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.Name, user.City,
		user.Pincode, user.IsAdmin, user.State).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username '%s'", repository.ErrDuplicateEntry, user.Username)
		}
		return nil, fmt.Errorf("UserRepository.Create: %w", err)
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	user := &domain.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := scanUser(r.db.QueryRowContext(ctx, query, id), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user := &domain.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	if err := scanUser(r.db.QueryRowContext(ctx, query, username), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.FindByUsername: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindAll(ctx context.Context, admins bool) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_admin = $1 AND state = 'active' ORDER BY username`
	rows, err := r.db.QueryContext(ctx, query, admins)
	if err != nil {
		return nil, fmt.Errorf("UserRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("UserRepository.FindAll (scanning row): %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("UserRepository.FindAll (rows error): %w", err)
	}
	return users, nil
}

func (r *pgUserRepository) CountAdmins(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE is_admin = TRUE AND state = 'active'`
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("UserRepository.CountAdmins: %w", err)
	}
	return count, nil
}

func (r *pgUserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `UPDATE users SET username = $1, password_hash = $2, name = $3, city = $4, pincode = $5,
	           updated_at = CURRENT_TIMESTAMP WHERE id = $6 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.Name, user.City,
		user.Pincode, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username '%s'", repository.ErrDuplicateEntry, user.Username)
		}
		return nil, fmt.Errorf("UserRepository.Update: %w", err)
	}
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) SoftDelete(ctx context.Context, id int) error {
	query := `UPDATE users SET state = 'deleted', updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND state = 'active'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("UserRepository.SoftDelete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UserRepository.SoftDelete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
