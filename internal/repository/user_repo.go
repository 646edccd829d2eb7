package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userCols = `id, email, username, password_hash, role, is_active, created_at, updated_at`

// CreateUser inserts a new user row.
func (t *Tx) CreateUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (` + userCols + `)
		VALUES (:id, :email, :username, :password_hash, :role, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, t.q, query, u); err != nil {
		// Unique constraint violations surface as domain errors
		if isPgUniqueViolation(err, "users_email_key") {
			return domain.ErrEmailTaken
		}
		if isPgUniqueViolation(err, "users_username_key") {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("user_repo.CreateUser: %w", err)
	}
	return nil
}

// UpdateUserStatus activates or suspends a user account.
func (t *Tx) UpdateUserStatus(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = now() WHERE id = $2`,
		active, id)
	if err != nil {
		return fmt.Errorf("user_repo.UpdateUserStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateUserRole changes a user's role.
func (t *Tx) UpdateUserRole(ctx context.Context, id uuid.UUID, role domain.UserRole) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = now() WHERE id = $2`,
		role, id)
	if err != nil {
		return fmt.Errorf("user_repo.UpdateUserRole: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// GetUserByID fetches a user by primary key.
func (r *queries) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.q, &u, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user_repo.GetUserByID: %w", err)
	}
	return &u, nil
}

// GetUserByEmail fetches a user by email address (used for login).
func (r *queries) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.q, &u, `SELECT `+userCols+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user_repo.GetUserByEmail: %w", err)
	}
	return &u, nil
}

// ListUsers returns a page of users, newest first, and the total count.
func (r *queries) ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	var users []*domain.User
	var total int

	if err := sqlx.GetContext(ctx, r.q, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, fmt.Errorf("user_repo.ListUsers count: %w", err)
	}
	if err := sqlx.SelectContext(ctx, r.q, &users,
		`SELECT `+userCols+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limitArg(limit), offset); err != nil {
		return nil, 0, fmt.Errorf("user_repo.ListUsers select: %w", err)
	}
	return users, total, nil
}
