package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garmentrack/garmentrack/internal/models"
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, email, name, photo_url, role, status, suspend_reason, suspend_feedback, created_at`

// Upsert creates the user on first login. Later logins refresh the profile
// fields but never the role or account status.
func (s *UserStore) Upsert(ctx context.Context, user *models.User) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, photo_url, role, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lower(email)) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE users.name END,
			photo_url = CASE WHEN EXCLUDED.photo_url <> '' THEN EXCLUDED.photo_url ELSE users.photo_url END
		RETURNING `+userColumns,
		user.Email, user.Name, user.PhotoURL, user.Role, user.Status,
	)
	stored, err := scanUser(row)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", translate(err))
	}
	*user = *stored
	return nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (s *UserStore) UpdateProfile(ctx context.Context, user *models.User) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE users SET name = $1, photo_url = $2 WHERE id = $3
	`, user.Name, user.PhotoURL, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) UpdateAccess(ctx context.Context, user *models.User) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET role = $1, status = $2, suspend_reason = $3, suspend_feedback = $4
		WHERE id = $5
	`, user.Role, user.Status, user.SuspendReason, user.SuspendFeedback, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user access: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.PhotoURL, &user.Role, &user.Status,
		&user.SuspendReason, &user.SuspendFeedback, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
