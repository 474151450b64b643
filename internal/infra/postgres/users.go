package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, name, currency, locale, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name,
		&u.Preferences.Currency, &u.Preferences.Locale, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// CreateUser inserts u. A taken email yields store.ErrDuplicate.
func (r *Repository) CreateUser(ctx context.Context, u *domain.User) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	err = db.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, name, currency, locale)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Preferences.Currency, u.Preferences.Locale,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("CreateUser: %w", mapErr(err))
	}
	return nil
}

// GetUserByEmail looks a user up by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("GetUserByEmail: %w", err)
	}
	return u, nil
}

// GetUserByID looks a user up by id.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("GetUserByID: %w", err)
	}
	return u, nil
}
