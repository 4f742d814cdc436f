package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"trailwise/internal/common"
	"trailwise/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// UpdatePassword sets a new digest, stamps password_changed_at and clears
	// any outstanding reset token in a single statement.
	UpdatePassword(ctx context.Context, id, hashedPassword string, changedAt time.Time) error
	// SetResetToken stores the hash and expiry of an outstanding reset token.
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	// FindByResetToken matches a stored token hash that has not yet expired.
	FindByResetToken(ctx context.Context, tokenHash string) (*model.User, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, name, email, role, hashed_password,
	password_changed_at, password_reset_token_hash, password_reset_expires_at,
	created_at, updated_at`

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, name, email, role, hashed_password)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.Role, user.HashedPassword)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("email %s: %w", user.Email, common.ErrDuplicateEmail)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	          WHERE password_reset_token_hash = $1 AND password_reset_expires_at > now()`
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByResetToken: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) UpdatePassword(ctx context.Context, id, hashedPassword string, changedAt time.Time) error {
	query := `UPDATE users
	          SET hashed_password = $2, password_changed_at = $3,
	              password_reset_token_hash = NULL, password_reset_expires_at = NULL,
	              updated_at = now()
	          WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, hashedPassword, changedAt)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdatePassword: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE users
	          SET password_reset_token_hash = $2, password_reset_expires_at = $3, updated_at = now()
	          WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("pgUserRepository.SetResetToken: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *pgUserRepository) scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var changedAt, resetExpires sql.NullTime
	var resetHash sql.NullString
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Role, &user.HashedPassword,
		&changedAt, &resetHash, &resetExpires,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if changedAt.Valid {
		user.PasswordChangedAt = &changedAt.Time
	}
	if resetHash.Valid {
		user.PasswordResetTokenHash = &resetHash.String
	}
	if resetExpires.Valid {
		user.PasswordResetExpiresAt = &resetExpires.Time
	}
	return user, nil
}
