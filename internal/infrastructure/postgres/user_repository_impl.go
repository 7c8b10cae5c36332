package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/contacts-identity/internal/domain/entity"
	"github.com/oksasatya/contacts-identity/internal/domain/repository"
)

const (
	uniqueViolation   = "23505"
	invalidTextFormat = "22P02"
)

const selectUser = `
	SELECT id, email, password_hash, avatar_url, subscription, token,
	       verification_token, verified, created_at, updated_at
	FROM users
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	var verifyToken *string
	if u.VerificationToken != "" {
		verifyToken = &u.VerificationToken
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, avatar_url, subscription, token, verification_token, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Password, u.AvatarURL, u.Subscription, u.Token, verifyToken, u.Verified)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, selectUser+`WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, selectUser+`WHERE email = $1`, email)
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	return r.getOne(ctx, selectUser+`WHERE verification_token = $1`, token)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	u := &entity.User{}
	var verifyToken *string

	row := r.pool.QueryRow(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.AvatarURL, &u.Subscription, &u.Token,
		&verifyToken, &u.Verified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		// a malformed uuid can never match a row
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == invalidTextFormat {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	if verifyToken != nil {
		u.VerificationToken = *verifyToken
	}
	return u, nil
}

func (r *UserRepository) UpdateToken(ctx context.Context, id string, token *string) error {
	return r.exec(ctx, `UPDATE users SET token = $1, updated_at = now() WHERE id = $2`, token, id)
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return r.exec(ctx, `UPDATE users SET avatar_url = $1, updated_at = now() WHERE id = $2`, avatarURL, id)
}

func (r *UserRepository) SetVerificationToken(ctx context.Context, id, token string) error {
	return r.exec(ctx, `UPDATE users SET verification_token = $1, updated_at = now() WHERE id = $2`, token, id)
}

func (r *UserRepository) MarkVerified(ctx context.Context, id, token string) error {
	if token == "" {
		return repository.ErrNotFound
	}
	return r.exec(ctx, `
		UPDATE users
		SET verified = TRUE, verification_token = NULL, updated_at = now()
		WHERE id = $1 AND verification_token = $2
	`, id, token)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == invalidTextFormat {
			return repository.ErrNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
