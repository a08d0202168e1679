package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokenPostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewTokenPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *TokenPostgresRepo {
	return &TokenPostgresRepo{db: db, timeout: timeout}
}

func (r *TokenPostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *TokenPostgresRepo) Create(ctx context.Context, t *ActionToken) error {
	const query = `
	INSERT INTO auth_tokens (id, user_id, purpose, token_hash, new_email, expires_at)
	VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
	RETURNING id, created_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.QueryRow(timeoutCtx, query,
		t.UserID,
		string(t.Purpose),
		t.TokenHash,
		t.NewEmail,
		t.ExpiresAt,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *TokenPostgresRepo) Consume(ctx context.Context, purpose Purpose, tokenHash string) (ActionToken, error) {
	const query = `
	DELETE FROM auth_tokens
	WHERE token_hash = $1 AND purpose = $2
	RETURNING id, user_id, purpose, token_hash, new_email, expires_at, created_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var t ActionToken
	var p string
	err := r.db.QueryRow(timeoutCtx, query, tokenHash, string(purpose)).Scan(
		&t.ID,
		&t.UserID,
		&p,
		&t.TokenHash,
		&t.NewEmail,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ActionToken{}, ErrTokenNotFound
		}
		return ActionToken{}, err
	}
	t.Purpose = Purpose(p)
	return t, nil
}

func (r *TokenPostgresRepo) DeleteByUser(ctx context.Context, userID string, purpose Purpose) error {
	const query = `DELETE FROM auth_tokens WHERE user_id = $1 AND purpose = $2`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, query, userID, string(purpose))
	return err
}

func (r *TokenPostgresRepo) CleanupExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM auth_tokens WHERE expires_at < now()`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	result, err := r.db.Exec(timeoutCtx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
