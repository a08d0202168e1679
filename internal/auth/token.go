package auth

import (
	"context"
	"errors"
	"time"
)

var ErrTokenNotFound = errors.New("action token not found")

// Purpose scopes a one-time token to the flow that issued it.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposePasswordReset Purpose = "password_reset"
	PurposeEmailChange   Purpose = "email_change"
)

// ActionToken is a one-time link token. Only its hash is stored.
type ActionToken struct {
	ID        string
	UserID    string
	Purpose   Purpose
	TokenHash string
	NewEmail  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

//go:generate mockgen -source=token.go -destination=mock_token_repository_test.go -package=auth -mock_names=TokenRepository=MockTokenRepository

type TokenRepository interface {
	Create(ctx context.Context, t *ActionToken) error
	// Consume deletes and returns the token, so each one is redeemable once.
	Consume(ctx context.Context, purpose Purpose, tokenHash string) (ActionToken, error)
	DeleteByUser(ctx context.Context, userID string, purpose Purpose) error
	CleanupExpired(ctx context.Context) (int64, error)
}
