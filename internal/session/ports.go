package session

import (
	"context"
	"time"
)

//go:generate mockgen -source=ports.go -destination=../auth/mock_session_repository_test.go -package=auth -mock_names=Repository=MockSessionRepository,BlacklistRepository=MockBlacklistRepository

type Repository interface {
	Create(ctx context.Context, s *Session) error
	ConsumeByTokenHash(ctx context.Context, tokenHash string) (Session, error)
	ListByUserID(ctx context.Context, userID string) ([]Session, error)
	Delete(ctx context.Context, userID, sessionID string) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUserID(ctx context.Context, userID string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type BlacklistRepository interface {
	AddToken(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	CleanupExpired(ctx context.Context) (int64, error)
}
