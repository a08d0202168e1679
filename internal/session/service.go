package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Service struct {
	repo          Repository
	blacklistRepo BlacklistRepository
}

func NewService(repo Repository, blacklistRepo BlacklistRepository) *Service {
	return &Service{
		repo:          repo,
		blacklistRepo: blacklistRepo,
	}
}

func (s *Service) ListByUserID(ctx context.Context, userID string) ([]Session, error) {
	return s.repo.ListByUserID(ctx, userID)
}

// Revoke deletes one of userID's sessions.
func (s *Service) Revoke(ctx context.Context, userID, sessionID string) error {
	return s.repo.Delete(ctx, userID, sessionID)
}

func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	return s.repo.DeleteByUserID(ctx, userID)
}

func (s *Service) Create(ctx context.Context, session *Session) error {
	return s.repo.Create(ctx, session)
}

// ConsumeByTokenHash removes the live session behind hash and returns it.
func (s *Service) ConsumeByTokenHash(ctx context.Context, hash string) (Session, error) {
	return s.repo.ConsumeByTokenHash(ctx, hash)
}

func (s *Service) DeleteByTokenHash(ctx context.Context, hash string) error {
	return s.repo.DeleteByTokenHash(ctx, hash)
}

func (s *Service) AddToBlacklist(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	return s.blacklistRepo.AddToken(ctx, jti, userID, expiresAt)
}

func (s *Service) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.blacklistRepo.IsBlacklisted(ctx, jti)
}

// Cleaner drops expired rows from one table.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// RunJanitor removes expired sessions, blacklist entries and the rows of any
// extra cleaners every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger, extra ...Cleaner) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup(ctx, logger, extra...)
		}
	}
}

func (s *Service) cleanup(ctx context.Context, logger *slog.Logger, extra ...Cleaner) {
	var total int64
	for _, c := range append([]Cleaner{s.repo, s.blacklistRepo}, extra...) {
		n, err := c.CleanupExpired(ctx)
		if err != nil {
			logger.Warn("expired row cleanup failed", "cleaner", fmt.Sprintf("%T", c), "error", err)
			continue
		}
		total += n
	}
	if total > 0 {
		logger.Info("expired credentials removed", "rows", total)
	}
}
