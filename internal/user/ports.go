package user

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=../auth/mock_user_repository_test.go -package=auth -mock_names=Repository=MockUserRepository

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	UpdateEmail(ctx context.Context, id, email string, verified bool) error
	SetEmailVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string) error
}
