package repository

import (
	"context"

	"app/internal/domain/model"
)

type UserListQuery struct {
	Page  int
	Limit int
}

type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context, q UserListQuery) ([]model.User, int64, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	Update(ctx context.Context, u model.User) error
	Delete(ctx context.Context, userID int64) error
}
