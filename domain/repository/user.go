package repository

import (
	"context"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

// IUser provides platform identity lookups for the auth middleware and login.
type IUser interface {
	GetById(ctx context.Context, id int) (model.User, error)
	GetByUserName(ctx context.Context, userName string) (model.User, error)
	CreateUser(ctx context.Context, user model.User) error
}
