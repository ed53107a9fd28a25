package service

import (
	"context"

	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/pagination"
	"github.com/and161185/notekeeper/internal/repository"
)

// UserService exposes the user directory.
type UserService interface {
	// List returns one page of users ordered by username; Subject filters by username prefix.
	List(ctx context.Context, req pagination.Request) (pagination.Page[model.PublicUser], error)
}

type UserServiceImpl struct {
	repo    repository.UserRepository
	cursors *pagination.Cursors
}

// NewUserService constructs UserService; cursors must be bound to the users listing.
func NewUserService(repo repository.UserRepository, cursors *pagination.Cursors) *UserServiceImpl {
	return &UserServiceImpl{repo: repo, cursors: cursors}
}

// List pages through the directory.
func (s *UserServiceImpl) List(ctx context.Context, req pagination.Request) (pagination.Page[model.PublicUser], error) {
	return pagination.Paginate[model.PublicUser](ctx, s.cursors, req, s.repo.Count, s.repo.List)
}
