package service

import (
	"context"

	apperrors "adminpanel/internal/errors"
	"adminpanel/internal/model"
	"adminpanel/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserPage is one page of the user listing.
type UserPage struct {
	Users []model.User `json:"users"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// UserService handles administrative user management.
type UserService interface {
	List(ctx context.Context, page, limit int) (*UserPage, error)
	Get(ctx context.Context, id uint) (*model.User, error)
	// UpdateRole changes a user's role; role must belong to the closed enum.
	UpdateRole(ctx context.Context, id uint, role string) (*model.User, error)
	// Delete hard-removes a user. actorID guards against admins deleting
	// themselves.
	Delete(ctx context.Context, actorID, id uint) error
}

type userService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new user management service.
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) List(ctx context.Context, page, limit int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	return &UserPage{
		Users: users,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func (s *userService) Get(ctx context.Context, id uint) (*model.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

func (s *userService) UpdateRole(ctx context.Context, id uint, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, apperrors.ErrInvalidRole
	}
	return s.userRepo.Update(ctx, id, map[string]interface{}{"role": role})
}

func (s *userService) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return apperrors.ErrSelfDelete
	}
	return s.userRepo.Delete(ctx, id)
}
