package service

import (
	"context"
	"errors"
	"fmt"

	"adminpanel/internal/auth"
	apperrors "adminpanel/internal/errors"
	"adminpanel/internal/model"
	"adminpanel/internal/repository"
)

// AuthService handles authentication operations.
type AuthService interface {
	// Register creates a user and returns it with a fresh session token. The
	// role is always "user"; callers cannot self-assign roles.
	Register(ctx context.Context, name, email, password string) (*model.User, string, error)
	// Login verifies credentials and returns the user with a fresh session
	// token. Unknown email and wrong password are indistinguishable to the
	// caller.
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	// UpdateProfile applies the supplied fields only; nil means unchanged.
	UpdateProfile(ctx context.Context, userID uint, name, profileImage *string) (*model.User, error)
	// ChangePassword verifies the current password before storing the new
	// hash. The caller must clear the session afterwards.
	ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error
}

type authService struct {
	userRepo   repository.UserRepository
	hasher     *auth.PasswordHasher
	jwtService *auth.JWTService
	limiter    *auth.LoginLimiter
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, hasher *auth.PasswordHasher, jwtService *auth.JWTService, limiter *auth.LoginLimiter) AuthService {
	return &authService{
		userRepo:   userRepo,
		hasher:     hasher,
		jwtService: jwtService,
		limiter:    limiter,
	}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*model.User, string, error) {
	email = repository.NormalizeEmail(email)

	// Pre-check for a friendly conflict error. The unique index on email is
	// the real guarantee: a concurrent registration that slips past this
	// check still fails in Create with ErrEmailTaken.
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, "", apperrors.ErrEmailTaken
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, "", fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = repository.NormalizeEmail(email)

	if !s.limiter.Allow(ctx, email) {
		return nil, "", apperrors.ErrTooManyAttempts
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			s.limiter.RecordFailure(ctx, email)
			return nil, "", apperrors.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.limiter.RecordFailure(ctx, email)
		return nil, "", apperrors.ErrInvalidCredentials
	}

	s.limiter.Reset(ctx, email)

	token, err := s.jwtService.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return user, token, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uint, name, profileImage *string) (*model.User, error) {
	fields := map[string]interface{}{}
	if name != nil {
		fields["name"] = *name
	}
	if profileImage != nil {
		fields["profile_image"] = *profileImage
	}
	if len(fields) == 0 {
		return s.userRepo.FindByID(ctx, userID)
	}
	return s.userRepo.Update(ctx, userID, fields)
}

func (s *authService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return apperrors.ErrWrongPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if _, err := s.userRepo.Update(ctx, userID, map[string]interface{}{"password_hash": hash}); err != nil {
		return err
	}
	return nil
}
