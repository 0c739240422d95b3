package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"adminpanel/internal/auth"
	apperrors "adminpanel/internal/errors"
	"adminpanel/internal/model"
	"adminpanel/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (*model.User, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// fakeAttemptStore is an in-memory auth.AttemptStore.
type fakeAttemptStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{counts: map[string]int64{}}
}

func (s *fakeAttemptStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.counts[key]
	if !ok {
		return nil, nil
	}
	return []byte(strconv.FormatInt(n, 10)), nil
}

func (s *fakeAttemptStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeAttemptStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, key)
	return nil
}

func newTestAuthService(repo repository.UserRepository) AuthService {
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	limiter := auth.NewLoginLimiter(newFakeAttemptStore(), 10, time.Minute)
	return NewAuthService(repo, hasher, jwtService, limiter)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:  "successful registration",
			email: "test@example.com",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, apperrors.ErrUserNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Run(func(args mock.Arguments) {
					args.Get(1).(*model.User).ID = 1
				}).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "email already exists",
			email: "existing@example.com",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "existing@example.com").Return(&model.User{Email: "existing@example.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:  "concurrent duplicate caught by the store",
			email: "raced@example.com",
			setupMock: func(m *MockUserRepository) {
				// The pre-check misses; the unique index still rejects.
				m.On("FindByEmail", mock.Anything, "raced@example.com").Return(nil, apperrors.ErrUserNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(apperrors.ErrEmailTaken)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:  "storage failure propagates",
			email: "down@example.com",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "down@example.com").Return(nil, errors.New("connection refused"))
			},
			expectedError: errors.New("check email"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc := newTestAuthService(mockRepo)
			user, token, err := svc.Register(context.Background(), "Test User", tt.email, "secret123")

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.Nil(t, user)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				require.NotNil(t, user)
				assert.Equal(t, tt.email, user.Email)
				assert.Equal(t, model.RoleUser, user.Role, "registration must not assign any other role")
				assert.NotEmpty(t, token)
				assert.NotEqual(t, "secret123", user.PasswordHash)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_RegisterNormalizesEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByEmail", mock.Anything, "ann@x.com").Return(nil, apperrors.ErrUserNotFound)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "ann@x.com"
	})).Return(nil)

	svc := newTestAuthService(mockRepo)
	_, _, err := svc.Register(context.Background(), "Ann", "Ann@X.COM", "secret123")
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "ann@x.com",
			password: "secret123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ann@x.com").Return(&model.User{
					ID:           7,
					Email:        "ann@x.com",
					PasswordHash: string(hash),
				}, nil)
			},
			expectedError: nil,
		},
		{
			name:     "unknown email",
			email:    "nobody@x.com",
			password: "secret123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "nobody@x.com").Return(nil, apperrors.ErrUserNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "ann@x.com",
			password: "wrong-password",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ann@x.com").Return(&model.User{
					ID:           7,
					Email:        "ann@x.com",
					PasswordHash: string(hash),
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc := newTestAuthService(mockRepo)
			user, token, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				require.NotNil(t, user)
				assert.Equal(t, tt.email, user.Email)
				assert.NotEmpty(t, token)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

// Unknown email and wrong password must be indistinguishable to the caller.
func TestAuthService_LoginIndistinguishability(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByEmail", mock.Anything, "nobody@x.com").Return(nil, apperrors.ErrUserNotFound)
	mockRepo.On("FindByEmail", mock.Anything, "ann@x.com").Return(&model.User{
		ID: 7, Email: "ann@x.com", PasswordHash: string(hash),
	}, nil)

	svc := newTestAuthService(mockRepo)

	_, _, unknownErr := svc.Login(context.Background(), "nobody@x.com", "secret123")
	_, _, wrongErr := svc.Login(context.Background(), "ann@x.com", "not-the-password")

	assert.Equal(t, unknownErr, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestAuthService_LoginThrottled(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByEmail", mock.Anything, "ann@x.com").Return(&model.User{
		ID: 7, Email: "ann@x.com", PasswordHash: string(hash),
	}, nil)

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	limiter := auth.NewLoginLimiter(newFakeAttemptStore(), 2, time.Minute)
	svc := NewAuthService(mockRepo, hasher, jwtService, limiter)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := svc.Login(ctx, "ann@x.com", "wrong-password")
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	// The limit is hit: even the correct password is refused until the
	// window expires.
	_, _, err = svc.Login(ctx, "ann@x.com", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrTooManyAttempts)
}

func TestAuthService_LoginSuccessResetsThrottle(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByEmail", mock.Anything, "ann@x.com").Return(&model.User{
		ID: 7, Email: "ann@x.com", PasswordHash: string(hash),
	}, nil)

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	store := newFakeAttemptStore()
	limiter := auth.NewLoginLimiter(store, 2, time.Minute)
	svc := NewAuthService(mockRepo, hasher, jwtService, limiter)
	ctx := context.Background()

	_, _, err = svc.Login(ctx, "ann@x.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "ann@x.com", "secret123")
	require.NoError(t, err)
	assert.Empty(t, store.counts, "success must clear the failure counter")

	// The window starts over: one more failure does not trip the limit.
	_, _, err = svc.Login(ctx, "ann@x.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "ann@x.com", "secret123")
	assert.NoError(t, err)
}

func TestAuthService_LoginTokenVerifies(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByEmail", mock.Anything, "ann@x.com").Return(&model.User{
		ID: 7, Email: "ann@x.com", PasswordHash: string(hash),
	}, nil)

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	limiter := auth.NewLoginLimiter(newFakeAttemptStore(), 10, time.Minute)
	svc := NewAuthService(mockRepo, hasher, jwtService, limiter)

	_, token, err := svc.Login(context.Background(), "ann@x.com", "secret123")
	require.NoError(t, err)

	claims, err := jwtService.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "ann@x.com", claims.Email)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	name := "New Name"

	mockRepo := new(MockUserRepository)
	mockRepo.On("Update", mock.Anything, uint(7), map[string]interface{}{"name": "New Name"}).
		Return(&model.User{ID: 7, Name: "New Name"}, nil)

	svc := newTestAuthService(mockRepo)
	user, err := svc.UpdateProfile(context.Background(), 7, &name, nil)

	require.NoError(t, err)
	assert.Equal(t, "New Name", user.Name)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_UpdateProfileNoFields(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByID", mock.Anything, uint(7)).Return(&model.User{ID: 7, Name: "Ann"}, nil)

	svc := newTestAuthService(mockRepo)
	user, err := svc.UpdateProfile(context.Background(), 7, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_ChangePassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("old-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &model.User{ID: 7, Email: "ann@x.com", PasswordHash: string(hash)}

	t.Run("wrong current password", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, uint(7)).Return(stored, nil)

		svc := newTestAuthService(mockRepo)
		err := svc.ChangePassword(context.Background(), 7, "not-the-password", "new-secret")
		assert.ErrorIs(t, err, apperrors.ErrWrongPassword)
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("success stores a hash of the new password", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, uint(7)).Return(stored, nil)
		mockRepo.On("Update", mock.Anything, uint(7), mock.MatchedBy(func(fields map[string]interface{}) bool {
			newHash, ok := fields["password_hash"].(string)
			if !ok {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(newHash), []byte("new-secret")) == nil
		})).Return(stored, nil)

		svc := newTestAuthService(mockRepo)
		err := svc.ChangePassword(context.Background(), 7, "old-secret", "new-secret")
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

// racyUserRepo enforces email uniqueness under a mutex, standing in for the
// database's unique index.
type racyUserRepo struct {
	mu     sync.Mutex
	nextID uint
	byMail map[string]*model.User
}

func newRacyUserRepo() *racyUserRepo {
	return &racyUserRepo{byMail: map[string]*model.User{}}
}

func (r *racyUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byMail[user.Email]; ok {
		return apperrors.ErrEmailTaken
	}
	r.nextID++
	user.ID = r.nextID
	r.byMail[user.Email] = user
	return nil
}

func (r *racyUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	// Deliberately always misses so both registrations pass the pre-check
	// and race into Create.
	return nil, apperrors.ErrUserNotFound
}

func (r *racyUserRepo) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return nil, apperrors.ErrUserNotFound
}

func (r *racyUserRepo) Update(ctx context.Context, id uint, fields map[string]interface{}) (*model.User, error) {
	return nil, apperrors.ErrUserNotFound
}

func (r *racyUserRepo) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	return nil, nil
}

func (r *racyUserRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

func (r *racyUserRepo) Delete(ctx context.Context, id uint) error { return nil }

func TestAuthService_ConcurrentRegistration(t *testing.T) {
	repo := newRacyUserRepo()
	svc := newTestAuthService(repo)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Register(context.Background(), "Ann", "ann@x.com", "secret123")
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, apperrors.ErrEmailTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one registration must win")
	assert.Equal(t, 1, conflicts)
}
