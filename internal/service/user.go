package service

import (
	"context"
	"strings"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	apperrors "github.com/photokeepapp/photokeep-server/internal/errors"
	"github.com/photokeepapp/photokeep-server/internal/id"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/store"
)

// UserService provisions and manages accounts.
type UserService struct {
	store             store.Store
	logger            *logger.Logger
	defaultQuotaBytes int64
}

// NewUserService creates a new user service. defaultQuotaBytes is the
// storage limit assigned to users created without an explicit one.
func NewUserService(st store.Store, log *logger.Logger, defaultQuotaBytes int64) *UserService {
	return &UserService{
		store:             st,
		logger:            log,
		defaultQuotaBytes: defaultQuotaBytes,
	}
}

// Create provisions a new user. A zero quotaLimit applies the default.
func (s *UserService) Create(ctx context.Context, username, email string, quotaLimit int64) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.Validation("username is required")
	}
	if quotaLimit < 0 {
		return nil, apperrors.Validation("quota limit must not be negative")
	}
	if quotaLimit == 0 {
		quotaLimit = s.defaultQuotaBytes
	}

	user := &domain.User{
		Username:   username,
		Email:      strings.TrimSpace(email),
		QuotaLimit: quotaLimit,
	}
	user.ID = id.MustGenerate(id.PrefixUser)
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if apperrors.Is(err, store.ErrAlreadyExists) {
			return nil, apperrors.AlreadyExists("username is already taken")
		}
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID, "username", user.Username, "quota_limit", user.QuotaLimit)
	return user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if apperrors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	return user, err
}

// SetQuotaLimit changes a user's storage limit. Lowering the limit below
// current consumption is allowed: existing content stays, new uploads
// are rejected until usage drops.
func (s *UserService) SetQuotaLimit(ctx context.Context, userID string, limit int64) (*domain.User, error) {
	if limit <= 0 {
		return nil, apperrors.Validation("quota limit must be positive")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.QuotaLimit = limit
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("quota limit changed", "user_id", userID, "quota_limit", limit)
	return user, nil
}
