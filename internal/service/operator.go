package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/letterbox/letterbox/internal/auth"
	"github.com/letterbox/letterbox/internal/model"
	"github.com/letterbox/letterbox/internal/repository"
	"github.com/letterbox/letterbox/internal/secret"
)

// OperatorService provisions broadcast operators out of band.
type OperatorService struct {
	users      UserStore
	validator  *Validator
	hashSecret secret.String
	logger     *slog.Logger
}

// NewOperatorService creates a new OperatorService.
func NewOperatorService(users UserStore, validator *Validator, hashSecret secret.String, logger *slog.Logger) *OperatorService {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = NewValidator()
	}
	return &OperatorService{
		users:      users,
		validator:  validator,
		hashSecret: hashSecret,
		logger:     logger.With("component", "operators"),
	}
}

// Provision validates and stores a new operator with a keyed password hash.
func (s *OperatorService) Provision(ctx context.Context, username string, password secret.String) (*model.User, error) {
	if err := s.validator.ValidateOperator(username, password.Expose()); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password.Expose(), s.hashSecret)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return nil, ErrUsernameTaken
		}
		return nil, storageError("create operator", err)
	}

	s.logger.Info("operator provisioned", "user_id", user.ID, "username", user.Username)
	return user, nil
}
