package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wdallo/libraryApp-sub000/internal/domain"
	"github.com/wdallo/libraryApp-sub000/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewUserService(repo domain.Repository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// EnsureUser registers a caller-supplied identity on first sight. Identity
// is trusted input; the authentication layer upstream has already vouched
// for it.
func (s *UserService) EnsureUser(ctx context.Context, id int64, name string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err == nil {
		if name != "" && name != user.Name {
			user.Name = name
			if err := s.repo.CreateOrUpdateUser(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	if name == "" {
		name = fmt.Sprintf("User %d", id)
	}
	user = &models.User{ID: id, Name: name}
	if err := s.repo.CreateOrUpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", id).Msg("user registered")
	return s.repo.GetUser(ctx, id)
}
