package service

import (
	"context"
	"errors"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/repository"
)

// UserService serves the profile endpoints.
type UserService struct {
	users *repository.UserRepo
	clock Clock
}

func NewUserService(users *repository.UserRepo, clock Clock) *UserService {
	return &UserService{users: users, clock: clock}
}

// Profile returns the account with its settings and onboarding answers.
// Missing settings or onboarding rows render as null.
func (s *UserService) Profile(ctx context.Context, userID string) (model.Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err == nil && u.IsDeleted {
		err = repository.ErrNotFound
	}
	if err != nil {
		return model.Profile{}, notFound(err, "User not found", "load profile failed")
	}
	p := model.Profile{CurrentUser: u.Current()}

	settings, err := s.users.GetSettings(ctx, userID)
	switch {
	case err == nil:
		p.Settings = &settings
	case !errors.Is(err, repository.ErrNotFound):
		return model.Profile{}, apperr.Internal("load profile failed", err)
	}

	onboarding, err := s.users.GetOnboarding(ctx, userID)
	switch {
	case err == nil:
		p.Onboarding = &onboarding
	case !errors.Is(err, repository.ErrNotFound):
		return model.Profile{}, apperr.Internal("load profile failed", err)
	}
	return p, nil
}

// UpdateProfile applies upd and returns the updated account view.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) (model.CurrentUser, error) {
	if err := s.users.UpdateProfile(ctx, userID, upd, s.clock.now()); err != nil {
		return model.CurrentUser{}, notFound(err, "User not found", "update profile failed")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.CurrentUser{}, notFound(err, "User not found", "update profile failed")
	}
	return u.Current(), nil
}
