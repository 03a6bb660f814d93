package service

import (
	"context"

	"session-gateway/entities"
	"session-gateway/pkg/identity"
	"session-gateway/repository"
)

// ProfileService manages the cached display profiles. Callers may only write
// their own profile.
type ProfileService interface {
	GetProfile(ctx context.Context, principal string) (*entities.UserProfile, error)
	SaveProfile(ctx context.Context, profile *entities.UserProfile) error
}

type profileService struct {
	repo repository.ProfileRepository
}

func NewProfileService(repo repository.ProfileRepository) ProfileService {
	return &profileService{repo: repo}
}

func (s *profileService) GetProfile(ctx context.Context, principal string) (*entities.UserProfile, error) {
	return s.repo.GetProfile(ctx, principal)
}

func (s *profileService) SaveProfile(ctx context.Context, profile *entities.UserProfile) error {
	id := identity.FromContext(ctx)
	if id == nil {
		return ErrAuthRequired
	}
	profile.Principal = id.Principal
	return s.repo.UpsertProfile(ctx, profile)
}
