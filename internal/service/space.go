package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/msomdec/updog/internal/domain"
)

// SpaceService manages content spaces.
type SpaceService struct {
	spaces domain.SpaceRepository
	subs   domain.SubscriptionRepository
}

func NewSpaceService(spaces domain.SpaceRepository, subs domain.SubscriptionRepository) *SpaceService {
	return &SpaceService{spaces: spaces, subs: subs}
}

// SeedDefaults makes sure a default space exists for each name. Existing
// spaces with a configured name are flagged as default. It is idempotent.
func (s *SpaceService) SeedDefaults(ctx context.Context, names []string) error {
	for _, name := range names {
		existing, err := s.spaces.GetByName(ctx, name)
		if err == nil {
			if !existing.IsDefault {
				if err := s.spaces.SetDefault(ctx, existing.ID, true); err != nil {
					return fmt.Errorf("flag space %s as default: %w", name, err)
				}
			}
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("check space %s: %w", name, err)
		}
		err = s.spaces.Create(ctx, &domain.Space{Name: name, IsDefault: true})
		if err != nil && !errors.Is(err, domain.ErrCollision) {
			return fmt.Errorf("seed space %s: %w", name, err)
		}
	}
	return nil
}

// Subscriptions lists the spaces the user is subscribed to.
func (s *SpaceService) Subscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}
