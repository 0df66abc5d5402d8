package profilerepository

import (
	"context"
	"time"

	"github.com/Amund211/beacon/internal/domain"
)

type ProfileRepository interface {
	StoreProfile(ctx context.Context, profile *domain.Profile) error
	// GetProfiles returns the most recent stored profile for each of the
	// given player UUIDs, restricted to profiles queried after since.
	GetProfiles(ctx context.Context, playerUUIDs []string, since time.Time) (map[string]*domain.Profile, error)
}
