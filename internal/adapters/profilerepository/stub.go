package profilerepository

import (
	"context"
	"sync"
	"time"

	"github.com/Amund211/beacon/internal/domain"
)

// stubProfileRepository keeps the latest profile per uuid in memory. For tests
// and development.
type stubProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func NewStubProfileRepository() *stubProfileRepository {
	return &stubProfileRepository{
		profiles: make(map[string]*domain.Profile),
	}
}

func (s *stubProfileRepository) StoreProfile(ctx context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.UUID] = profile
	return nil
}

func (s *stubProfileRepository) GetProfiles(ctx context.Context, playerUUIDs []string, since time.Time) (map[string]*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make(map[string]*domain.Profile)
	for _, uuid := range playerUUIDs {
		profile, ok := s.profiles[uuid]
		if !ok || !profile.QueriedAt.After(since) {
			continue
		}
		profiles[uuid] = profile
	}
	return profiles, nil
}
