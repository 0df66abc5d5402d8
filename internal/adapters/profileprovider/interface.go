package profileprovider

import (
	"context"

	"github.com/Amund211/beacon/internal/domain"
)

type ProfileProvider interface {
	// Raises domain.ErrProfileNotFound if no profile exists for the given UUID
	//
	// Raises domain.ErrTemporarilyUnavailable if the provider implementation receives an error believed to be intermittent. The call may be retried later.
	GetProfile(ctx context.Context, uuid string) (*domain.Profile, error)
}
