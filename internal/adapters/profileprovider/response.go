package profileprovider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Amund211/beacon/internal/domain"
)

type upstreamResponse struct {
	Success bool             `json:"success"`
	Profile *upstreamProfile `json:"profile"`
	Cause   *string          `json:"cause,omitempty"`
}

type upstreamProfile struct {
	UUID        *string  `json:"uuid,omitempty"`
	Displayname *string  `json:"displayname,omitempty"`
	LastLogin   *int64   `json:"lastLogin,omitempty"`
	Experience  *float64 `json:"experience,omitempty"`
	GamesOwned  []string `json:"gamesOwned,omitempty"`
}

func parseProfileData(data []byte) (*upstreamResponse, error) {
	response := &upstreamResponse{}
	if err := json.Unmarshal(data, response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return response, nil
}

func upstreamResponseToDomainProfile(response *upstreamResponse, queriedAt time.Time) (*domain.Profile, error) {
	if !response.Success {
		cause := "unknown upstream error"
		if response.Cause != nil {
			cause = *response.Cause
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstreamBadResponse, cause)
	}

	if response.Profile == nil {
		return nil, domain.ErrProfileNotFound
	}

	apiProfile := response.Profile

	if apiProfile.UUID == nil {
		return nil, fmt.Errorf("%w: missing uuid", ErrUpstreamBadResponse)
	}

	username := ""
	if apiProfile.Displayname != nil {
		username = *apiProfile.Displayname
	}

	experience := 0.0
	if apiProfile.Experience != nil {
		experience = *apiProfile.Experience
	}

	var lastLogin *time.Time
	if apiProfile.LastLogin != nil {
		l := time.UnixMilli(*apiProfile.LastLogin)
		lastLogin = &l
	}

	return &domain.Profile{
		UUID:       *apiProfile.UUID,
		Username:   username,
		QueriedAt:  queriedAt,
		Experience: experience,
		GamesOwned: apiProfile.GamesOwned,
		LastLogin:  lastLogin,
	}, nil
}
