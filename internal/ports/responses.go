package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Amund211/beacon/internal/domain"
	"github.com/Amund211/beacon/internal/reporting"
)

type profileResponse struct {
	UUID       string    `json:"uuid"`
	Username   string    `json:"username,omitempty"`
	Experience float64   `json:"experience"`
	GamesOwned []string  `json:"gamesOwned,omitempty"`
	LastLogin  *int64    `json:"lastLogin,omitempty"`
	QueriedAt  time.Time `json:"queriedAt"`
}

func domainProfileToResponse(profile *domain.Profile) profileResponse {
	var lastLogin *int64
	if profile.LastLogin != nil {
		l := profile.LastLogin.UnixMilli()
		lastLogin = &l
	}

	return profileResponse{
		UUID:       profile.UUID,
		Username:   profile.Username,
		Experience: profile.Experience,
		GamesOwned: profile.GamesOwned,
		LastLogin:  lastLogin,
		QueriedAt:  profile.QueriedAt,
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
}

func writeErrorResponse(ctx context.Context, w http.ResponseWriter, cause string, statusCode int) {
	response, err := json.Marshal(errorResponse{Success: false, Cause: cause})
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to marshal error response: %w", err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"cause":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(response)
}
