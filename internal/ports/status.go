package ports

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Amund211/beacon/internal/logging"
	"github.com/Amund211/beacon/internal/reporting"
	"github.com/Amund211/beacon/internal/resolve"
)

type statusResponse struct {
	Pools map[string]resolve.Status `json:"pools"`
}

// MakeStatusHandler reports the occupancy of every registered resolver.
func MakeStatusHandler(
	statusFuncs []func() resolve.Status,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("status"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		response := statusResponse{
			Pools: make(map[string]resolve.Status, len(statusFuncs)),
		}
		for _, statusFunc := range statusFuncs {
			status := statusFunc()
			response.Pools[status.PoolName] = status
		}

		marshalled, err := json.Marshal(response)
		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to marshal status response: %w", err))
			writeErrorResponse(ctx, w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(marshalled)
	}

	return middleware(handler)
}
