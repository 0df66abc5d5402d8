package ports

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Amund211/beacon/internal/app"
	"github.com/Amund211/beacon/internal/logging"
	"github.com/Amund211/beacon/internal/ratelimiting"
	"github.com/Amund211/beacon/internal/reporting"
	"github.com/Amund211/beacon/internal/resolve"
)

const maxBatchSize = 100

type resolveProfilesRequest struct {
	UUIDs []string `json:"uuids"`

	Spawn        *bool   `json:"spawn,omitempty"`
	SpawnTimeout *string `json:"spawnTimeout,omitempty"`
	SpawnRaise   *bool   `json:"spawnRaise,omitempty"`
	Join         *bool   `json:"join,omitempty"`
	JoinTimeout  *string `json:"joinTimeout,omitempty"`
	JoinRaise    *bool   `json:"joinRaise,omitempty"`
}

type resolveProfilesResponse struct {
	Success  bool                       `json:"success"`
	Profiles map[string]profileResponse `json:"profiles"`
	Errors   map[string]string          `json:"errors"`
}

func (request *resolveProfilesRequest) resolveOptions() ([]resolve.Option, error) {
	var opts []resolve.Option

	if request.Spawn != nil {
		opts = append(opts, resolve.WithSpawn(*request.Spawn))
	}
	if request.SpawnTimeout != nil {
		timeout, err := time.ParseDuration(*request.SpawnTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid spawnTimeout: %w", err)
		}
		opts = append(opts, resolve.WithSpawnTimeout(timeout))
	}
	if request.SpawnRaise != nil {
		opts = append(opts, resolve.WithSpawnRaise(*request.SpawnRaise))
	}
	if request.Join != nil {
		opts = append(opts, resolve.WithJoin(*request.Join))
	}
	if request.JoinTimeout != nil {
		timeout, err := time.ParseDuration(*request.JoinTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid joinTimeout: %w", err)
		}
		opts = append(opts, resolve.WithJoinTimeout(timeout))
	}
	if request.JoinRaise != nil {
		opts = append(opts, resolve.WithJoinRaise(*request.JoinRaise))
	}

	return opts, nil
}

func MakeResolveProfilesHandler(
	resolveProfiles app.ResolveProfiles,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	ipLimiter, _ := ratelimiting.NewBucketLimiter(8, 480, 30*time.Minute)
	ipRequestLimiter := ratelimiting.NewRequestLimiter(ipLimiter, ratelimiting.ClientIPKey)

	onLimitExceeded := func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(r.Context(), w, "rate limit exceeded", http.StatusTooManyRequests)
	}

	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("resolve_profiles"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		NewRateLimitMiddleware(ipRequestLimiter, onLimitExceeded),
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		var request resolveProfilesRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeErrorResponse(ctx, w, "invalid request body", http.StatusBadRequest)
			return
		}

		if len(request.UUIDs) == 0 {
			writeErrorResponse(ctx, w, "no uuids given", http.StatusBadRequest)
			return
		}
		if len(request.UUIDs) > maxBatchSize {
			writeErrorResponse(ctx, w, fmt.Sprintf("too many uuids (max %d)", maxBatchSize), http.StatusBadRequest)
			return
		}

		opts, err := request.resolveOptions()
		if err != nil {
			writeErrorResponse(ctx, w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx = logging.AddMetaToContext(ctx, slog.Int("batchSize", len(request.UUIDs)))
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{
			"batchSize": fmt.Sprint(len(request.UUIDs)),
		})

		result, err := resolveProfiles(ctx, request.UUIDs, opts...)
		if err != nil {
			// NOTE: ResolveProfiles implementations handle their own error reporting
			logger.Error("failed to resolve profiles", "error", err.Error())

			if errors.Is(err, resolve.ErrDispatchTimeout) || errors.Is(err, resolve.ErrJoinTimeout) {
				writeErrorResponse(ctx, w, "timed out resolving profiles", http.StatusGatewayTimeout)
				return
			}
			writeErrorResponse(ctx, w, "internal server error", http.StatusInternalServerError)
			return
		}

		response := resolveProfilesResponse{
			Success:  true,
			Profiles: make(map[string]profileResponse, len(result.Data)),
			Errors:   make(map[string]string, len(result.Errors)),
		}
		for uuid, profile := range result.Data {
			response.Profiles[uuid] = domainProfileToResponse(profile)
		}
		for uuid, resolveErr := range result.Errors {
			response.Errors[uuid] = resolveErr.Error()
		}

		marshalled, err := json.Marshal(response)
		if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to marshal response: %w", err))
			writeErrorResponse(ctx, w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(marshalled)
	}

	return middleware(handler)
}
