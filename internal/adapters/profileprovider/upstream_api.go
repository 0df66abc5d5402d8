package profileprovider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Amund211/beacon/internal/config"
	"github.com/Amund211/beacon/internal/domain"
	"github.com/Amund211/beacon/internal/logging"
	"github.com/Amund211/beacon/internal/ratelimiting"
	"github.com/Amund211/beacon/internal/reporting"
)

const userAgent = "beacon/1.0 (+https://github.com/Amund211/beacon)"

const getProfileMinOperationTime = 150 * time.Millisecond

// Self-imposed limit to stay below the upstream quota
const upstreamRequestLimit = 600
const upstreamRequestWindow = 1 * time.Minute

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type RequestLimiter interface {
	Run(ctx context.Context, minOperationTime time.Duration, operation func()) bool
}

type UpstreamAPI interface {
	GetProfileData(ctx context.Context, uuid string) ([]byte, int, time.Time, error)
}

type mockedUpstreamAPI struct{}

func (api *mockedUpstreamAPI) GetProfileData(ctx context.Context, uuid string) ([]byte, int, time.Time, error) {
	return []byte(fmt.Sprintf(`{"success":true,"profile":{"uuid":"%s","displayname":"dev","experience":500}}`, uuid)), 200, time.Now(), nil
}

type upstreamAPIImpl struct {
	httpClient HttpClient
	limiter    RequestLimiter
	baseURL    string
	apiKey     string
}

func (api upstreamAPIImpl) GetProfileData(ctx context.Context, uuid string) ([]byte, int, time.Time, error) {
	logger := logging.FromContext(ctx)
	requestURL := fmt.Sprintf("%s/v1/profile?uuid=%s", api.baseURL, url.QueryEscape(uuid))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return []byte{}, -1, time.Time{}, err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("API-Key", api.apiKey)

	start := time.Now()
	var resp *http.Response
	var data []byte
	ran := api.limiter.Run(ctx, getProfileMinOperationTime, func() {
		resp, err = api.httpClient.Do(req)
		if err != nil {
			err = fmt.Errorf("failed to send request: %w", err)
			return
		}

		defer resp.Body.Close()
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			err = fmt.Errorf("failed to read response body: %w", err)
		}
	})
	if !ran {
		logger.Warn("Did not call upstream due to rate limiting", "ctx_error", ctx.Err())
		return []byte{}, -1, time.Time{}, fmt.Errorf("%w: exhausted self-imposed upstream quota: %w", ErrUpstreamRatelimit, domain.ErrTemporarilyUnavailable)
	}
	if err != nil {
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return []byte{}, -1, time.Time{}, err
	}

	queriedAt := time.Now()

	logger.Info("upstream request completed", "url", requestURL, "status", resp.StatusCode, "duration", time.Since(start).String())

	return data, resp.StatusCode, queriedAt, nil
}

func NewUpstreamAPI(httpClient HttpClient, baseURL, apiKey string) UpstreamAPI {
	budget := ratelimiting.NewBudget(upstreamRequestLimit, upstreamRequestWindow)
	return newUpstreamAPIWithLimiter(httpClient, budget, baseURL, apiKey)
}

func newUpstreamAPIWithLimiter(httpClient HttpClient, limiter RequestLimiter, baseURL, apiKey string) UpstreamAPI {
	return upstreamAPIImpl{
		httpClient: httpClient,
		limiter:    limiter,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

func NewUpstreamAPIOrMock(config config.Config, httpClient HttpClient) (UpstreamAPI, error) {
	if config.UpstreamBaseURL() != "" && config.UpstreamAPIKey() != "" {
		return NewUpstreamAPI(httpClient, config.UpstreamBaseURL(), config.UpstreamAPIKey()), nil
	}
	if config.IsDevelopment() {
		return &mockedUpstreamAPI{}, nil
	}
	return nil, fmt.Errorf("missing upstream configuration in non-development environment")
}
