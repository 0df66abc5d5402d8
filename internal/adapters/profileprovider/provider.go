package profileprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Amund211/beacon/internal/domain"
	"github.com/Amund211/beacon/internal/logging"
	"github.com/Amund211/beacon/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func checkForUpstreamError(statusCode int, data []byte) error {
	if statusCode == 200 {
		if len(data) > 0 && data[0] == '<' {
			return fmt.Errorf("%w: upstream returned HTML: %w", ErrUpstreamBadResponse, domain.ErrTemporarilyUnavailable)
		}
		return nil
	}

	switch {
	case statusCode == 404:
		return domain.ErrProfileNotFound
	case statusCode == 429:
		return fmt.Errorf("%w: upstream returned 429: %w", ErrUpstreamRatelimit, domain.ErrTemporarilyUnavailable)
	case statusCode >= 500:
		return fmt.Errorf("%w: upstream returned status code %d (%s): %w", ErrUpstreamBadResponse, statusCode, http.StatusText(statusCode), domain.ErrTemporarilyUnavailable)
	}

	return fmt.Errorf("%w: upstream returned unsupported status code: %d", ErrUpstreamBadResponse, statusCode)
}

type upstreamProfileProvider struct {
	upstreamAPI UpstreamAPI

	metrics upstreamProfileProviderMetricsCollection
}

func NewUpstreamProfileProvider(upstreamAPI UpstreamAPI) (ProfileProvider, error) {
	meter := otel.Meter("profileprovider/upstream_provider")
	metrics, err := setupUpstreamProfileProviderMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &upstreamProfileProvider{
		upstreamAPI: upstreamAPI,

		metrics: metrics,
	}, nil
}

func (p *upstreamProfileProvider) GetProfile(ctx context.Context, uuid string) (*domain.Profile, error) {
	logger := logging.FromContext(ctx)

	profileData, statusCode, queriedAt, err := p.upstreamAPI.GetProfileData(ctx, uuid)
	if err != nil {
		// NOTE: UpstreamAPI implementations handle their own error reporting
		return nil, fmt.Errorf("failed to get profile data: %w", err)
	}

	if err := checkForUpstreamError(statusCode, profileData); err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			p.metrics.returnedProfiles.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", false)))
			return nil, err
		}

		logger.Error(
			"Got response from upstream",
			"status", "error",
			"error", err.Error(),
			"statusCode", statusCode,
			"contentLength", len(profileData),
		)
		if !errors.Is(err, domain.ErrTemporarilyUnavailable) {
			reporting.Report(ctx, err, map[string]string{
				"statusCode": fmt.Sprint(statusCode),
				"data":       string(profileData),
			})
		}
		return nil, err
	}

	response, err := parseProfileData(profileData)
	if err != nil {
		err = fmt.Errorf("%w: failed to parse profile data: %w", ErrUpstreamBadResponse, err)
		reporting.Report(ctx, err, map[string]string{
			"statusCode": fmt.Sprint(statusCode),
			"data":       string(profileData),
		})
		return nil, err
	}

	profile, err := upstreamResponseToDomainProfile(response, queriedAt)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			p.metrics.returnedProfiles.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", false)))
			return nil, err
		}
		reporting.Report(ctx, err, map[string]string{
			"statusCode": fmt.Sprint(statusCode),
			"data":       string(profileData),
		})
		return nil, fmt.Errorf("failed to convert upstream response to profile: %w", err)
	}

	p.metrics.returnedProfiles.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", true)))

	return profile, nil
}

type upstreamProfileProviderMetricsCollection struct {
	returnedProfiles metric.Int64Counter
}

func setupUpstreamProfileProviderMetrics(meter metric.Meter) (upstreamProfileProviderMetricsCollection, error) {
	returnedProfiles, err := meter.Int64Counter("profileprovider/upstream_provider/returned_profiles")
	if err != nil {
		return upstreamProfileProviderMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return upstreamProfileProviderMetricsCollection{
		returnedProfiles: returnedProfiles,
	}, nil
}
