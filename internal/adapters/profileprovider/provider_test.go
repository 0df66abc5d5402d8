package profileprovider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Amund211/beacon/internal/adapters/profileprovider"
	"github.com/Amund211/beacon/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockedUpstreamAPI struct {
	t          *testing.T
	data       []byte
	statusCode int
	queriedAt  time.Time
	err        error
}

func (api *mockedUpstreamAPI) GetProfileData(ctx context.Context, uuid string) ([]byte, int, time.Time, error) {
	api.t.Helper()
	return api.data, api.statusCode, api.queriedAt, api.err
}

func TestUpstreamProfileProviderGetProfile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	queriedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("successful response", func(t *testing.T) {
		t.Parallel()

		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:          t,
			data:       []byte(`{"success":true,"profile":{"uuid":"uuid1","displayname":"Player1","experience":1087,"lastLogin":1714561200000,"gamesOwned":["alpha","beta"]}}`),
			statusCode: 200,
			queriedAt:  queriedAt,
		})
		require.NoError(t, err)

		profile, err := provider.GetProfile(ctx, "uuid1")
		require.NoError(t, err)
		require.NotNil(t, profile)

		assert.Equal(t, "uuid1", profile.UUID)
		assert.Equal(t, "Player1", profile.Username)
		assert.Equal(t, queriedAt, profile.QueriedAt)
		assert.InDelta(t, 1087.0, profile.Experience, 0.001)
		assert.Equal(t, []string{"alpha", "beta"}, profile.GamesOwned)
		require.NotNil(t, profile.LastLogin)
		assert.Equal(t, time.UnixMilli(1714561200000), *profile.LastLogin)
	})

	t.Run("missing optional fields", func(t *testing.T) {
		t.Parallel()

		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:          t,
			data:       []byte(`{"success":true,"profile":{"uuid":"uuid1"}}`),
			statusCode: 200,
			queriedAt:  queriedAt,
		})
		require.NoError(t, err)

		profile, err := provider.GetProfile(ctx, "uuid1")
		require.NoError(t, err)
		require.NotNil(t, profile)

		assert.Equal(t, "uuid1", profile.UUID)
		assert.Empty(t, profile.Username)
		assert.Zero(t, profile.Experience)
		assert.Nil(t, profile.LastLogin)
	})

	t.Run("success with null profile is not found", func(t *testing.T) {
		t.Parallel()

		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:          t,
			data:       []byte(`{"success":true,"profile":null}`),
			statusCode: 200,
			queriedAt:  queriedAt,
		})
		require.NoError(t, err)

		_, err = provider.GetProfile(ctx, "uuid1")
		require.ErrorIs(t, err, domain.ErrProfileNotFound)
	})

	t.Run("404 is not found", func(t *testing.T) {
		t.Parallel()

		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:          t,
			data:       []byte(`{"success":false,"cause":"no such profile"}`),
			statusCode: 404,
			queriedAt:  queriedAt,
		})
		require.NoError(t, err)

		_, err = provider.GetProfile(ctx, "uuid1")
		require.ErrorIs(t, err, domain.ErrProfileNotFound)
	})

	t.Run("429 is temporarily unavailable", func(t *testing.T) {
		t.Parallel()

		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:          t,
			data:       []byte(`{"success":false,"cause":"slow down"}`),
			statusCode: 429,
			queriedAt:  queriedAt,
		})
		require.NoError(t, err)

		_, err = provider.GetProfile(ctx, "uuid1")
		require.ErrorIs(t, err, domain.ErrTemporarilyUnavailable)
		require.ErrorIs(t, err, profileprovider.ErrUpstreamRatelimit)
	})

	t.Run("503 is temporarily unavailable", func(t *testing.T) {
		t.Parallel()

		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:          t,
			data:       []byte(`{"success":false}`),
			statusCode: 503,
			queriedAt:  queriedAt,
		})
		require.NoError(t, err)

		_, err = provider.GetProfile(ctx, "uuid1")
		require.ErrorIs(t, err, domain.ErrTemporarilyUnavailable)
	})

	t.Run("html response is temporarily unavailable", func(t *testing.T) {
		t.Parallel()

		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:          t,
			data:       []byte(`<html><body>gateway error</body></html>`),
			statusCode: 200,
			queriedAt:  queriedAt,
		})
		require.NoError(t, err)

		_, err = provider.GetProfile(ctx, "uuid1")
		require.ErrorIs(t, err, domain.ErrTemporarilyUnavailable)
	})

	t.Run("invalid json is a server error", func(t *testing.T) {
		t.Parallel()

		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:          t,
			data:       []byte(`{"success":true,`),
			statusCode: 200,
			queriedAt:  queriedAt,
		})
		require.NoError(t, err)

		_, err = provider.GetProfile(ctx, "uuid1")
		require.ErrorIs(t, err, profileprovider.ErrUpstreamBadResponse)
	})

	t.Run("missing uuid is a server error", func(t *testing.T) {
		t.Parallel()

		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:          t,
			data:       []byte(`{"success":true,"profile":{"displayname":"Player1"}}`),
			statusCode: 200,
			queriedAt:  queriedAt,
		})
		require.NoError(t, err)

		_, err = provider.GetProfile(ctx, "uuid1")
		require.ErrorIs(t, err, profileprovider.ErrUpstreamBadResponse)
	})

	t.Run("unsuccessful response uses the reported cause", func(t *testing.T) {
		t.Parallel()

		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:          t,
			data:       []byte(`{"success":false,"cause":"invalid api key"}`),
			statusCode: 200,
			queriedAt:  queriedAt,
		})
		require.NoError(t, err)

		_, err = provider.GetProfile(ctx, "uuid1")
		require.ErrorIs(t, err, profileprovider.ErrUpstreamBadResponse)
		assert.Contains(t, err.Error(), "invalid api key")
	})

	t.Run("transport error is passed through", func(t *testing.T) {
		t.Parallel()

		transportErr := errors.New("connection refused")
		provider, err := profileprovider.NewUpstreamProfileProvider(&mockedUpstreamAPI{
			t:   t,
			err: transportErr,
		})
		require.NoError(t, err)

		_, err = provider.GetProfile(ctx, "uuid1")
		require.ErrorIs(t, err, transportErr)
	})
}
