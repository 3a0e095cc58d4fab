package manifold_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/adapters/manifold"
	"github.com/alejandrodnm/edgebot/internal/domain"
)

const manifoldMarketsFixture = `[
	{
		"id": "mkt001",
		"question": "Will SpaceX launch Starship this month?",
		"url": "https://manifold.markets/u/starship-launch",
		"outcomeType": "BINARY",
		"mechanism": "cpmm-1",
		"probability": 0.63,
		"totalLiquidity": 850,
		"volume": 4200,
		"closeTime": 1790769600000,
		"uniqueBettorCount": 37,
		"isResolved": false
	},
	{
		"id": "mkt002",
		"question": "Which team wins the league?",
		"url": "https://manifold.markets/u/league-winner",
		"outcomeType": "MULTIPLE_CHOICE",
		"mechanism": "cpmm-multi-1",
		"probability": 0,
		"totalLiquidity": 2000,
		"volume": 9000,
		"closeTime": 1790769600000,
		"uniqueBettorCount": 80,
		"isResolved": false
	}
]`

func TestFetchCandidateMarkets_MapsFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "200", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(manifoldMarketsFixture))
	}))
	defer srv.Close()

	client := manifold.NewClient(srv.URL, "")
	markets, err := client.FetchCandidateMarkets(context.Background(), 200)

	require.NoError(t, err)
	require.Len(t, markets, 2)

	m := markets[0]
	assert.Equal(t, "mkt001", m.ID)
	assert.Equal(t, domain.VenueManifold, m.Venue)
	assert.Equal(t, domain.MechanismPooled, m.Mechanism)
	assert.InDelta(t, 0.63, m.Probability, 0.001)
	assert.InDelta(t, 850.0, m.Liquidity, 0.001)
	assert.Equal(t, 37, m.Participants)
	assert.True(t, m.Binary)
	assert.False(t, m.Resolved)
	assert.Equal(t, time.UnixMilli(1790769600000).UTC(), m.CloseTime)

	// El multiple choice se mapea pero no cuenta como binario
	assert.False(t, markets[1].Binary)
}

func TestFetchMarket_ResolvedYes(t *testing.T) {
	fixture := `{
		"id": "mkt001",
		"question": "Will SpaceX launch Starship this month?",
		"outcomeType": "BINARY",
		"mechanism": "cpmm-1",
		"probability": 0.99,
		"totalLiquidity": 850,
		"closeTime": 1790769600000,
		"isResolved": true,
		"resolution": "YES"
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market/mkt001", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	client := manifold.NewClient(srv.URL, "")
	m, err := client.FetchMarket(context.Background(), "mkt001")

	require.NoError(t, err)
	assert.True(t, m.Resolved)
	assert.Equal(t, domain.OutcomeYes, m.Outcome)
}

func TestFetchMarket_ResolvedMkt(t *testing.T) {
	fixture := `{
		"id": "mkt003",
		"question": "Partial outcome market",
		"outcomeType": "BINARY",
		"mechanism": "cpmm-1",
		"probability": 0.42,
		"totalLiquidity": 300,
		"closeTime": 1790769600000,
		"isResolved": true,
		"resolution": "MKT",
		"resolutionProbability": 0.42
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	client := manifold.NewClient(srv.URL, "")
	m, err := client.FetchMarket(context.Background(), "mkt003")

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMkt, m.Outcome)
	assert.InDelta(t, 0.42, m.ResolutionProb, 0.001)
}

func TestFetchMarket_UnknownResolution(t *testing.T) {
	fixture := `{
		"id": "mkt004",
		"question": "Strange market",
		"outcomeType": "BINARY",
		"mechanism": "cpmm-1",
		"isResolved": true,
		"resolution": "CHOICE_3"
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	client := manifold.NewClient(srv.URL, "")
	m, err := client.FetchMarket(context.Background(), "mkt004")

	require.NoError(t, err)
	assert.True(t, m.Resolved)
	assert.Equal(t, domain.Outcome(""), m.Outcome, "resolución desconocida queda vacía")
}

func TestFetchCandidateMarkets_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := manifold.NewClient(srv.URL, "")
	_, err := client.FetchCandidateMarkets(context.Background(), 10)
	assert.Error(t, err)
}
