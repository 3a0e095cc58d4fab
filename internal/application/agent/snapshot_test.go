package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

func TestSnapshotOpen_MarksToMarket(t *testing.T) {
	store := newMemStore()
	seedPosition(store, "t-1", domain.VenueManifold, domain.DirectionYes, "", 100)

	mani := &fakeMarkets{byID: map[string]domain.Market{
		"mkt-t-1": {ID: "mkt-t-1", Probability: 0.45},
	}}
	e := reconcileEngine(t, Config{}, store, Deps{
		Markets: map[domain.Venue]ports.MarketProvider{domain.VenueManifold: mani},
	})

	count := e.snapshotOpen(context.Background())

	assert.Equal(t, 1, count)
	require.Len(t, store.snapshots, 1)
	snap := store.snapshots[0]
	assert.Equal(t, "t-1", snap.TraceID)
	assert.Equal(t, fixedNow, snap.CreatedAt)
	assert.InDelta(t, 0.45, snap.Probability, 1e-9)
	assert.InDelta(t, -5.0, snap.UnrealizedPnl, 1e-9) // 100·0.45 − 50
}

func TestSnapshotOpen_ApproxSharesWhenMissing(t *testing.T) {
	store := newMemStore()
	seedPosition(store, "t-1", domain.VenueManifold, domain.DirectionYes, "", 0)

	mani := &fakeMarkets{byID: map[string]domain.Market{
		"mkt-t-1": {ID: "mkt-t-1", Probability: 0.45},
	}}
	e := reconcileEngine(t, Config{}, store, Deps{
		Markets: map[domain.Venue]ports.MarketProvider{domain.VenueManifold: mani},
	})

	e.snapshotOpen(context.Background())

	require.Len(t, store.snapshots, 1)
	// Shares aproximadas 50/0.30 = 166.67; PnL = 166.67·0.45 − 50 = 25.
	assert.InDelta(t, 25.0, store.snapshots[0].UnrealizedPnl, 1e-6)
}

func TestSnapshotOpen_SkipsResolvedTraces(t *testing.T) {
	store := newMemStore()
	seedPosition(store, "t-1", domain.VenueManifold, domain.DirectionYes, "", 100)
	store.resolutions = append(store.resolutions, domain.Resolution{
		TraceID: "t-1",
		Outcome: domain.OutcomeYes,
	})

	mani := &fakeMarkets{byID: map[string]domain.Market{
		"mkt-t-1": {ID: "mkt-t-1", Probability: 0.45},
	}}
	e := reconcileEngine(t, Config{}, store, Deps{
		Markets: map[domain.Venue]ports.MarketProvider{domain.VenueManifold: mani},
	})

	count := e.snapshotOpen(context.Background())

	assert.Zero(t, count)
	assert.Empty(t, store.snapshots)
}

func TestSnapshotOpen_FetchFailureSkipsTrace(t *testing.T) {
	store := newMemStore()
	seedPosition(store, "t-1", domain.VenueManifold, domain.DirectionYes, "", 100)

	mani := &fakeMarkets{fetchErr: errors.New("manifold 502")}
	e := reconcileEngine(t, Config{}, store, Deps{
		Markets: map[domain.Venue]ports.MarketProvider{domain.VenueManifold: mani},
	})

	count := e.snapshotOpen(context.Background())

	assert.Zero(t, count)
	assert.Empty(t, store.snapshots)
}
