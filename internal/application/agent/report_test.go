package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

func seedResolvedBet(store *memStore, traceID string, won bool, pnl float64, resolvedAt time.Time) {
	outcome := domain.OutcomeNo
	if won {
		outcome = domain.OutcomeYes
	}
	store.decisions[traceID] = domain.Decision{
		TraceID:    traceID,
		Venue:      domain.VenuePolymarket,
		Direction:  domain.DirectionYes,
		Estimate:   0.65,
		Confidence: domain.ConfidenceMedium,
		Stake:      50,
		Action:     domain.ActionBet,
	}
	store.resolutions = append(store.resolutions, domain.Resolution{
		TraceID:    traceID,
		ResolvedAt: resolvedAt,
		Venue:      domain.VenuePolymarket,
		Outcome:    outcome,
		Direction:  domain.DirectionYes,
		Won:        won,
		Pnl:        pnl,
		Brier:      0.1225,
	})
}

func TestBuildReport_JoinsResolutionsWithDecisions(t *testing.T) {
	store := newMemStore()
	seedResolvedBet(store, "t-1", true, 30, fixedNow.Add(-2*time.Hour))
	seedResolvedBet(store, "t-2", false, -50, fixedNow.Add(-1*time.Hour))

	e := reconcileEngine(t, Config{}, store, Deps{})

	report, err := e.BuildReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Wins)
	assert.InDelta(t, 0.5, report.WinRate, 1e-9)
	assert.InDelta(t, -20.0, report.TotalPnl, 1e-9)
	assert.InDelta(t, 100.0, report.TotalStaked, 1e-9)
}

func TestBuildReport_SkipsOrphanResolutions(t *testing.T) {
	store := newMemStore()
	seedResolvedBet(store, "t-1", true, 30, fixedNow)
	// Resolución sin decisión: se saltea, no rompe el reporte.
	store.resolutions = append(store.resolutions, domain.Resolution{
		TraceID: "orphan",
		Outcome: domain.OutcomeYes,
		Won:     true,
	})

	e := reconcileEngine(t, Config{}, store, Deps{})

	report, err := e.BuildReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
}

func TestRefreshFeedback_SetsCalibrationText(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 12; i++ {
		traceID := "t-" + string(rune('a'+i))
		seedResolvedBet(store, traceID, i%2 == 0, 10, fixedNow.Add(time.Duration(i)*time.Minute))
	}

	e := reconcileEngine(t, Config{}, store, Deps{})
	e.refreshFeedback(context.Background())

	assert.Contains(t, e.feedback, "Calibration over 12 resolved bets")
}

func TestRefreshFeedback_InsufficientHistory(t *testing.T) {
	store := newMemStore()
	seedResolvedBet(store, "t-1", true, 30, fixedNow)

	e := reconcileEngine(t, Config{}, store, Deps{})
	e.refreshFeedback(context.Background())

	assert.Contains(t, e.feedback, "only 1 resolved bets")
}
