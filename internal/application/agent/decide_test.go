package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

func decideEngine(t *testing.T, cfg Config, estimator *fakeEstimator) *Engine {
	t.Helper()
	if cfg.Filter == (domain.FilterConfig{}) {
		cfg.Filter = domain.DefaultFilterConfig()
	}
	return newTestEngine(t, cfg, Deps{Estimator: estimator, Store: newMemStore()})
}

func TestDecideOne_EstimatorErrorIsSkipError(t *testing.T) {
	estimator := &fakeEstimator{err: errors.New("model overloaded")}
	e := decideEngine(t, Config{EdgeThreshold: 0.10, Sizing: testSizing()}, estimator)

	d := e.decideOne(context.Background(), polyMarket("pm-1"))

	assert.Equal(t, domain.ActionSkipError, d.Action)
	assert.Equal(t, domain.DirectionNone, d.Direction)
	assert.Zero(t, d.Edge)
	assert.Zero(t, d.Stake)
	// El contexto del mercado queda igual para la auditoría.
	assert.Equal(t, "pm-1", d.MarketID)
	assert.InDelta(t, 0.30, d.MarketProb, 1e-9)
	assert.NotEmpty(t, d.TraceID)
}

func TestDecideOne_LowEdgeBeatsLowConfidence(t *testing.T) {
	// Edge 0.02 y confianza low sin fuente de datos: la puerta de edge
	// decide primero.
	estimator := &fakeEstimator{est: domain.Estimate{Probability: 0.32, Confidence: domain.ConfidenceLow}}
	e := decideEngine(t, Config{EdgeThreshold: 0.10, Sizing: testSizing()}, estimator)

	d := e.decideOne(context.Background(), polyMarket("pm-1"))
	assert.Equal(t, domain.ActionSkipLowEdge, d.Action)
}

func TestDecideOne_LowConfidenceWithoutSource(t *testing.T) {
	estimator := &fakeEstimator{est: domain.Estimate{Probability: 0.60, Confidence: domain.ConfidenceLow}}
	e := decideEngine(t, Config{EdgeThreshold: 0.10, Sizing: testSizing()}, estimator)

	m := polyMarket("pm-1")
	m.Question = "Will the Lakers beat the Celtics tonight?"

	d := e.decideOne(context.Background(), m)
	assert.Equal(t, domain.ActionSkipLowConfidence, d.Action)
	assert.Equal(t, domain.ConfidenceLow, d.Confidence)
}

func TestDecideOne_LowConfidenceWithSportsSource(t *testing.T) {
	estimator := &fakeEstimator{est: domain.Estimate{Probability: 0.60, Confidence: domain.ConfidenceLow}}
	e := decideEngine(t, Config{
		EdgeThreshold: 0.10,
		Sizing:        testSizing(),
		HasSportsData: true,
	}, estimator)

	m := polyMarket("pm-1")
	m.Question = "Will the Lakers beat the Celtics tonight?"

	d := e.decideOne(context.Background(), m)
	assert.Equal(t, domain.ActionBet, d.Action)
}

func TestDecideOne_LowConfidenceOtherCategoryNeverCorroborated(t *testing.T) {
	// "other" no tiene fuente estructurada posible, con o sin API keys.
	estimator := &fakeEstimator{est: domain.Estimate{Probability: 0.60, Confidence: domain.ConfidenceLow}}
	e := decideEngine(t, Config{
		EdgeThreshold:  0.10,
		Sizing:         testSizing(),
		HasSportsData:  true,
		HasFinanceData: true,
	}, estimator)

	m := polyMarket("pm-1")
	m.Question = "Will the committee publish its findings?"

	d := e.decideOne(context.Background(), m)
	assert.Equal(t, domain.ActionSkipLowConfidence, d.Action)
}

func TestDecideOne_StakeBelowUnitIsLowEdge(t *testing.T) {
	estimator := &fakeEstimator{est: domain.Estimate{Probability: 0.42, Confidence: domain.ConfidenceHigh}}
	// Bankroll mínimo: kelly positivo pero el stake floorea a 0.
	e := decideEngine(t, Config{
		EdgeThreshold: 0.10,
		Sizing: domain.SizingConfig{
			Bankroll:        10,
			KellyMultiplier: 0.05,
			Unit:            1,
		},
	}, estimator)

	d := e.decideOne(context.Background(), polyMarket("pm-1"))

	assert.Equal(t, domain.ActionSkipLowEdge, d.Action)
	assert.Greater(t, d.Kelly, 0.0)
	assert.Zero(t, d.Stake)
	// La dirección elegida se conserva en el registro.
	assert.Equal(t, domain.DirectionYes, d.Direction)
}

func TestDecideOne_BetNo(t *testing.T) {
	// Mercado caro: estimación 0.55 contra precio 0.80.
	estimator := &fakeEstimator{est: domain.Estimate{Probability: 0.55, Confidence: domain.ConfidenceMedium}}
	e := decideEngine(t, Config{EdgeThreshold: 0.10, Sizing: testSizing()}, estimator)

	m := polyMarket("pm-1")
	m.Probability = 0.80

	d := e.decideOne(context.Background(), m)

	assert.Equal(t, domain.ActionBet, d.Action)
	assert.Equal(t, domain.DirectionNo, d.Direction)
	assert.Equal(t, "no-pm-1", d.TokenID)
	assert.InDelta(t, 0.25, d.Edge, 1e-9)
	assert.Greater(t, d.Stake, 0.0)
}

func TestDecideOne_PooledUsesSlippageSizing(t *testing.T) {
	estimator := &fakeEstimator{est: domain.Estimate{Probability: 0.60, Confidence: domain.ConfidenceHigh}}
	e := decideEngine(t, Config{
		EdgeThreshold: 0.10,
		Sizing: domain.SizingConfig{
			Bankroll:        1000,
			KellyMultiplier: 0.25,
			MaxBankrollPct:  0.20,
			ImpactCap:       0.05,
			Unit:            1,
		},
	}, estimator)

	m := manifoldMarket("mf-1")
	m.Probability = 0.30
	m.Liquidity = 200

	d := e.decideOne(context.Background(), m)

	// Con liquidez 200 el impact cap limita a 0.05·2·200 = 20, y la
	// iteración de slippage desplaza el precio efectivo por encima del
	// cotizado.
	assert.Equal(t, domain.ActionBet, d.Action)
	assert.LessOrEqual(t, d.Stake, 20.0)
	assert.Greater(t, d.FillProb, 0.30)
}

func TestDecideOne_RequestCarriesMarketContext(t *testing.T) {
	estimator := &fakeEstimator{est: domain.Estimate{Probability: 0.60, Confidence: domain.ConfidenceHigh}}
	e := decideEngine(t, Config{EdgeThreshold: 0.10, Sizing: testSizing()}, estimator)

	m := polyMarket("pm-1")
	m.Question = "Will BTC close above $100k today?"
	m.CloseTime = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	e.decideOne(context.Background(), m)

	require.Len(t, estimator.requests, 1)
	req := estimator.requests[0]
	assert.Equal(t, m.Question, req.Question)
	assert.Equal(t, domain.CategoryFinance, req.Category)
	assert.InDelta(t, 0.30, req.MarketProb, 1e-9)
	assert.Equal(t, m.CloseTime, req.CloseTime)
}
