package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// testFilter fija el reloj del filtro para que los límites temporales
// sean deterministas.
func testFilter(cfg FilterConfig, now time.Time) *Filter {
	f := NewFilter(cfg)
	f.now = func() time.Time { return now }
	return f
}

func eligibleMarket(now time.Time) Market {
	return Market{
		ID:           "mkt-1",
		Venue:        VenueManifold,
		Mechanism:    MechanismPooled,
		Question:     "Will it rain in London this week?",
		Probability:  0.55,
		Liquidity:    500,
		CloseTime:    now.Add(24 * time.Hour),
		Participants: 12,
		Binary:       true,
	}
}

func TestFilterApply_PassesEligible(t *testing.T) {
	now := time.Now()
	f := testFilter(DefaultFilterConfig(), now)
	out := f.Apply([]Market{eligibleMarket(now)})
	assert.Len(t, out, 1)
}

func TestFilterApply_ExcludesResolved(t *testing.T) {
	now := time.Now()
	m := eligibleMarket(now)
	m.Resolved = true
	out := testFilter(DefaultFilterConfig(), now).Apply([]Market{m})
	assert.Empty(t, out)
}

func TestFilterApply_ExcludesNonBinary(t *testing.T) {
	now := time.Now()
	m := eligibleMarket(now)
	m.Binary = false
	out := testFilter(DefaultFilterConfig(), now).Apply([]Market{m})
	assert.Empty(t, out)
}

func TestFilterApply_ExcludesLowLiquidity(t *testing.T) {
	now := time.Now()
	m := eligibleMarket(now)
	m.Liquidity = 99 // umbral default: 100
	out := testFilter(DefaultFilterConfig(), now).Apply([]Market{m})
	assert.Empty(t, out)
}

func TestFilterApply_ParticipantBoundary(t *testing.T) {
	now := time.Now()
	f := testFilter(DefaultFilterConfig(), now)

	zero := eligibleMarket(now)
	zero.Participants = 0
	assert.Empty(t, f.Apply([]Market{zero}))

	one := eligibleMarket(now)
	one.Participants = 1
	assert.Len(t, f.Apply([]Market{one}), 1)
}

func TestFilterApply_TimeBoundariesInclusive(t *testing.T) {
	now := time.Now()
	cfg := DefaultFilterConfig() // 1h a 90 días
	f := testFilter(cfg, now)

	atMin := eligibleMarket(now)
	atMin.CloseTime = now.Add(1 * time.Hour)
	assert.Len(t, f.Apply([]Market{atMin}), 1, "exactamente en el mínimo pasa")

	belowMin := eligibleMarket(now)
	belowMin.CloseTime = now.Add(1*time.Hour - time.Minute)
	assert.Empty(t, f.Apply([]Market{belowMin}), "un minuto por debajo no pasa")

	atMax := eligibleMarket(now)
	atMax.CloseTime = now.Add(90 * 24 * time.Hour)
	assert.Len(t, f.Apply([]Market{atMax}), 1, "exactamente en el máximo pasa")

	aboveMax := eligibleMarket(now)
	aboveMax.CloseTime = now.Add(90*24*time.Hour + time.Minute)
	assert.Empty(t, f.Apply([]Market{aboveMax}))
}

// --- SpeedScore / Rank ---

func TestFilterSpeedScore_FastWindowMaximal(t *testing.T) {
	now := time.Now()
	f := testFilter(DefaultFilterConfig(), now)

	fast := eligibleMarket(now) // cierra en 24h, dentro de la ventana rápida
	fast.Question = "plain question"
	fast.Liquidity = 0

	slow := fast
	slow.CloseTime = now.Add(80 * 24 * time.Hour)

	assert.InDelta(t, 1.0, f.SpeedScore(fast), 0.0001)
	assert.Less(t, f.SpeedScore(slow), 0.2)
}

func TestFilterSpeedScore_PatternBonus(t *testing.T) {
	now := time.Now()
	f := testFilter(DefaultFilterConfig(), now)

	plain := eligibleMarket(now)
	plain.Question = "plain question"
	sports := eligibleMarket(now)
	sports.Question = "Liverpool vs Arsenal: away win?"

	assert.Greater(t, f.SpeedScore(sports), f.SpeedScore(plain))
}

func TestFilterSpeedScore_LiquidityBonusCapped(t *testing.T) {
	now := time.Now()
	f := testFilter(DefaultFilterConfig(), now)

	whale := eligibleMarket(now)
	whale.Question = "plain question"
	whale.Liquidity = 5_000_000
	// tiempo 1.0 + bonus liquidez capado en 0.20, sin bonus de patrón
	assert.InDelta(t, 1.20, f.SpeedScore(whale), 0.0001)
}

func TestFilterRank_FastestFirst(t *testing.T) {
	now := time.Now()
	f := testFilter(DefaultFilterConfig(), now)

	slow := eligibleMarket(now)
	slow.ID = "slow"
	slow.CloseTime = now.Add(85 * 24 * time.Hour)
	fast := eligibleMarket(now)
	fast.ID = "fast"

	ranked := f.Rank([]Market{slow, fast})
	assert.Equal(t, "fast", ranked[0].ID)
	assert.Equal(t, "slow", ranked[1].ID)
}
