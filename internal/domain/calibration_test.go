package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// calBet arma una apuesta resuelta con dirección YES: la probabilidad
// del lado apostado es directamente el estimate.
func calBet(sideProb float64, won bool, stake, pnl float64, label ConfidenceLabel, at time.Time) ResolvedBet {
	out := OutcomeNo
	if won {
		out = OutcomeYes
	}
	return ResolvedBet{
		Decision: Decision{
			Estimate:   sideProb,
			Direction:  DirectionYes,
			Confidence: label,
			Stake:      stake,
		},
		Resolution: Resolution{
			Outcome:    out,
			Direction:  DirectionYes,
			Won:        won,
			Pnl:        pnl,
			Brier:      BrierContribution(sideProb, out, 0),
			ResolvedAt: at,
		},
	}
}

func TestBuildCalibrationReport_Aggregates(t *testing.T) {
	now := time.Now()
	bets := []ResolvedBet{
		calBet(0.80, true, 100, 25, ConfidenceHigh, now),
		calBet(0.60, false, 50, -50, ConfidenceMedium, now.Add(time.Minute)),
		calBet(0.70, true, 50, 20, ConfidenceHigh, now.Add(2*time.Minute)),
	}

	r := BuildCalibrationReport(bets)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 2, r.Wins)
	assert.InDelta(t, 0.6667, r.WinRate, 0.001)
	// Brier: (0.8−1)² + (0.6−0)² + (0.7−1)² = 0.04+0.36+0.09 = 0.49 → /3 = 0.1633
	assert.InDelta(t, 0.1633, r.MeanBrier, 0.001)
	assert.InDelta(t, -5.0, r.TotalPnl, 1e-9)
	assert.InDelta(t, 200.0, r.TotalStaked, 1e-9)
	// ROI = −5/200 = −2.5%
	assert.InDelta(t, -0.025, r.ROI, 1e-9)
}

func TestBuildCalibrationReport_PerfectCalibration(t *testing.T) {
	now := time.Now()
	var bets []ResolvedBet
	add := func(p float64, wins, total int) {
		for i := 0; i < total; i++ {
			bets = append(bets, calBet(p, i < wins, 10, 5, ConfidenceMedium,
				now.Add(time.Duration(len(bets))*time.Minute)))
		}
	}
	add(0.75, 3, 4) // bucket 70-80: predicho 0.75, observado 3/4
	add(0.50, 2, 4) // bucket 50-60: predicho 0.50, observado 2/4
	add(0.25, 1, 4) // bucket 20-30: predicho 0.25, observado 1/4

	r := BuildCalibrationReport(bets)
	assert.Len(t, r.Buckets, 3)
	for _, b := range r.Buckets {
		assert.InDelta(t, 0.0, b.Overconfidence, 1e-9,
			"bucket %.0f-%.0f", b.Low*100, b.High*100)
	}
}

func TestBuildCalibrationReport_CancelExcluded(t *testing.T) {
	now := time.Now()
	cancel := ResolvedBet{
		Decision:   Decision{Estimate: 0.60, Direction: DirectionYes, Confidence: ConfidenceMedium, Stake: 50},
		Resolution: Resolution{Outcome: OutcomeCancel, ResolvedAt: now},
	}
	bets := []ResolvedBet{
		calBet(0.80, true, 100, 25, ConfidenceHigh, now),
		cancel,
	}

	r := BuildCalibrationReport(bets)
	assert.Equal(t, 1, r.Total)
	assert.Equal(t, 1, r.Cancelled)
	assert.Equal(t, 1.0, r.WinRate)               // el CANCEL no diluye el win rate
	assert.InDelta(t, 100.0, r.TotalStaked, 1e-9) // ni suma stake
	assert.Len(t, r.ByLabel, 1)                   // ni aporta a su etiqueta
	assert.Equal(t, ConfidenceHigh, r.ByLabel[0].Label)
}

func TestBuildCalibrationReport_TrailingWindow(t *testing.T) {
	// 25 apuestas: las 5 más viejas ganadas, las 20 más recientes perdidas.
	// Se insertan de más nueva a más vieja para probar que el orden de
	// entrada no importa.
	now := time.Now()
	var bets []ResolvedBet
	for i := 24; i >= 0; i-- {
		won := i < 5
		pnl := -10.0
		if won {
			pnl = 4.0
		}
		bets = append(bets, calBet(0.70, won, 10, pnl, ConfidenceMedium,
			now.Add(time.Duration(i)*time.Hour)))
	}

	r := BuildCalibrationReport(bets)
	assert.Equal(t, 25, r.Total)
	assert.InDelta(t, 0.20, r.WinRate, 1e-9)
	assert.Equal(t, 20, r.Recent.N)
	// la ventana móvil solo ve las últimas 20, todas perdidas
	assert.Equal(t, 0.0, r.Recent.WinRate)
	assert.InDelta(t, -200.0, r.Recent.Pnl, 1e-9)
}

func TestBuildCalibrationReport_ByLabelOrder(t *testing.T) {
	now := time.Now()
	bets := []ResolvedBet{
		calBet(0.80, true, 10, 2, ConfidenceHigh, now),
		calBet(0.60, false, 10, -10, ConfidenceLow, now.Add(time.Minute)),
		calBet(0.80, true, 10, 2, ConfidenceHigh, now.Add(2*time.Minute)),
		calBet(0.60, false, 10, -10, ConfidenceLow, now.Add(3*time.Minute)),
		calBet(0.80, true, 10, 2, ConfidenceHigh, now.Add(4*time.Minute)),
	}

	r := BuildCalibrationReport(bets)
	assert.Len(t, r.ByLabel, 2)
	// orden fijo: low antes que high
	assert.Equal(t, ConfidenceLow, r.ByLabel[0].Label)
	assert.Equal(t, 0.0, r.ByLabel[0].WinRate)
	assert.Equal(t, ConfidenceHigh, r.ByLabel[1].Label)
	assert.Equal(t, 1.0, r.ByLabel[1].WinRate)
}

// --- FeedbackText ---

func TestFeedbackText_InsufficientSamples(t *testing.T) {
	now := time.Now()
	var bets []ResolvedBet
	for i := 0; i < 5; i++ {
		bets = append(bets, calBet(0.70, true, 10, 4, ConfidenceMedium,
			now.Add(time.Duration(i)*time.Minute)))
	}

	text := FeedbackText(BuildCalibrationReport(bets))
	assert.Contains(t, text, "only 5 resolved bets")
	assert.Contains(t, text, "not enough history")
}

func TestFeedbackText_ActionableBucket(t *testing.T) {
	now := time.Now()
	var bets []ResolvedBet
	// 10 apuestas a 0.85 con 6 ganadas: sobreconfianza 0.25 con n=10 → accionable
	for i := 0; i < 10; i++ {
		bets = append(bets, calBet(0.85, i < 6, 10, 1, ConfidenceMedium,
			now.Add(time.Duration(i)*time.Minute)))
	}
	// 2 a 0.55: desviación 5 puntos pero n=2 < 3 → silencio
	bets = append(bets, calBet(0.55, true, 10, 1, ConfidenceMedium, now.Add(time.Hour)))
	bets = append(bets, calBet(0.55, false, 10, -10, ConfidenceMedium, now.Add(2*time.Hour)))

	text := FeedbackText(BuildCalibrationReport(bets))
	assert.Contains(t, text, "80-90% range")
	assert.Contains(t, text, "overconfident by 25 points")
	assert.NotContains(t, text, "50-60% range")
}

func TestFeedbackText_LabelFlags(t *testing.T) {
	now := time.Now()
	var bets []ResolvedBet
	for i := 0; i < 6; i++ {
		// low gana 1/6 → "consider abstaining"
		bets = append(bets, calBet(0.60, i < 1, 10, -5, ConfidenceLow,
			now.Add(time.Duration(i)*time.Minute)))
	}
	for i := 0; i < 6; i++ {
		// high gana 5/6 → "trust these"
		bets = append(bets, calBet(0.80, i < 5, 10, 3, ConfidenceHigh,
			now.Add(time.Hour+time.Duration(i)*time.Minute)))
	}

	text := FeedbackText(BuildCalibrationReport(bets))
	assert.Contains(t, text, "low-confidence bets win only 17%")
	assert.Contains(t, text, "consider abstaining")
	assert.Contains(t, text, "high-confidence bets win 83%")
	assert.Contains(t, text, "trust these")
	assert.Contains(t, text, "Last 12")
}
