package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Umbrales del reporte de calibración.
const (
	// minFeedbackSamples: mínimo de resoluciones para renderizar feedback.
	minFeedbackSamples = 10
	// trendWindow: tamaño de la ventana móvil de drift.
	trendWindow = 20
	// actionableGap: desviación mínima de un bucket para ser accionable.
	actionableGap = 0.05
	// actionableMinN: muestras mínimas de un bucket para ser accionable.
	actionableMinN = 3
	// abstainWinRate: por debajo de esto una etiqueta sugiere abstenerse.
	abstainWinRate = 0.50
	// trustWinRate: por encima de esto una etiqueta es confiable.
	trustWinRate = 0.65
)

// ResolvedBet junta una resolución con su decisión de origen. Es la
// unidad de entrada del agregador: la resolución aporta el resultado y
// el P&L, la decisión aporta estimación, confianza y stake.
type ResolvedBet struct {
	Decision   Decision
	Resolution Resolution
}

// SideProbability devuelve la probabilidad predicha del lado apostado:
// estimate para YES, 1−estimate para NO.
func (rb ResolvedBet) SideProbability() float64 {
	if rb.Decision.Direction == DirectionNo {
		return 1 - rb.Decision.Estimate
	}
	return rb.Decision.Estimate
}

// CalibrationBucket agrega las apuestas cuya probabilidad predicha cae
// en el rango [Low, High).
type CalibrationBucket struct {
	Low            float64
	High           float64
	N              int
	MeanPredicted  float64
	WinRate        float64
	Overconfidence float64 // MeanPredicted − WinRate; positivo = sobreconfiado
}

// Actionable devuelve true si el bucket merece mención en el feedback:
// desviación de al menos 5 puntos con al menos 3 muestras.
func (b CalibrationBucket) Actionable() bool {
	return math.Abs(b.Overconfidence) >= actionableGap && b.N >= actionableMinN
}

// LabelStats es el triple win-rate/Brier/ROI de una etiqueta de confianza.
type LabelStats struct {
	Label     ConfidenceLabel
	N         int
	Wins      int
	WinRate   float64
	MeanBrier float64
	Pnl       float64
	Staked    float64
	ROI       float64
}

// TrendStats es el mismo triple sobre la ventana móvil más reciente.
type TrendStats struct {
	Window    int
	N         int
	Wins      int
	WinRate   float64
	MeanBrier float64
	Pnl       float64
	Staked    float64
	ROI       float64
}

// CalibrationReport es el agregado de calibración derivado del log de
// resoluciones. Se recomputa bajo demanda, nunca se persiste.
type CalibrationReport struct {
	Total       int // resoluciones contadas; excluye CANCEL
	Cancelled   int
	Wins        int
	WinRate     float64
	MeanBrier   float64
	TotalPnl    float64
	TotalStaked float64
	ROI         float64
	Buckets     []CalibrationBucket // solo buckets poblados, orden ascendente
	ByLabel     []LabelStats        // orden fijo: low, medium, high; solo poblados
	Recent      TrendStats
}

// BuildCalibrationReport computa el reporte completo a partir de las
// apuestas resueltas. Las resoluciones CANCEL solo se cuentan aparte:
// no aportan a win rate, Brier, P&L ni buckets.
func BuildCalibrationReport(bets []ResolvedBet) CalibrationReport {
	scored := make([]ResolvedBet, 0, len(bets))
	var cancelled int
	for _, rb := range bets {
		if rb.Resolution.Outcome == OutcomeCancel {
			cancelled++
			continue
		}
		scored = append(scored, rb)
	}
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Resolution.ResolvedAt.Before(scored[j].Resolution.ResolvedAt)
	})

	r := CalibrationReport{
		Total:     len(scored),
		Cancelled: cancelled,
		Recent:    TrendStats{Window: trendWindow},
	}
	if len(scored) == 0 {
		return r
	}

	type bucketAccum struct {
		n         int
		wins      int
		predicted float64
	}
	var buckets [10]bucketAccum
	labelAccum := map[ConfidenceLabel]*LabelStats{}

	var brierSum float64
	for _, rb := range scored {
		res := rb.Resolution
		if res.Won {
			r.Wins++
		}
		r.TotalPnl += res.Pnl
		r.TotalStaked += rb.Decision.Stake
		brierSum += res.Brier

		p := rb.SideProbability()
		idx := int(p * 10)
		if idx > 9 {
			idx = 9
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx].n++
		buckets[idx].predicted += p
		if res.Won {
			buckets[idx].wins++
		}

		ls, ok := labelAccum[rb.Decision.Confidence]
		if !ok {
			ls = &LabelStats{Label: rb.Decision.Confidence}
			labelAccum[rb.Decision.Confidence] = ls
		}
		ls.N++
		if res.Won {
			ls.Wins++
		}
		ls.MeanBrier += res.Brier
		ls.Pnl += res.Pnl
		ls.Staked += rb.Decision.Stake
	}

	r.WinRate = float64(r.Wins) / float64(r.Total)
	r.MeanBrier = brierSum / float64(r.Total)
	if r.TotalStaked > 0 {
		r.ROI = r.TotalPnl / r.TotalStaked
	}

	for i, acc := range buckets {
		if acc.n == 0 {
			continue
		}
		mean := acc.predicted / float64(acc.n)
		winRate := float64(acc.wins) / float64(acc.n)
		r.Buckets = append(r.Buckets, CalibrationBucket{
			Low:            float64(i) / 10,
			High:           float64(i+1) / 10,
			N:              acc.n,
			MeanPredicted:  mean,
			WinRate:        winRate,
			Overconfidence: mean - winRate,
		})
	}

	for _, label := range []ConfidenceLabel{ConfidenceLow, ConfidenceMedium, ConfidenceHigh} {
		ls, ok := labelAccum[label]
		if !ok {
			continue
		}
		ls.WinRate = float64(ls.Wins) / float64(ls.N)
		ls.MeanBrier /= float64(ls.N)
		if ls.Staked > 0 {
			ls.ROI = ls.Pnl / ls.Staked
		}
		r.ByLabel = append(r.ByLabel, *ls)
	}

	recent := scored
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}
	t := &r.Recent
	t.N = len(recent)
	for _, rb := range recent {
		if rb.Resolution.Won {
			t.Wins++
		}
		t.MeanBrier += rb.Resolution.Brier
		t.Pnl += rb.Resolution.Pnl
		t.Staked += rb.Decision.Stake
	}
	t.WinRate = float64(t.Wins) / float64(t.N)
	t.MeanBrier /= float64(t.N)
	if t.Staked > 0 {
		t.ROI = t.Pnl / t.Staked
	}

	return r
}

// FeedbackText renderiza el reporte como texto plano para inyectar en el
// contexto del estimador. Por debajo del mínimo de muestras devuelve una
// línea fija de datos insuficientes.
func FeedbackText(r CalibrationReport) string {
	if r.Total < minFeedbackSamples {
		return fmt.Sprintf(
			"Calibration: only %d resolved bets so far, not enough history to adjust estimates (need %d).",
			r.Total, minFeedbackSamples)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb,
		"Calibration over %d resolved bets: win rate %.0f%%, Brier %.3f, ROI %+.1f%%.\n",
		r.Total, r.WinRate*100, r.MeanBrier, r.ROI*100)

	for _, b := range r.Buckets {
		if !b.Actionable() {
			continue
		}
		if b.Overconfidence > 0 {
			fmt.Fprintf(&sb,
				"- In the %.0f-%.0f%% range you won %.0f%% of %d bets: overconfident by %.0f points, shade these down.\n",
				b.Low*100, b.High*100, b.WinRate*100, b.N, b.Overconfidence*100)
		} else {
			fmt.Fprintf(&sb,
				"- In the %.0f-%.0f%% range you won %.0f%% of %d bets: underconfident by %.0f points, lean into these.\n",
				b.Low*100, b.High*100, b.WinRate*100, b.N, -b.Overconfidence*100)
		}
	}

	for _, ls := range r.ByLabel {
		switch {
		case ls.WinRate < abstainWinRate:
			fmt.Fprintf(&sb,
				"- %s-confidence bets win only %.0f%% (%d bets): consider abstaining.\n",
				ls.Label, ls.WinRate*100, ls.N)
		case ls.WinRate > trustWinRate:
			fmt.Fprintf(&sb,
				"- %s-confidence bets win %.0f%% (%d bets): trust these.\n",
				ls.Label, ls.WinRate*100, ls.N)
		}
	}

	if r.Recent.N > 0 {
		fmt.Fprintf(&sb,
			"- Last %d: win rate %.0f%%, Brier %.3f, ROI %+.1f%%.",
			r.Recent.N, r.Recent.WinRate*100, r.Recent.MeanBrier, r.Recent.ROI*100)
	}

	return strings.TrimRight(sb.String(), "\n")
}
