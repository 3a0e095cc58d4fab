package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

// FilterConfig contiene los umbrales de elegibilidad de un candidato.
type FilterConfig struct {
	// MinLiquidity descarta mercados con menos liquidez que esto.
	MinLiquidity float64
	// MinHoursToClose descarta mercados que cierran antes de X horas.
	// El límite es inclusivo: exactamente X horas pasa.
	MinHoursToClose float64
	// MaxHoursToClose descarta mercados que cierran después de X horas.
	// También inclusivo. 0 = sin límite superior.
	MaxHoursToClose float64
	// MinParticipants descarta mercados con menos apostadores que esto.
	MinParticipants int
}

// DefaultFilterConfig devuelve una configuración de elegibilidad conservadora.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinLiquidity:    100,
		MinHoursToClose: 1,
		MaxHoursToClose: 90 * 24,
		MinParticipants: 1,
	}
}

// Constantes del score de velocidad de resolución.
const (
	// fastWindowHours: dentro de esta ventana el término temporal es máximo.
	fastWindowHours = 48.0
	// patternBonus se suma cuando la pregunta matchea patrones de resolución rápida.
	patternBonus = 0.30
	// liquidityBonusCap limita la contribución del bonus de liquidez.
	liquidityBonusCap = 0.20
	// liquidityBonusScale: liquidez que daría un punto completo de bonus (antes del cap).
	liquidityBonusScale = 10_000.0
)

var fastPatterns = []string{
	"today", "tomorrow", "tonight", "this week", "by friday", "by monday",
	"earnings", " vs ", " vs.", "game", "match",
}

// Filter aplica los criterios de elegibilidad sobre snapshots de mercado.
type Filter struct {
	cfg FilterConfig
	now func() time.Time // inyectable en tests
}

// NewFilter crea un Filter con la configuración dada.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg, now: time.Now}
}

// Apply devuelve los mercados que pasan todos los criterios.
func (f *Filter) Apply(markets []Market) []Market {
	result := make([]Market, 0, len(markets))
	for _, m := range markets {
		if f.passes(m) {
			result = append(result, m)
		}
	}
	return result
}

// hoursToClose devuelve las horas hasta el cierre sin clampear: un
// mercado ya cerrado da negativo y cae fuera de la ventana temporal.
func (f *Filter) hoursToClose(m Market) float64 {
	return m.CloseTime.Sub(f.now()).Hours()
}

// passes devuelve true si el mercado supera todos los criterios.
func (f *Filter) passes(m Market) bool {
	if !m.Binary {
		return false
	}
	if m.Resolved {
		return false
	}
	if m.Liquidity < f.cfg.MinLiquidity {
		return false
	}
	hours := f.hoursToClose(m)
	if hours < f.cfg.MinHoursToClose {
		return false
	}
	if f.cfg.MaxHoursToClose > 0 && hours > f.cfg.MaxHoursToClose {
		return false
	}
	if m.Participants < f.cfg.MinParticipants {
		return false
	}
	return true
}

// SpeedScore estima qué tan rápido se resolverá un mercado.
// Combina tres términos:
//
//	tiempo:    1.0 dentro de la ventana rápida, decae linealmente a 0 en MaxHoursToClose
//	patrón:    bonus fijo si la pregunta matchea patrones de resolución rápida
//	liquidez:  bonus saturante liquidez/scale con techo en liquidityBonusCap
func (f *Filter) SpeedScore(m Market) float64 {
	hours := f.hoursToClose(m)
	maxHours := f.cfg.MaxHoursToClose
	if maxHours <= fastWindowHours {
		maxHours = fastWindowHours + 1
	}

	var timeScore float64
	switch {
	case hours <= fastWindowHours:
		timeScore = 1.0
	case hours >= maxHours:
		timeScore = 0
	default:
		timeScore = (maxHours - hours) / (maxHours - fastWindowHours)
	}

	var bonus float64
	q := strings.ToLower(m.Question)
	for _, p := range fastPatterns {
		if strings.Contains(q, p) {
			bonus = patternBonus
			break
		}
	}

	liqBonus := math.Min(m.Liquidity/liquidityBonusScale, liquidityBonusCap)

	return timeScore + bonus + liqBonus
}

// Rank devuelve los mercados ordenados por SpeedScore descendente.
// No modifica el slice de entrada.
func (f *Filter) Rank(markets []Market) []Market {
	ranked := make([]Market, len(markets))
	copy(ranked, markets)
	sort.Slice(ranked, func(i, j int) bool {
		return f.SpeedScore(ranked[i]) > f.SpeedScore(ranked[j])
	})
	return ranked
}
