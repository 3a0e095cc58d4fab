package domain

import "math"

// Límites de precio para el cálculo de Kelly. Fuera de este rango las
// odds degeneran y la fracción explota.
const (
	minKellyPrice = 0.01
	maxKellyPrice = 0.99
)

// maxSlippageRounds acota la iteración de punto fijo del sizing pooled.
const maxSlippageRounds = 8

// ClampProbability restringe una probabilidad al rango [0.01, 0.99].
func ClampProbability(p float64) float64 {
	return math.Max(minKellyPrice, math.Min(p, maxKellyPrice))
}

// Edge devuelve el tamaño de la ventaja: |estimate − marketProb|.
func Edge(estimate, marketProb float64) float64 {
	return math.Abs(estimate - marketProb)
}

// DirectionFor elige el lado: YES si el estimador ve el mercado barato,
// NO si lo ve caro.
func DirectionFor(estimate, marketProb float64) Direction {
	if estimate > marketProb {
		return DirectionYes
	}
	return DirectionNo
}

// KellyFraction calcula la fracción de Kelly de un contrato binario a
// precio m (clampeado a [0.01, 0.99]).
//
// Fórmula: f = (p·b − q) / b, con q = 1 − p
//   - YES: b = (1−m)/m, p = estimate
//   - NO:  b = m/(1−m), p = 1 − estimate
//
// Nunca devuelve negativo: no se abren cortos.
func KellyFraction(estimate, marketProb float64, d Direction) float64 {
	m := ClampProbability(marketProb)
	var b, p float64
	switch d {
	case DirectionYes:
		b = (1 - m) / m
		p = estimate
	case DirectionNo:
		b = m / (1 - m)
		p = 1 - estimate
	default:
		return 0
	}
	q := 1 - p
	kelly := (p*b - q) / b
	if kelly < 0 {
		return 0
	}
	return kelly
}

// SizingConfig contiene los parámetros de gestión de riesgo del sizing.
type SizingConfig struct {
	// Bankroll disponible, en la unidad del venue.
	Bankroll float64
	// KellyMultiplier escala la fracción de Kelly completa (Kelly fraccional).
	KellyMultiplier float64
	// MaxBankrollPct limita el stake a esta fracción del bankroll.
	MaxBankrollPct float64
	// MaxStake es el techo absoluto por apuesta. 0 = sin techo.
	MaxStake float64
	// ImpactCap limita el stake a ImpactCap·2·liquidez en venues pooled.
	ImpactCap float64
	// Unit es la unidad mínima negociable; el stake se redondea hacia
	// abajo a múltiplos de esta. 0 equivale a 1.
	Unit float64
}

// TradeUnit devuelve la unidad mínima negociable efectiva: Unit, o 1 si
// no se configuró.
func (c SizingConfig) TradeUnit() float64 {
	if c.Unit <= 0 {
		return 1
	}
	return c.Unit
}

// capStake aplica la cadena de límites sobre la fracción de Kelly.
// El orden importa: multiplicador, % de bankroll, techo absoluto,
// impacto (solo pooled), redondeo a unidad, floor en 0.
func (c SizingConfig) capStake(kelly, liquidity float64, pooled bool) float64 {
	stake := kelly * c.Bankroll * c.KellyMultiplier
	if c.MaxBankrollPct > 0 {
		if limit := c.Bankroll * c.MaxBankrollPct; stake > limit {
			stake = limit
		}
	}
	if c.MaxStake > 0 && stake > c.MaxStake {
		stake = c.MaxStake
	}
	if pooled && c.ImpactCap > 0 {
		if limit := c.ImpactCap * 2 * liquidity; stake > limit {
			stake = limit
		}
	}
	stake = math.Floor(stake/c.TradeUnit()) * c.TradeUnit()
	if stake < 0 {
		return 0
	}
	return stake
}

// Sizing es el resultado del cálculo de tamaño de una apuesta.
type Sizing struct {
	Kelly    float64 // fracción de Kelly usada (re-derivada tras slippage en pooled)
	FillProb float64 // probabilidad efectiva de fill (precio desplazado en pooled)
	Stake    float64 // stake final tras caps y redondeo
	Rounds   int     // iteraciones de slippage ejecutadas (0 en book)
}

// SizeOrderBook calcula el stake con una única evaluación de Kelly al
// precio cotizado. En un libro de órdenes el fill es al precio visible,
// sin modelo de impacto propio.
func SizeOrderBook(estimate, marketProb float64, d Direction, cfg SizingConfig) Sizing {
	m := ClampProbability(marketProb)
	kelly := KellyFraction(estimate, m, d)
	if kelly <= 0 {
		return Sizing{FillProb: m}
	}
	return Sizing{
		Kelly:    kelly,
		FillProb: m,
		Stake:    cfg.capStake(kelly, 0, false),
	}
}

// SizePooled calcula el stake contra un CPMM iterando el modelo de
// slippage hasta un punto fijo.
//
// Modelo: slippage = stake / (4·liquidez). El precio efectivo se desplaza
// contra el trader (+slippage para YES, −slippage para NO, clampeado) y
// se re-deriva Kelly al precio desplazado. Un stake mayor empeora el
// precio y el precio peor encoge el stake implicado, así que la secuencia
// se mantiene no creciente; aún así la iteración se acota a 8 rondas como
// red de seguridad y se corta cuando dos stakes sucesivos difieren en
// menos de una unidad. Si en cualquier ronda Kelly cae a 0, el stake
// final es 0.
func SizePooled(estimate, marketProb, liquidity float64, d Direction, cfg SizingConfig) Sizing {
	m := ClampProbability(marketProb)
	kelly := KellyFraction(estimate, m, d)
	if kelly <= 0 {
		return Sizing{FillProb: m}
	}
	stake := cfg.capStake(kelly, liquidity, true)
	fill := m

	rounds := 0
	for rounds < maxSlippageRounds {
		if stake <= 0 || liquidity <= 0 {
			break
		}
		rounds++

		slip := stake / (4 * liquidity)
		shifted := m + slip
		if d == DirectionNo {
			shifted = m - slip
		}
		shifted = ClampProbability(shifted)
		fill = shifted

		kelly = KellyFraction(estimate, shifted, d)
		if kelly <= 0 {
			return Sizing{FillProb: fill, Rounds: rounds}
		}
		next := cfg.capStake(kelly, liquidity, true)
		if next > stake {
			// Re-evaluar con menos slippage nunca agranda la apuesta:
			// mantiene la secuencia no creciente y garantiza terminación.
			next = stake
		}
		converged := stake-next < cfg.TradeUnit()
		stake = next
		if converged {
			break
		}
	}
	return Sizing{Kelly: kelly, FillProb: fill, Stake: stake, Rounds: rounds}
}
