package domain

import "time"

// Outcome es el resultado de resolución de un mercado binario.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
	// OutcomeMkt: resolución a un valor parcial p en (0, 1), típico de
	// mercados que cierran "a probabilidad de mercado".
	OutcomeMkt Outcome = "MKT"
	// OutcomeCancel: mercado anulado, stake devuelto. No cuenta en las
	// estadísticas de precisión.
	OutcomeCancel Outcome = "CANCEL"
)

// Resolution es el registro inmutable de la resolución de una apuesta.
// Exactamente uno por trace ID: el reconciliador trata el stream como un
// set y saltea ejecuciones ya resueltas.
type Resolution struct {
	TraceID    string
	ResolvedAt time.Time
	Venue      Venue
	Outcome    Outcome
	MktValue   float64 // valor parcial, solo cuando Outcome es MKT
	Direction  Direction
	Won        bool
	Pnl        float64 // P&L realizado en la unidad del venue
	Brier      float64 // contribución Brier: (estimate − actual)²
}

// ConditionPayouts es el estado de resolución on-chain de una condición
// del contrato ConditionalTokens. Slot 0 = YES, slot 1 = NO.
type ConditionPayouts struct {
	Denominator uint64
	Numerators  [2]uint64
}

// Resolved devuelve true cuando la condición ya reportó payouts.
func (c ConditionPayouts) Resolved() bool {
	return c.Denominator != 0
}

// Outcome deriva el resultado de los numeradores de payout. Gana el slot
// estrictamente mayor; numeradores iguales es un push con reembolso a
// mitad de precio y se registra como CANCEL. El segundo valor es false
// si la condición aún no resolvió.
func (c ConditionPayouts) Outcome() (Outcome, bool) {
	if !c.Resolved() {
		return "", false
	}
	switch {
	case c.Numerators[0] > c.Numerators[1]:
		return OutcomeYes, true
	case c.Numerators[1] > c.Numerators[0]:
		return OutcomeNo, true
	default:
		return OutcomeCancel, true
	}
}

// Won determina si una apuesta ganó dado el resultado del mercado.
// Para YES/NO gana cuando la dirección coincide; para MKT gana el lado
// que quedó del lado correcto de 0.5. CANCEL nunca gana.
func Won(d Direction, o Outcome, mktValue float64) bool {
	switch o {
	case OutcomeYes:
		return d == DirectionYes
	case OutcomeNo:
		return d == DirectionNo
	case OutcomeMkt:
		return (d == DirectionYes) == (mktValue > 0.5)
	default:
		return false
	}
}

// ApproxShares aproxima las shares compradas cuando el venue no devolvió
// el conteo exacto: stake / precio de entrada del lado apostado.
func ApproxShares(stake, fillProb float64, d Direction) float64 {
	price := fillProb
	if d == DirectionNo {
		price = 1 - fillProb
	}
	price = ClampProbability(price)
	return stake / price
}

// RealizedPnl calcula el P&L realizado de una apuesta resuelta.
// Con shares exactas:
//
//	ganada:  shares − stake
//	perdida: −stake
//	MKT:     shares·p − stake (YES) / shares·(1−p) − stake (NO)
//
// CANCEL devuelve siempre 0: el stake se reembolsa.
func RealizedPnl(d Direction, o Outcome, mktValue, stake, shares float64) float64 {
	switch o {
	case OutcomeCancel:
		return 0
	case OutcomeMkt:
		if d == DirectionYes {
			return shares*mktValue - stake
		}
		return shares*(1-mktValue) - stake
	default:
		if Won(d, o, mktValue) {
			return shares - stake
		}
		return -stake
	}
}

// BrierContribution devuelve (estimate − actual)² donde actual es 1 para
// YES, 0 para NO y el valor parcial para MKT. CANCEL contribuye 0 y se
// excluye de los agregados.
func BrierContribution(estimate float64, o Outcome, mktValue float64) float64 {
	var actual float64
	switch o {
	case OutcomeYes:
		actual = 1
	case OutcomeNo:
		actual = 0
	case OutcomeMkt:
		actual = mktValue
	default:
		return 0
	}
	diff := estimate - actual
	return diff * diff
}

// PositionSnapshot es una foto mark-to-market de una posición abierta.
// Puede haber muchas por trace; la resolución las supersede.
type PositionSnapshot struct {
	TraceID       string
	CreatedAt     time.Time
	Probability   float64 // probabilidad actual del mercado
	UnrealizedPnl float64
}

// UnrealizedPnl valora una posición abierta a la probabilidad actual:
// shares·p − stake para YES, shares·(1−p) − stake para NO.
func UnrealizedPnl(d Direction, shares, stake, prob float64) float64 {
	if d == DirectionNo {
		return shares*(1-prob) - stake
	}
	return shares*prob - stake
}
