package domain

import "time"

// Action es el resultado terminal del clasificador de decisiones.
type Action string

const (
	ActionBet               Action = "BET"
	ActionSkipLowEdge       Action = "SKIP_LOW_EDGE"
	ActionSkipNegativeKelly Action = "SKIP_NEGATIVE_KELLY"
	ActionSkipLowConfidence Action = "SKIP_LOW_CONFIDENCE"
	ActionSkipError         Action = "SKIP_ERROR"
)

// Decision es el registro inmutable de una decisión sobre un candidato.
// Se emite exactamente una por candidato, también para los skips: el
// stream de decisiones es la pista de auditoría completa.
type Decision struct {
	TraceID   string // uuid v4, clave estable que enlaza todos los registros derivados
	CreatedAt time.Time
	Venue     Venue
	MarketID  string
	Question  string

	MarketProb float64 // probabilidad implícita al decidir
	Liquidity  float64 // liquidez al decidir
	Estimate   float64 // probabilidad estimada de YES
	Confidence ConfidenceLabel
	Edge       float64
	Direction  Direction // DirectionNone en skips
	Kelly      float64
	FillProb   float64 // probabilidad efectiva de fill tras slippage
	Stake      float64
	Action     Action

	// Routing para ejecución y reconciliación posteriores.
	ConditionID string // Polymarket
	TokenID     string // Polymarket: token del lado apostado
	NegRisk     bool   // Polymarket
}

// IsBet devuelve true si la decisión terminó en apuesta ejecutable.
func (d Decision) IsBet() bool {
	return d.Action == ActionBet
}
