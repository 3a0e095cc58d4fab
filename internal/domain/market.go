package domain

import "time"

// Venue identifica la plataforma donde vive un mercado.
type Venue string

const (
	VenuePolymarket Venue = "polymarket"
	VenueManifold   Venue = "manifold"
)

// Mechanism describe cómo se ejecutan las órdenes en el venue.
type Mechanism string

const (
	// MechanismOrderBook: libro de órdenes central (CLOB). Las órdenes se
	// cruzan contra liquidez visible a precio cotizado.
	MechanismOrderBook Mechanism = "orderbook"
	// MechanismPooled: market maker de liquidez agrupada (CPMM). El precio
	// efectivo se degrada con el tamaño de la propia orden.
	MechanismPooled Mechanism = "pooled"
)

// Direction es el lado de una apuesta binaria.
type Direction string

const (
	DirectionYes Direction = "YES"
	DirectionNo  Direction = "NO"
	// DirectionNone marca decisiones sin lado elegido (skips y errores).
	DirectionNone Direction = ""
)

// Market es el snapshot de solo lectura de un mercado de predicción binario.
// Lo construyen los adapters de fetch; el core nunca lo muta.
type Market struct {
	ID           string
	Venue        Venue
	Mechanism    Mechanism
	Question     string
	Probability  float64   // probabilidad implícita actual (precio YES)
	Liquidity    float64
	Volume       float64
	CloseTime    time.Time
	Participants int
	Binary       bool
	Resolved     bool

	// Estado de resolución reportado por el venue, solo cuando Resolved.
	Outcome        Outcome
	ResolutionProb float64 // valor parcial cuando Outcome es MKT

	// Extras por venue; solo el adapter dueño los rellena.
	ConditionID string // Polymarket: condición on-chain (resolución y redención)
	YesTokenID  string // Polymarket: token CLOB del lado YES
	NoTokenID   string // Polymarket: token CLOB del lado NO
	NegRisk     bool   // Polymarket: mercado en el exchange neg-risk
	URL         string
}

// HoursToClose devuelve las horas hasta el cierre del mercado.
// Devuelve 0 si CloseTime no está definido o ya pasó.
func (m Market) HoursToClose() float64 {
	if m.CloseTime.IsZero() {
		return 0
	}
	h := time.Until(m.CloseTime).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// TokenFor devuelve el token CLOB correspondiente al lado apostado.
// Solo tiene sentido en mercados de Polymarket.
func (m Market) TokenFor(d Direction) string {
	if d == DirectionNo {
		return m.NoTokenID
	}
	return m.YesTokenID
}

// TruncateQuestion devuelve la pregunta truncada a maxLen caracteres.
// Si la pregunta está vacía usa los primeros caracteres del ID como fallback.
func TruncateQuestion(question, id string, maxLen int) string {
	q := question
	if q == "" {
		if len(id) > 20 {
			q = id[:20] + "..."
		} else {
			q = id
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}
