package domain

import (
	"strings"
	"time"
)

// ConfidenceLabel es la confianza declarada por el estimador externo.
type ConfidenceLabel string

const (
	ConfidenceLow    ConfidenceLabel = "low"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceHigh   ConfidenceLabel = "high"
)

// Estimate es la salida del estimador de probabilidad para una pregunta.
type Estimate struct {
	Probability float64 // probabilidad de YES en [0, 1]
	Confidence  ConfidenceLabel
	Rationale   string
}

// Valid devuelve true si la probabilidad está dentro de [0, 1].
func (e Estimate) Valid() bool {
	return e.Probability >= 0 && e.Probability <= 1
}

// EstimateRequest es el contexto completo que recibe el estimador.
type EstimateRequest struct {
	Question   string
	Category   Category
	MarketProb float64
	CloseTime  time.Time
	// Feedback es el texto de calibración derivado del historial de
	// resoluciones; el único artefacto que realimenta al estimador.
	Feedback string
}

// Category clasifica una pregunta según la fuente de datos estructurados
// que la corroboraría.
type Category string

const (
	CategorySports  Category = "sports"
	CategoryFinance Category = "finance"
	CategoryOther   Category = "other"
)

var sportsKeywords = []string{
	" vs ", " vs.", "beat ", "defeat", "win the game", "win the match",
	"nba", "nfl", "nhl", "mlb", "ufc", "premier league", "champions league",
	"la liga", "world cup", "super bowl", "playoff", "grand slam",
	"score", "touchdown", "knockout",
}

var financeKeywords = []string{
	"stock", "share price", "bitcoin", "btc", "ethereum", " eth ",
	"s&p", "nasdaq", "dow jones", "fed ", "interest rate", "inflation",
	"earnings", "market cap", "close above", "close below", "all-time high",
	"price of", "usd", "$",
}

// DetectCategory asigna una categoría a partir del texto de la pregunta.
// Sports gana sobre finance cuando ambos matchean.
func DetectCategory(question string) Category {
	q := strings.ToLower(question)
	for _, kw := range sportsKeywords {
		if strings.Contains(q, kw) {
			return CategorySports
		}
	}
	for _, kw := range financeKeywords {
		if strings.Contains(q, kw) {
			return CategoryFinance
		}
	}
	return CategoryOther
}
