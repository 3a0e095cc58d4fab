package manifold

import (
	"strings"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	outcomeTypeBinary = "BINARY"
	mechanismCPMM     = "cpmm-1"
)

// mapMarkets convierte los DTOs de Manifold a domain.Market.
func mapMarkets(raw []manifoldMarket) []domain.Market {
	markets := make([]domain.Market, 0, len(raw))
	for _, r := range raw {
		markets = append(markets, mapMarket(r))
	}
	return markets
}

// mapMarket convierte un manifoldMarket a domain.Market. Binary exige
// mercado BINARY sobre cpmm-1: el sizing con slippage asume ese pool.
func mapMarket(r manifoldMarket) domain.Market {
	m := domain.Market{
		ID:           r.ID,
		Venue:        domain.VenueManifold,
		Mechanism:    domain.MechanismPooled,
		Question:     r.Question,
		Probability:  r.Probability,
		Liquidity:    r.TotalLiquidity,
		Volume:       r.Volume,
		Participants: r.UniqueBettorCount,
		Binary:       r.OutcomeType == outcomeTypeBinary && r.Mechanism == mechanismCPMM,
		Resolved:     r.IsResolved,
		URL:          r.URL,
	}

	if r.CloseTime > 0 {
		m.CloseTime = time.UnixMilli(r.CloseTime).UTC()
	}

	if r.IsResolved {
		m.Outcome = mapResolution(r.Resolution)
		m.ResolutionProb = r.ResolutionProbability
	}

	return m
}

// mapResolution normaliza el valor de resolución del venue. Un valor
// desconocido queda como Outcome vacío y lo rechaza el reconciliador.
func mapResolution(s string) domain.Outcome {
	switch strings.ToUpper(s) {
	case "YES":
		return domain.OutcomeYes
	case "NO":
		return domain.OutcomeNo
	case "MKT":
		return domain.OutcomeMkt
	case "CANCEL":
		return domain.OutcomeCancel
	}
	return ""
}
