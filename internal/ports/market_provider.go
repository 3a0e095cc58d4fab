package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// MarketProvider obtiene snapshots de mercado de un venue.
type MarketProvider interface {
	// FetchCandidateMarkets devuelve mercados abiertos listos para pasar
	// por el filtro de elegibilidad. limit acota la cantidad pedida.
	FetchCandidateMarkets(ctx context.Context, limit int) ([]domain.Market, error)

	// FetchMarket devuelve el snapshot actual de un mercado puntual,
	// incluido su estado de resolución si ya cerró.
	FetchMarket(ctx context.Context, id string) (domain.Market, error)
}
