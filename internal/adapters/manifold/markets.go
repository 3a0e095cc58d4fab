package manifold

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	marketsPath = "/markets"
	marketPath  = "/market"
	maxPageSize = 1000 // límite duro de la API
)

// FetchCandidateMarkets devuelve los mercados más recientes del venue.
// Manifold no permite ordenar por liquidez en la API, así que se piden
// los últimos y el filtro de elegibilidad hace el resto.
func (c *Client) FetchCandidateMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	url := fmt.Sprintf("%s%s?limit=%d", c.base, marketsPath, limit)

	var raw []manifoldMarket
	if err := c.get(ctx, url, &raw); err != nil {
		return nil, fmt.Errorf("manifold.FetchCandidateMarkets: %w", err)
	}

	markets := mapMarkets(raw)
	slog.Info("manifold candidates fetched", "total", len(markets))
	return markets, nil
}

// FetchMarket devuelve el snapshot actual de un mercado, incluida su
// resolución si ya cerró. Para este venue el estado que reporta la API
// es la fuente de verdad de resolución.
func (c *Client) FetchMarket(ctx context.Context, id string) (domain.Market, error) {
	url := fmt.Sprintf("%s%s/%s", c.base, marketPath, id)

	var raw manifoldMarket
	if err := c.get(ctx, url, &raw); err != nil {
		return domain.Market{}, fmt.Errorf("manifold.FetchMarket %s: %w", id, err)
	}
	return mapMarket(raw), nil
}
