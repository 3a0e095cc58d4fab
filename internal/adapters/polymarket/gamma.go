package polymarket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100 // máx items por página en Gamma
)

// FetchCandidateMarkets devuelve mercados binarios abiertos ordenados por
// liquidez descendente. Gamma descarta algunos mercados en el mapping
// (no binarios, sin token ids), así que pagina con offset hasta juntar
// limit mercados mapeables o agotar los resultados.
func (c *Client) FetchCandidateMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		limit = gammaPageSize
	}

	var all []domain.Market
	for offset := 0; len(all) < limit; offset += gammaPageSize {
		url := fmt.Sprintf("%s%s?active=true&closed=false&order=liquidityNum&ascending=false&limit=%d&offset=%d",
			c.gammaBase, gammaMarketsPath, gammaPageSize, offset)

		var page []gammaMarket
		if err := c.get(ctx, c.limMarkets, url, &page); err != nil {
			return nil, fmt.Errorf("gamma.FetchCandidateMarkets: %w", err)
		}

		mapped := mapGammaMarkets(page)
		all = append(all, mapped...)

		slog.Debug("fetched gamma markets page",
			"offset", offset,
			"raw", len(page),
			"mapped", len(mapped),
			"total", len(all),
		)

		if len(page) < gammaPageSize {
			break
		}
	}

	if len(all) > limit {
		all = all[:limit]
	}

	slog.Info("polymarket candidates fetched", "total", len(all))
	return all, nil
}

// FetchMarket devuelve el snapshot actual de un mercado por su id de Gamma.
// Se usa para marcar a mercado las posiciones abiertas; la resolución de
// Polymarket se lee on-chain, nunca de aquí.
func (c *Client) FetchMarket(ctx context.Context, id string) (domain.Market, error) {
	url := fmt.Sprintf("%s%s/%s", c.gammaBase, gammaMarketsPath, id)

	var raw gammaMarket
	if err := c.get(ctx, c.limMarkets, url, &raw); err != nil {
		return domain.Market{}, fmt.Errorf("gamma.FetchMarket %s: %w", id, err)
	}

	m, ok := mapGammaMarket(raw)
	if !ok {
		return domain.Market{}, fmt.Errorf("gamma.FetchMarket %s: not a mappable binary market", id)
	}
	return m, nil
}
