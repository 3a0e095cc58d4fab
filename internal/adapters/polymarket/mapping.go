package polymarket

import (
	"sort"
	"strconv"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// mapGammaMarkets convierte los DTOs de Gamma a domain.Market, descartando
// los que no son apuestas binarias mapeables.
func mapGammaMarkets(raw []gammaMarket) []domain.Market {
	out := make([]domain.Market, 0, len(raw))
	for _, r := range raw {
		if m, ok := mapGammaMarket(r); ok {
			out = append(out, m)
		}
	}
	return out
}

// mapGammaMarket convierte un gammaMarket a domain.Market.
// Devuelve ok=false si el mercado no es binario o le faltan los dos
// token ids del CLOB: sin ellos no hay precio ni orden posible.
func mapGammaMarket(r gammaMarket) (domain.Market, bool) {
	if len(r.Outcomes) != 2 || len(r.ClobTokenIDs) != 2 || len(r.OutcomePrices) != 2 {
		return domain.Market{}, false
	}

	yesPrice, err := strconv.ParseFloat(r.OutcomePrices[0], 64)
	if err != nil {
		return domain.Market{}, false
	}

	m := domain.Market{
		ID:          r.ID,
		Venue:       domain.VenuePolymarket,
		Mechanism:   domain.MechanismOrderBook,
		Question:    r.Question,
		Probability: yesPrice,
		Liquidity:   r.Liquidity,
		Volume:      r.Volume,
		CloseTime:   parseEndDate(r.EndDate),
		Binary:      true,
		Resolved:    r.Closed,
		ConditionID: r.ConditionID,
		YesTokenID:  r.ClobTokenIDs[0],
		NoTokenID:   r.ClobTokenIDs[1],
		NegRisk:     r.NegRisk,
		URL:         "https://polymarket.com/market/" + r.Slug,
	}

	// Gamma no expone conteo de apostadores; con volumen negociado hay
	// al menos uno.
	if m.Volume > 0 {
		m.Participants = 1
	}

	return m, true
}

// Formatos de fecha que Gamma ha usado en endDate.
var endDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02",
}

func parseEndDate(s string) time.Time {
	for _, layout := range endDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// mapOrderBook convierte la respuesta de GET /book a domain.OrderBook.
func mapOrderBook(r orderBookResponse) domain.OrderBook {
	return domain.OrderBook{
		TokenID: r.AssetID,
		Bids:    bookSide(r.Bids, false),
		Asks:    bookSide(r.Asks, true),
	}
}

// bookSide convierte un lado del libro descartando niveles sin precio o
// sin tamaño. asc=true deja los asks de menor a mayor; los bids van al
// revés, con el mejor precio primero en ambos casos.
func bookSide(raw []bookEntryRaw, asc bool) []domain.BookEntry {
	side := make([]domain.BookEntry, 0, len(raw))
	for _, lvl := range raw {
		e := domain.BookEntry{
			Price: domain.ParsePrice(lvl.Price),
			Size:  domain.ParsePrice(lvl.Size),
		}
		if e.Price > 0 && e.Size > 0 {
			side = append(side, e)
		}
	}

	sort.Slice(side, func(i, j int) bool {
		if asc {
			return side[i].Price < side[j].Price
		}
		return side[j].Price < side[i].Price
	})

	return side
}
