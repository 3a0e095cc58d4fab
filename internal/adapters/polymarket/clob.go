package polymarket

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const bookPath = "/book"

// FetchBook obtiene el orderbook actual de un token del CLOB.
// Se consulta justo antes de enviar una orden fill-or-kill, para
// comprobar que el mejor ask sigue dentro de la tolerancia de precio.
func (c *Client) FetchBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	url := fmt.Sprintf("%s%s?token_id=%s", c.clobBase, bookPath, tokenID)

	var resp orderBookResponse
	if err := c.get(ctx, c.limBooks, url, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("clob.FetchBook: %w", err)
	}

	book := mapOrderBook(resp)
	if book.TokenID == "" {
		book.TokenID = tokenID
	}
	return book, nil
}
