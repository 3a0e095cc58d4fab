package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// BookProvider obtiene el orderbook de un token del CLOB.
type BookProvider interface {
	// FetchBook devuelve el libro de órdenes actual del token dado.
	// Se usa como pre-check antes de enviar una orden fill-or-kill.
	FetchBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
}
