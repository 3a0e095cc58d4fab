package domain

import "strconv"

// OrderBook es el snapshot del libro CLOB de un token en el momento de
// la consulta. Los niveles llegan ya ordenados del mapping: bids de
// mayor a menor precio, asks de menor a mayor.
type OrderBook struct {
	TokenID string
	Bids    []BookEntry
	Asks    []BookEntry
}

// BookEntry es un nivel de precio con su tamaño agregado.
type BookEntry struct {
	Price float64
	Size  float64
}

// topOfBook devuelve el mejor bid y el mejor ask. ok es false cuando
// falta cualquiera de los dos lados.
func (b OrderBook) topOfBook() (bid, ask float64, ok bool) {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return 0, 0, false
	}
	return b.Bids[0].Price, b.Asks[0].Price, true
}

// BestBid es el bid más alto, 0 con el lado vacío.
func (b OrderBook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk es el ask más bajo, 0 con el lado vacío.
func (b OrderBook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// Midpoint es el punto medio entre los dos mejores niveles, 0 si el
// libro no tiene ambos lados.
func (b OrderBook) Midpoint() float64 {
	bid, ask, ok := b.topOfBook()
	if !ok {
		return 0
	}
	return (bid + ask) / 2
}

// Spread es la distancia entre best ask y best bid, 0 si el libro no
// tiene ambos lados.
func (b OrderBook) Spread() float64 {
	bid, ask, ok := b.topOfBook()
	if !ok {
		return 0
	}
	return ask - bid
}

// AskDepthUSDC calcula el valor en USDC (size × price) de los asks con
// precio menor o igual a maxPrice: la liquidez que una compra
// fill-or-kill a maxPrice podría cruzar.
func (b OrderBook) AskDepthUSDC(maxPrice float64) float64 {
	var total float64
	for _, a := range b.Asks {
		if a.Price > maxPrice {
			break
		}
		total += a.Size * a.Price
	}
	return total
}

// ParsePrice convierte los precios string de las APIs a float64; un
// valor no numérico cuenta como 0.
func ParsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
