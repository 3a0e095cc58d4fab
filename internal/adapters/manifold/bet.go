package manifold

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	betPath = "/bet"
	mePath  = "/me"
)

// PlaceBuy ejecuta una compra directa contra el pool CPMM del mercado.
// La compra es inmediata: no existe el caso "sin cruce" de un libro de
// órdenes, y el venue devuelve las shares exactas compradas.
func (c *Client) PlaceBuy(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if c.apiKey == "" {
		return domain.OrderResult{}, fmt.Errorf("manifold.PlaceBuy: api key not configured")
	}
	if req.Direction != domain.DirectionYes && req.Direction != domain.DirectionNo {
		return domain.OrderResult{}, fmt.Errorf("manifold.PlaceBuy: invalid direction %q", req.Direction)
	}

	body := betRequest{
		Amount:     req.Amount,
		ContractID: req.MarketID,
		Outcome:    string(req.Direction),
	}

	var resp betResponse
	if err := c.postOnce(ctx, c.base+betPath, body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("manifold.PlaceBuy: %w", err)
	}

	orderID := resp.BetID
	if orderID == "" {
		orderID = resp.ID
	}

	return domain.OrderResult{
		OrderID: orderID,
		Shares:  resp.Shares,
		Filled:  true,
	}, nil
}

// GetBalance devuelve el balance M$ de la cuenta autenticada.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("manifold.GetBalance: api key not configured")
	}

	var user userResponse
	if err := c.get(ctx, c.base+mePath, &user); err != nil {
		return 0, fmt.Errorf("manifold.GetBalance: %w", err)
	}
	return user.Balance, nil
}
