package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// dispatchAll despacha las decisiones BET. Cada intento deja exactamente un
// registro de ejecución; ningún fallo del venue escapa del dispatcher.
func (e *Engine) dispatchAll(ctx context.Context, decisions []domain.Decision) []domain.Execution {
	// Saldo disponible por venue, consultado una vez por ciclo al primer
	// BET en vivo que lo necesita. balanceUnknown = guardia desactivada.
	balances := make(map[domain.Venue]float64)

	var executions []domain.Execution
	for _, d := range decisions {
		if !d.IsBet() {
			continue
		}
		exec := e.dispatchOne(ctx, d, balances)
		if err := e.store.SaveExecution(ctx, exec); err != nil {
			slog.Error("save execution failed", "trace", shortID(exec.TraceID), "err", err)
		}
		if exec.Status == domain.ExecutionFilled && !exec.DryRun {
			if bal, ok := balances[exec.Venue]; ok && bal != balanceUnknown {
				balances[exec.Venue] = bal - exec.Amount
			}
		}
		executions = append(executions, exec)
	}
	return executions
}

// balanceUnknown marca un venue cuya consulta de saldo falló este ciclo.
const balanceUnknown = -1

func (e *Engine) dispatchOne(ctx context.Context, d domain.Decision, balances map[domain.Venue]float64) domain.Execution {
	exec := domain.Execution{
		TraceID:   d.TraceID,
		CreatedAt: e.now(),
		Venue:     d.Venue,
		Amount:    d.Stake,
		DryRun:    e.cfg.DryRun,
	}

	if e.cfg.DryRun {
		slog.Info("dry-run: order not sent",
			"trace", shortID(d.TraceID),
			"venue", d.Venue,
			"direction", d.Direction,
			"stake", d.Stake,
		)
		exec.Status = domain.ExecutionFilled
		exec.OrderID = "dry-run"
		return exec
	}

	executor, ok := e.executors[d.Venue]
	if !ok {
		exec.Status = domain.ExecutionFailed
		exec.Error = fmt.Sprintf("no executor for venue %s", d.Venue)
		return exec
	}

	// Guardia de saldo: no enviar órdenes que el venue va a rechazar por
	// fondos. Si la consulta falla, la guardia se desactiva para el ciclo.
	if bal := e.venueBalance(ctx, d.Venue, balances); bal != balanceUnknown && bal < d.Stake {
		slog.Warn("insufficient balance, order not sent",
			"trace", shortID(d.TraceID),
			"venue", d.Venue,
			"available", bal,
			"stake", d.Stake,
		)
		exec.Status = domain.ExecutionFailed
		exec.Error = fmt.Sprintf("insufficient balance: have %.2f, need %.2f", bal, d.Stake)
		return exec
	}

	// Pre-check del libro: un FOK contra un book peor que el precio de la
	// decisión más la tolerancia no cruzaría; mejor ni enviarlo.
	if d.Venue == domain.VenuePolymarket && !e.bookWouldCross(ctx, d) {
		exec.Status = domain.ExecutionUnfilled
		return exec
	}

	result, err := executor.PlaceBuy(ctx, domain.OrderRequest{
		Venue:     d.Venue,
		MarketID:  d.MarketID,
		TokenID:   d.TokenID,
		NegRisk:   d.NegRisk,
		Direction: d.Direction,
		Price:     orderPrice(d),
		Amount:    d.Stake,
	})
	if err != nil {
		slog.Warn("order failed", "trace", shortID(d.TraceID), "venue", d.Venue, "err", err)
		exec.Status = domain.ExecutionFailed
		exec.Error = err.Error()
		return exec
	}
	if !result.Filled {
		slog.Info("order did not cross", "trace", shortID(d.TraceID), "venue", d.Venue)
		exec.Status = domain.ExecutionUnfilled
		exec.OrderID = result.OrderID
		return exec
	}

	slog.Info("order filled",
		"trace", shortID(d.TraceID),
		"venue", d.Venue,
		"order_id", result.OrderID,
		"shares", result.Shares,
	)
	exec.Status = domain.ExecutionFilled
	exec.OrderID = result.OrderID
	exec.Shares = result.Shares
	return exec
}

// venueBalance devuelve el saldo restante del venue para este ciclo,
// consultándolo la primera vez. balanceUnknown cuando la consulta falló.
func (e *Engine) venueBalance(ctx context.Context, venue domain.Venue, balances map[domain.Venue]float64) float64 {
	if bal, ok := balances[venue]; ok {
		return bal
	}
	executor, ok := e.executors[venue]
	if !ok {
		balances[venue] = balanceUnknown
		return balanceUnknown
	}
	bal, err := executor.GetBalance(ctx)
	if err != nil {
		slog.Warn("balance check failed, guard disabled for cycle", "venue", venue, "err", err)
		bal = balanceUnknown
	}
	balances[venue] = bal
	return bal
}

// bookWouldCross consulta el libro del token y compara el mejor ask con el
// precio de la decisión más la tolerancia configurada. Si el book no se
// puede leer se degrada a enviar la orden: el FOK decide en el venue.
func (e *Engine) bookWouldCross(ctx context.Context, d domain.Decision) bool {
	if e.books == nil {
		return true
	}
	book, err := e.books.FetchBook(ctx, d.TokenID)
	if err != nil {
		slog.Warn("book pre-check failed, submitting anyway", "trace", shortID(d.TraceID), "err", err)
		return true
	}
	ask := book.BestAsk()
	if ask <= 0 {
		// Sin asks no hay nada contra qué cruzar.
		slog.Info("empty book, order not sent", "trace", shortID(d.TraceID))
		return false
	}
	limit := orderPrice(d) + e.cfg.PriceTolerance
	if ask > limit {
		slog.Info("book worse than limit, order not sent",
			"trace", shortID(d.TraceID),
			"best_ask", ask,
			"limit", limit,
		)
		return false
	}
	// Un FOK se llena entero o nada: si el valor acumulado de asks dentro
	// del límite no cubre el stake, no puede cruzar completo.
	if depth := book.AskDepthUSDC(limit); depth < d.Stake {
		slog.Info("book too thin for stake, order not sent",
			"trace", shortID(d.TraceID),
			"depth", depth,
			"stake", d.Stake,
		)
		return false
	}
	return true
}

// orderPrice traduce la probabilidad efectiva de la decisión (siempre en
// términos de YES) al precio del token que se compra.
func orderPrice(d domain.Decision) float64 {
	if d.Direction == domain.DirectionNo {
		return 1 - d.FillProb
	}
	return d.FillProb
}
