package agent

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// snapshotOpen agrega una foto mark-to-market por cada posición que sigue
// abierta tras la reconciliación. Un mercado que no se pudo leer saltea su
// trace; el historial de snapshots tolera huecos.
func (e *Engine) snapshotOpen(ctx context.Context) int {
	open, err := e.store.GetOpenExecutions(ctx)
	if err != nil {
		slog.Warn("snapshot: load open executions failed", "err", err)
		return 0
	}
	if len(open) == 0 {
		return 0
	}
	resolved, err := e.store.GetResolvedTraceIDs(ctx)
	if err != nil {
		slog.Warn("snapshot: load resolved traces failed", "err", err)
		return 0
	}

	count := 0
	for _, ex := range open {
		if resolved[ex.TraceID] {
			continue
		}
		dec, found, err := e.store.GetDecision(ctx, ex.TraceID)
		if err != nil || !found {
			continue
		}
		provider, ok := e.markets[ex.Venue]
		if !ok {
			continue
		}
		m, err := provider.FetchMarket(ctx, dec.MarketID)
		if err != nil {
			slog.Warn("snapshot: fetch market failed",
				"trace", shortID(ex.TraceID),
				"market", dec.MarketID,
				"err", err,
			)
			continue
		}

		shares := ex.Shares
		if shares <= 0 {
			shares = domain.ApproxShares(ex.Amount, dec.FillProb, dec.Direction)
		}
		snap := domain.PositionSnapshot{
			TraceID:       ex.TraceID,
			CreatedAt:     e.now(),
			Probability:   m.Probability,
			UnrealizedPnl: domain.UnrealizedPnl(dec.Direction, shares, ex.Amount, m.Probability),
		}
		if err := e.store.SaveSnapshot(ctx, snap); err != nil {
			slog.Warn("snapshot: save failed", "trace", shortID(ex.TraceID), "err", err)
			continue
		}
		count++
	}
	return count
}
