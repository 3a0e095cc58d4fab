package agent

import (
	"context"
	"log/slog"
)

// redeemFor reclama on-chain el payout de una posición de Polymarket recién
// resuelta a favor (o anulada). Solo corre con la redención habilitada y
// fuera de dry-run. El fallo se loggea y nada más: la resolución ya quedó
// registrada y los tokens se pueden reclamar a mano.
func (e *Engine) redeemFor(ctx context.Context, traceID, conditionID string) {
	if !e.cfg.RedeemEnabled || e.cfg.DryRun {
		return
	}
	if conditionID == "" || e.resolution == nil {
		return
	}
	txHash, err := e.resolution.RedeemPositions(ctx, conditionID)
	if err != nil {
		slog.Warn("redeem failed", "trace", shortID(traceID), "condition", conditionID, "err", err)
		return
	}
	slog.Info("position redeemed", "trace", shortID(traceID), "tx", txHash)
}
