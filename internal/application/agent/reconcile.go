package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// reconcile recorre las ejecuciones abiertas y registra una resolución por
// cada una que el venue ya decidió. Los fallos por trace se loggean y el
// trace queda pendiente para el próximo ciclo; solo un almacén roto aborta.
func (e *Engine) reconcile(ctx context.Context) ([]domain.Resolution, error) {
	open, err := e.store.GetOpenExecutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: load open executions: %w", err)
	}
	if len(open) == 0 {
		return nil, nil
	}
	resolved, err := e.store.GetResolvedTraceIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: load resolved traces: %w", err)
	}

	// Varias posiciones pueden compartir condición on-chain; una sola
	// lectura del contrato por condición y por ciclo.
	payoutCache := make(map[string]domain.ConditionPayouts)

	var out []domain.Resolution
	for _, ex := range open {
		if resolved[ex.TraceID] {
			continue
		}
		res, ok := e.reconcileTrace(ctx, ex, payoutCache)
		if ok {
			out = append(out, res)
		}
	}
	return out, nil
}

// reconcileTrace resuelve una ejecución abierta. Devuelve false si el
// mercado sigue vivo o si algo falló; los fallos ya quedan loggeados.
func (e *Engine) reconcileTrace(ctx context.Context, ex domain.Execution, cache map[string]domain.ConditionPayouts) (domain.Resolution, bool) {
	dec, found, err := e.store.GetDecision(ctx, ex.TraceID)
	if err != nil {
		slog.Warn("reconcile: load decision failed", "trace", shortID(ex.TraceID), "err", err)
		return domain.Resolution{}, false
	}
	if !found {
		// Fila huérfana: sin decisión no hay routing ni estimación.
		slog.Warn("reconcile: execution without decision", "trace", shortID(ex.TraceID))
		return domain.Resolution{}, false
	}

	var (
		outcome    domain.Outcome
		mktValue   float64
		isResolved bool
	)
	switch ex.Venue {
	case domain.VenueManifold:
		outcome, mktValue, isResolved, err = e.manifoldOutcome(ctx, dec.MarketID)
	case domain.VenuePolymarket:
		outcome, isResolved, err = e.polymarketOutcome(ctx, dec.ConditionID, cache)
	default:
		err = fmt.Errorf("unknown venue %q", ex.Venue)
	}
	if err != nil {
		slog.Warn("reconcile: resolution check failed",
			"trace", shortID(ex.TraceID),
			"venue", ex.Venue,
			"err", err,
		)
		return domain.Resolution{}, false
	}
	if !isResolved {
		return domain.Resolution{}, false
	}

	res := e.buildResolution(ex, dec, outcome, mktValue)
	if err := e.store.SaveResolution(ctx, res); err != nil {
		slog.Warn("reconcile: save resolution failed", "trace", shortID(ex.TraceID), "err", err)
		return domain.Resolution{}, false
	}
	slog.Info("position resolved",
		"trace", shortID(ex.TraceID),
		"venue", ex.Venue,
		"outcome", res.Outcome,
		"won", res.Won,
		"pnl", res.Pnl,
	)

	if ex.Venue == domain.VenuePolymarket && (res.Won || res.Outcome == domain.OutcomeCancel) {
		e.redeemFor(ctx, ex.TraceID, dec.ConditionID)
	}
	return res, true
}

// manifoldOutcome consulta el estado de resolución que reporta Manifold.
func (e *Engine) manifoldOutcome(ctx context.Context, marketID string) (domain.Outcome, float64, bool, error) {
	provider, ok := e.markets[domain.VenueManifold]
	if !ok {
		return "", 0, false, fmt.Errorf("no manifold provider configured")
	}
	m, err := provider.FetchMarket(ctx, marketID)
	if err != nil {
		return "", 0, false, err
	}
	if !m.Resolved {
		return "", 0, false, nil
	}
	if m.Outcome == "" {
		// Valor de resolución que no mapea a YES/NO/MKT/CANCEL.
		return "", 0, false, fmt.Errorf("market %s: unrecognized resolution", marketID)
	}
	return m.Outcome, m.ResolutionProb, true, nil
}

// polymarketOutcome lee los payouts de la condición directamente del
// contrato ConditionalTokens, con una lectura por condición y ciclo.
func (e *Engine) polymarketOutcome(ctx context.Context, conditionID string, cache map[string]domain.ConditionPayouts) (domain.Outcome, bool, error) {
	if conditionID == "" {
		return "", false, fmt.Errorf("decision has no condition id")
	}
	if e.resolution == nil {
		return "", false, fmt.Errorf("no resolution source configured")
	}
	payouts, ok := cache[conditionID]
	if !ok {
		var err error
		payouts, err = e.resolution.GetConditionPayouts(ctx, conditionID)
		if err != nil {
			return "", false, err
		}
		cache[conditionID] = payouts
	}
	outcome, isResolved := payouts.Outcome()
	return outcome, isResolved, nil
}

// buildResolution arma el registro de resolución de una posición.
func (e *Engine) buildResolution(ex domain.Execution, dec domain.Decision, outcome domain.Outcome, mktValue float64) domain.Resolution {
	if outcome != domain.OutcomeMkt {
		mktValue = 0
	}
	shares := ex.Shares
	if shares <= 0 {
		shares = domain.ApproxShares(ex.Amount, dec.FillProb, dec.Direction)
	}
	return domain.Resolution{
		TraceID:    ex.TraceID,
		ResolvedAt: e.now(),
		Venue:      ex.Venue,
		Outcome:    outcome,
		MktValue:   mktValue,
		Direction:  dec.Direction,
		Won:        domain.Won(dec.Direction, outcome, mktValue),
		Pnl:        domain.RealizedPnl(dec.Direction, outcome, mktValue, ex.Amount, shares),
		Brier:      domain.BrierContribution(dec.Estimate, outcome, mktValue),
	}
}

// ReconcileOnce corre solo la pasada de reconciliación, sin ciclo de
// trading, y devuelve las resoluciones nuevas.
func (e *Engine) ReconcileOnce(ctx context.Context) ([]domain.Resolution, error) {
	return e.reconcile(ctx)
}
