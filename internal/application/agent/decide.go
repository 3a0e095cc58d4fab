package agent

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// decideAll estima y clasifica cada candidato, persistiendo exactamente una
// decisión por mercado. Los skips también se registran: son la pista de
// auditoría de por qué no se apostó.
func (e *Engine) decideAll(ctx context.Context, markets []domain.Market) []domain.Decision {
	decisions := make([]domain.Decision, 0, len(markets))
	for _, m := range markets {
		d := e.decideOne(ctx, m)
		if err := e.store.SaveDecision(ctx, d); err != nil {
			slog.Error("save decision failed", "trace", shortID(d.TraceID), "err", err)
		}
		slog.Debug("decision",
			"trace", shortID(d.TraceID),
			"venue", d.Venue,
			"action", d.Action,
			"edge", d.Edge,
			"stake", d.Stake,
		)
		decisions = append(decisions, d)
	}
	return decisions
}

// decideOne aplica las puertas del clasificador en orden fijo: error de
// estimación, edge mínimo, confianza, y por último dirección + sizing. La
// primera puerta que no pasa determina la acción.
func (e *Engine) decideOne(ctx context.Context, m domain.Market) domain.Decision {
	d := domain.Decision{
		TraceID:     e.newTraceID(),
		CreatedAt:   e.now(),
		Venue:       m.Venue,
		MarketID:    m.ID,
		Question:    m.Question,
		MarketProb:  m.Probability,
		Liquidity:   m.Liquidity,
		ConditionID: m.ConditionID,
		NegRisk:     m.NegRisk,
	}

	category := domain.DetectCategory(m.Question)
	est, err := e.estimator.Estimate(ctx, domain.EstimateRequest{
		Question:   m.Question,
		Category:   category,
		MarketProb: m.Probability,
		CloseTime:  m.CloseTime,
		Feedback:   e.feedback,
	})
	if err != nil {
		slog.Warn("estimate failed", "trace", shortID(d.TraceID), "market", m.ID, "err", err)
		d.Action = domain.ActionSkipError
		return d
	}
	d.Estimate = est.Probability
	d.Confidence = est.Confidence
	d.Edge = domain.Edge(est.Probability, m.Probability)

	if d.Edge < e.cfg.EdgeThreshold {
		d.Action = domain.ActionSkipLowEdge
		return d
	}

	// Una estimación de baja confianza solo vale si hay una fuente de
	// datos estructurados que pueda corroborar la categoría.
	if est.Confidence == domain.ConfidenceLow && !e.hasDataFor(category) {
		d.Action = domain.ActionSkipLowConfidence
		return d
	}

	d.Direction = domain.DirectionFor(est.Probability, m.Probability)
	d.TokenID = m.TokenFor(d.Direction)

	var sz domain.Sizing
	if m.Mechanism == domain.MechanismPooled {
		sz = domain.SizePooled(est.Probability, m.Probability, m.Liquidity, d.Direction, e.cfg.Sizing)
	} else {
		sz = domain.SizeOrderBook(est.Probability, m.Probability, d.Direction, e.cfg.Sizing)
	}
	d.Kelly = sz.Kelly
	d.FillProb = sz.FillProb
	d.Stake = sz.Stake

	if sz.Kelly <= 0 {
		d.Action = domain.ActionSkipNegativeKelly
		return d
	}
	if sz.Stake < e.cfg.Sizing.TradeUnit() {
		// El stake redondeó por debajo de la unidad mínima: el edge no
		// paga ni la apuesta más chica.
		d.Action = domain.ActionSkipLowEdge
		return d
	}

	d.Action = domain.ActionBet
	return d
}

func (e *Engine) hasDataFor(c domain.Category) bool {
	switch c {
	case domain.CategorySports:
		return e.cfg.HasSportsData
	case domain.CategoryFinance:
		return e.cfg.HasFinanceData
	default:
		return false
	}
}
