package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// BuildReport recomputa el reporte de calibración desde el log completo de
// resoluciones. Una resolución sin decisión (fila huérfana) se saltea.
func (e *Engine) BuildReport(ctx context.Context) (domain.CalibrationReport, error) {
	resolutions, err := e.store.GetResolutions(ctx)
	if err != nil {
		return domain.CalibrationReport{}, fmt.Errorf("agent.BuildReport: load resolutions: %w", err)
	}

	bets := make([]domain.ResolvedBet, 0, len(resolutions))
	for _, res := range resolutions {
		dec, found, err := e.store.GetDecision(ctx, res.TraceID)
		if err != nil {
			return domain.CalibrationReport{}, fmt.Errorf("agent.BuildReport: load decision: %w", err)
		}
		if !found {
			slog.Warn("report: resolution without decision", "trace", shortID(res.TraceID))
			continue
		}
		bets = append(bets, domain.ResolvedBet{Decision: dec, Resolution: res})
	}
	return domain.BuildCalibrationReport(bets), nil
}

// refreshFeedback recalcula el texto de calibración que acompaña a las
// estimaciones del ciclo. Con poco historial el texto es la línea fija de
// datos insuficientes; solo un almacén ilegible deja el feedback vacío.
func (e *Engine) refreshFeedback(ctx context.Context) {
	report, err := e.BuildReport(ctx)
	if err != nil {
		slog.Warn("feedback unavailable", "err", err)
		e.feedback = ""
		return
	}
	e.feedback = domain.FeedbackText(report)
}
