package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Estimator produce la probabilidad estimada de una pregunta binaria.
type Estimator interface {
	// Estimate devuelve probabilidad, etiqueta de confianza y racional
	// para la pregunta, incorporando el feedback de calibración.
	Estimate(ctx context.Context, req domain.EstimateRequest) (domain.Estimate, error)
}
