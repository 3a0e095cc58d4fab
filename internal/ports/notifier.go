package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Notifier presenta el resultado de cada ciclo al usuario.
type Notifier interface {
	// Notify muestra el resumen del ciclo: decisiones, ejecuciones y
	// resoluciones. En la implementación de consola imprime una tabla.
	Notify(ctx context.Context, summary domain.RunSummary) error
}
