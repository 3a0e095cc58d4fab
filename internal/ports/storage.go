package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// RecordStore persiste los cuatro streams append-only del agente.
// Los streams se enlazan solo por trace_id, sin claves foráneas: los
// consumidores toleran filas huérfanas y las leen como "desconocido".
type RecordStore interface {
	// SaveDecision agrega un registro de decisión al stream.
	SaveDecision(ctx context.Context, d domain.Decision) error

	// SaveExecution agrega un registro de ejecución al stream.
	SaveExecution(ctx context.Context, e domain.Execution) error

	// SaveResolution agrega un registro de resolución al stream.
	SaveResolution(ctx context.Context, r domain.Resolution) error

	// SaveSnapshot agrega una foto mark-to-market de una posición abierta.
	SaveSnapshot(ctx context.Context, s domain.PositionSnapshot) error

	// GetOpenExecutions devuelve las ejecuciones filled no dry-run.
	// El reconciliador descarta después las ya resueltas.
	GetOpenExecutions(ctx context.Context) ([]domain.Execution, error)

	// GetResolvedTraceIDs devuelve el set de trace IDs ya resueltos.
	GetResolvedTraceIDs(ctx context.Context) (map[string]bool, error)

	// GetDecision devuelve la decisión de un trace. found false si no
	// existe (fila huérfana): el caller decide, nunca es error.
	GetDecision(ctx context.Context, traceID string) (domain.Decision, bool, error)

	// GetResolutions devuelve todas las resoluciones registradas.
	GetResolutions(ctx context.Context) ([]domain.Resolution, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
