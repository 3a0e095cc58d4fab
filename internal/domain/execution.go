package domain

import "time"

// ExecutionStatus es el conjunto cerrado de estados de una ejecución.
type ExecutionStatus string

const (
	// ExecutionFilled: la orden se llenó; hay posición abierta.
	ExecutionFilled ExecutionStatus = "filled"
	// ExecutionUnfilled: fill-or-kill sin cruce. Resultado válido sin
	// efecto, distinto de un rechazo.
	ExecutionUnfilled ExecutionStatus = "unfilled"
	// ExecutionFailed: el venue rechazó la orden o la llamada falló.
	ExecutionFailed ExecutionStatus = "failed"
)

// Execution es el registro inmutable de un intento de ejecución.
// Cada decisión BET produce exactamente uno, también cuando falla.
type Execution struct {
	TraceID   string
	CreatedAt time.Time
	Venue     Venue
	Amount    float64 // stake enviado
	DryRun    bool
	Status    ExecutionStatus
	OrderID   string  // id de orden/apuesta asignado por el venue
	Shares    float64 // shares llenadas; 0 = el venue no lo informó
	Error     string  // descripción del fallo cuando Status es failed
}

// Open devuelve true si la ejecución dejó una posición pendiente de
// resolver: llenada y con efecto real.
func (e Execution) Open() bool {
	return e.Status == ExecutionFilled && !e.DryRun
}

// OrderRequest describe una compra a ejecutar en un venue concreto.
type OrderRequest struct {
	Venue     Venue
	MarketID  string    // Manifold: contractId del bet
	TokenID   string    // Polymarket: token CLOB del lado apostado
	NegRisk   bool      // Polymarket: exchange neg-risk
	Direction Direction
	Price     float64 // precio límite del token comprado (no de YES)
	Amount    float64 // stake en la unidad del venue
}

// OrderResult es el resultado normalizado de una colocación.
type OrderResult struct {
	OrderID string
	Shares  float64 // shares llenadas; 0 si el venue no lo informa
	// Filled false con error nil significa fill-or-kill sin cruce:
	// resultado válido sin efecto.
	Filled bool
}
