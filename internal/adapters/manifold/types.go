package manifold

// DTOs raw de la API v0 de Manifold. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// manifoldMarket es un LiteMarket de GET /markets o GET /market/{id}.
// Los timestamps vienen en milisegundos Unix.
type manifoldMarket struct {
	ID                    string  `json:"id"`
	Question              string  `json:"question"`
	URL                   string  `json:"url"`
	OutcomeType           string  `json:"outcomeType"` // BINARY, MULTIPLE_CHOICE, ...
	Mechanism             string  `json:"mechanism"`   // cpmm-1, dpm-2
	Probability           float64 `json:"probability"`
	TotalLiquidity        float64 `json:"totalLiquidity"`
	Volume                float64 `json:"volume"`
	CloseTime             int64   `json:"closeTime"`
	UniqueBettorCount     int     `json:"uniqueBettorCount"`
	IsResolved            bool    `json:"isResolved"`
	Resolution            string  `json:"resolution"`
	ResolutionProbability float64 `json:"resolutionProbability"`
}

// betRequest es el body de POST /bet.
type betRequest struct {
	Amount     float64 `json:"amount"`
	ContractID string  `json:"contractId"`
	Outcome    string  `json:"outcome"`
}

// betResponse es la apuesta creada que devuelve POST /bet. Según la
// versión de la API el identificador llega como betId o como id.
type betResponse struct {
	ID        string  `json:"id"`
	BetID     string  `json:"betId"`
	Shares    float64 `json:"shares"`
	Amount    float64 `json:"amount"`
	IsFilled  bool    `json:"isFilled"`
	ProbAfter float64 `json:"probAfter"`
}

// userResponse es el usuario autenticado de GET /me.
type userResponse struct {
	ID      string  `json:"id"`
	Balance float64 `json:"balance"`
}
