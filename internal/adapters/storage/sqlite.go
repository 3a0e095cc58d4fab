package storage

// sqlite.go — los cuatro streams append-only del agente.
//
// Estrategia:
//   - `decisions`: una fila por candidato evaluado, también los skips.
//     PRIMARY KEY trace_id: el clasificador emite exactamente una.
//   - `executions`: una fila por intento de ejecución de una decisión BET.
//   - `resolutions`: una fila por apuesta resuelta. PRIMARY KEY trace_id:
//     el reconciliador trata el stream como un set.
//   - `snapshots`: fotos mark-to-market de posiciones abiertas; muchas por
//     trace hasta que llega la resolución.
//   - Solo INSERT y SELECT. Nada se actualiza ni se borra: el histórico
//     completo es el producto, los agregados se recalculan al leer.
//   - Tiempos como texto UTC con fracción de ancho fijo: el orden
//     lexicográfico de la columna es el orden cronológico.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Pista de auditoría completa: una decisión por candidato, skips incluidos
CREATE TABLE IF NOT EXISTS decisions (
    trace_id     TEXT PRIMARY KEY,
    created_at   TEXT NOT NULL,
    venue        TEXT NOT NULL,
    market_id    TEXT NOT NULL,
    question     TEXT,
    market_prob  REAL NOT NULL DEFAULT 0,
    liquidity    REAL NOT NULL DEFAULT 0,
    estimate     REAL NOT NULL DEFAULT 0,
    confidence   TEXT,
    edge         REAL NOT NULL DEFAULT 0,
    direction    TEXT,
    kelly        REAL NOT NULL DEFAULT 0,
    fill_prob    REAL NOT NULL DEFAULT 0,
    stake        REAL NOT NULL DEFAULT 0,
    action       TEXT NOT NULL,
    condition_id TEXT,
    token_id     TEXT,
    neg_risk     INTEGER NOT NULL DEFAULT 0
);

-- Un intento de ejecución por decisión BET
CREATE TABLE IF NOT EXISTS executions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    trace_id   TEXT NOT NULL,
    created_at TEXT NOT NULL,
    venue      TEXT NOT NULL,
    amount     REAL NOT NULL DEFAULT 0,
    dry_run    INTEGER NOT NULL DEFAULT 0,
    status     TEXT NOT NULL,
    order_id   TEXT,
    shares     REAL NOT NULL DEFAULT 0,
    error      TEXT
);

-- Exactamente una resolución por trace
CREATE TABLE IF NOT EXISTS resolutions (
    trace_id    TEXT PRIMARY KEY,
    resolved_at TEXT NOT NULL,
    venue       TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    mkt_value   REAL NOT NULL DEFAULT 0,
    direction   TEXT,
    won         INTEGER NOT NULL DEFAULT 0,
    pnl         REAL NOT NULL DEFAULT 0,
    brier       REAL NOT NULL DEFAULT 0
);

-- Mark-to-market de posiciones abiertas
CREATE TABLE IF NOT EXISTS snapshots (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    trace_id       TEXT NOT NULL,
    created_at     TEXT NOT NULL,
    probability    REAL NOT NULL DEFAULT 0,
    unrealized_pnl REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_dec_action   ON decisions(action);
CREATE INDEX IF NOT EXISTS idx_exec_trace   ON executions(trace_id);
CREATE INDEX IF NOT EXISTS idx_exec_status  ON executions(status, dry_run);
CREATE INDEX IF NOT EXISTS idx_res_at       ON resolutions(resolved_at DESC);
CREATE INDEX IF NOT EXISTS idx_snap_trace   ON snapshots(trace_id);
`

// SQLiteStore implementa ports.RecordStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	// WAL permite leer el histórico mientras el ciclo escribe. El pragma
	// devuelve el modo resultante; en DBs en memoria queda en "memory".
	var mode string
	if err := db.QueryRow(`PRAGMA journal_mode=WAL`).Scan(&mode); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: set WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveDecision agrega un registro de decisión al stream.
func (s *SQLiteStore) SaveDecision(ctx context.Context, d domain.Decision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions
			(trace_id, created_at, venue, market_id, question,
			 market_prob, liquidity, estimate, confidence, edge,
			 direction, kelly, fill_prob, stake, action,
			 condition_id, token_id, neg_risk)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.TraceID, timeToDB(d.CreatedAt), string(d.Venue), d.MarketID, d.Question,
		d.MarketProb, d.Liquidity, d.Estimate, string(d.Confidence), d.Edge,
		string(d.Direction), d.Kelly, d.FillProb, d.Stake, string(d.Action),
		d.ConditionID, d.TokenID, boolToInt(d.NegRisk),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveDecision: insert %s: %w", d.TraceID, err)
	}
	return nil
}

// SaveExecution agrega un registro de ejecución al stream.
func (s *SQLiteStore) SaveExecution(ctx context.Context, e domain.Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
			(trace_id, created_at, venue, amount, dry_run, status, order_id, shares, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.TraceID, timeToDB(e.CreatedAt), string(e.Venue), e.Amount,
		boolToInt(e.DryRun), string(e.Status), e.OrderID, e.Shares, e.Error,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveExecution: insert %s: %w", e.TraceID, err)
	}
	return nil
}

// SaveResolution agrega un registro de resolución. Un trace repetido viola
// la PRIMARY KEY y es error: el reconciliador filtra antes con
// GetResolvedTraceIDs.
func (s *SQLiteStore) SaveResolution(ctx context.Context, r domain.Resolution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions
			(trace_id, resolved_at, venue, outcome, mkt_value, direction, won, pnl, brier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.TraceID, timeToDB(r.ResolvedAt), string(r.Venue), string(r.Outcome),
		r.MktValue, string(r.Direction), boolToInt(r.Won), r.Pnl, r.Brier,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveResolution: insert %s: %w", r.TraceID, err)
	}
	return nil
}

// SaveSnapshot agrega una foto mark-to-market de una posición abierta.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap domain.PositionSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (trace_id, created_at, probability, unrealized_pnl)
		VALUES (?, ?, ?, ?)
	`,
		snap.TraceID, timeToDB(snap.CreatedAt), snap.Probability, snap.UnrealizedPnl,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshot: insert %s: %w", snap.TraceID, err)
	}
	return nil
}

// GetOpenExecutions devuelve las ejecuciones filled no dry-run, más viejas
// primero.
func (s *SQLiteStore) GetOpenExecutions(ctx context.Context) ([]domain.Execution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trace_id, created_at, venue, amount, dry_run, status, order_id, shares, error
		FROM executions
		WHERE status = ? AND dry_run = 0
		ORDER BY created_at ASC, id ASC
	`, string(domain.ExecutionFilled))
	if err != nil {
		return nil, fmt.Errorf("storage.GetOpenExecutions: query: %w", err)
	}
	defer rows.Close()

	var execs []domain.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.GetOpenExecutions: %w", err)
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// GetResolvedTraceIDs devuelve el set de trace IDs ya resueltos.
func (s *SQLiteStore) GetResolvedTraceIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT trace_id FROM resolutions`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetResolvedTraceIDs: query: %w", err)
	}
	defer rows.Close()

	resolved := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage.GetResolvedTraceIDs: scan: %w", err)
		}
		resolved[id] = true
	}
	return resolved, rows.Err()
}

// GetDecision devuelve la decisión de un trace; found false si no existe.
func (s *SQLiteStore) GetDecision(ctx context.Context, traceID string) (domain.Decision, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT trace_id, created_at, venue, market_id, question,
		       market_prob, liquidity, estimate, confidence, edge,
		       direction, kelly, fill_prob, stake, action,
		       condition_id, token_id, neg_risk
		FROM decisions
		WHERE trace_id = ?
	`, traceID)

	var d domain.Decision
	var createdAt, venue, confidence, direction, action string
	var negRisk int
	err := row.Scan(
		&d.TraceID, &createdAt, &venue, &d.MarketID, &d.Question,
		&d.MarketProb, &d.Liquidity, &d.Estimate, &confidence, &d.Edge,
		&direction, &d.Kelly, &d.FillProb, &d.Stake, &action,
		&d.ConditionID, &d.TokenID, &negRisk,
	)
	if err == sql.ErrNoRows {
		return domain.Decision{}, false, nil
	}
	if err != nil {
		return domain.Decision{}, false, fmt.Errorf("storage.GetDecision: scan %s: %w", traceID, err)
	}

	d.CreatedAt = timeFromDB(createdAt)
	d.Venue = domain.Venue(venue)
	d.Confidence = domain.ConfidenceLabel(confidence)
	d.Direction = domain.Direction(direction)
	d.Action = domain.Action(action)
	d.NegRisk = negRisk == 1
	return d, true, nil
}

// GetResolutions devuelve todas las resoluciones en orden cronológico.
// El orden importa: la ventana de tendencia del reporte toma las últimas.
func (s *SQLiteStore) GetResolutions(ctx context.Context) ([]domain.Resolution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trace_id, resolved_at, venue, outcome, mkt_value, direction, won, pnl, brier
		FROM resolutions
		ORDER BY resolved_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetResolutions: query: %w", err)
	}
	defer rows.Close()

	var resolutions []domain.Resolution
	for rows.Next() {
		var r domain.Resolution
		var resolvedAt, venue, outcome, direction string
		var won int
		if err := rows.Scan(
			&r.TraceID, &resolvedAt, &venue, &outcome, &r.MktValue,
			&direction, &won, &r.Pnl, &r.Brier,
		); err != nil {
			return nil, fmt.Errorf("storage.GetResolutions: scan: %w", err)
		}
		r.ResolvedAt = timeFromDB(resolvedAt)
		r.Venue = domain.Venue(venue)
		r.Outcome = domain.Outcome(outcome)
		r.Direction = domain.Direction(direction)
		r.Won = won == 1
		resolutions = append(resolutions, r)
	}
	return resolutions, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func scanExecution(rows *sql.Rows) (domain.Execution, error) {
	var e domain.Execution
	var createdAt, venue, status string
	var dryRun int
	if err := rows.Scan(
		&e.TraceID, &createdAt, &venue, &e.Amount, &dryRun,
		&status, &e.OrderID, &e.Shares, &e.Error,
	); err != nil {
		return domain.Execution{}, fmt.Errorf("scan execution: %w", err)
	}
	e.CreatedAt = timeFromDB(createdAt)
	e.Venue = domain.Venue(venue)
	e.DryRun = dryRun == 1
	e.Status = domain.ExecutionStatus(status)
	return e, nil
}

// timeLayout fija 9 dígitos de fracción: RFC3339Nano recorta ceros y
// rompería el orden lexicográfico.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timeToDB(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func timeFromDB(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
