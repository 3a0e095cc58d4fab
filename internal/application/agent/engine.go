// Package agent orquesta el ciclo completo del bot: reconciliar posiciones
// abiertas, descubrir candidatos en ambos venues, estimar, decidir, ejecutar
// y fotografiar las posiciones que siguen vivas. Cada paso es resiliente por
// ítem: un mercado o trace que falla se loggea y no tumba el batch.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

const (
	defaultInterval       = 15 * time.Minute
	defaultCandidateLimit = 100
	defaultTopN           = 10
	defaultEdgeThreshold  = 0.10
	defaultPriceTolerance = 0.02
)

// Config contiene la configuración del ciclo del agente.
type Config struct {
	Interval       time.Duration
	CandidateLimit int     // candidatos pedidos a cada venue
	TopN           int     // cuántos candidatos se estiman por ciclo
	EdgeThreshold  float64 // edge mínimo para apostar
	PriceTolerance float64 // margen sobre el precio de decisión en el pre-check del book
	DryRun         bool
	Once           bool // un solo ciclo y salir
	RedeemEnabled  bool // reclamar payouts on-chain al reconciliar

	// Fuentes de datos estructuradas disponibles para corroborar
	// estimaciones de baja confianza.
	HasSportsData  bool
	HasFinanceData bool

	Filter domain.FilterConfig
	Sizing domain.SizingConfig
}

// Deps agrupa las dependencias inyectadas del Engine. Books puede ser nil
// (sin pre-check de libro); el resto es obligatorio para el modo que lo usa.
type Deps struct {
	Markets    map[domain.Venue]ports.MarketProvider
	Executors  map[domain.Venue]ports.OrderExecutor
	Books      ports.BookProvider
	Resolution ports.ResolutionSource
	Estimator  ports.Estimator
	Store      ports.RecordStore
	Notifier   ports.Notifier
}

// Engine ejecuta ciclos del agente sobre los puertos inyectados.
type Engine struct {
	cfg        Config
	markets    map[domain.Venue]ports.MarketProvider
	executors  map[domain.Venue]ports.OrderExecutor
	books      ports.BookProvider
	resolution ports.ResolutionSource
	estimator  ports.Estimator
	store      ports.RecordStore
	notifier   ports.Notifier
	filter     *domain.Filter

	// feedback es el texto de calibración que acompaña cada estimación
	// del ciclo en curso. Se recalcula al inicio de cada ciclo.
	feedback string

	now        func() time.Time
	newTraceID func() string
}

// New construye el Engine aplicando defaults a la configuración.
func New(cfg Config, deps Deps) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = defaultCandidateLimit
	}
	if cfg.TopN <= 0 {
		cfg.TopN = defaultTopN
	}
	if cfg.EdgeThreshold <= 0 {
		cfg.EdgeThreshold = defaultEdgeThreshold
	}
	if cfg.PriceTolerance <= 0 {
		cfg.PriceTolerance = defaultPriceTolerance
	}
	return &Engine{
		cfg:        cfg,
		markets:    deps.Markets,
		executors:  deps.Executors,
		books:      deps.Books,
		resolution: deps.Resolution,
		estimator:  deps.Estimator,
		store:      deps.Store,
		notifier:   deps.Notifier,
		filter:     domain.NewFilter(cfg.Filter),
		now:        time.Now,
		newTraceID: uuid.NewString,
	}
}

// Run ejecuta un ciclo inmediato y después repite cada Interval hasta que el
// contexto se cancele. Con Once activo corre un único ciclo.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("agent starting",
		"interval", e.cfg.Interval,
		"dry_run", e.cfg.DryRun,
		"top_n", e.cfg.TopN,
	)

	if err := e.runCycle(ctx); err != nil {
		if e.cfg.Once {
			return err
		}
		slog.Error("cycle failed", "err", err)
	}
	if e.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("agent stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := e.runCycle(ctx); err != nil {
				slog.Error("cycle failed", "err", err)
			}
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) error {
	summary, err := e.RunOnce(ctx)
	if err != nil {
		return err
	}
	if err := e.notifier.Notify(ctx, summary); err != nil {
		slog.Warn("notify failed", "err", err)
	}
	slog.Info("cycle complete",
		"markets", summary.MarketsFetched,
		"eligible", summary.Eligible,
		"bets", summary.CountByAction(domain.ActionBet),
		"resolved", len(summary.Resolutions),
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return nil
}

// RunOnce corre un ciclo completo del agente y devuelve el resumen. Solo un
// fallo del almacén al cargar estado es fatal; los fallos de red por venue,
// mercado o trace se loggean y el ciclo sigue.
func (e *Engine) RunOnce(ctx context.Context) (domain.RunSummary, error) {
	start := e.now()
	summary := domain.RunSummary{StartedAt: start, DryRun: e.cfg.DryRun}

	// 1. Reconciliación: cerrar posiciones ya resueltas antes de decidir.
	resolutions, err := e.reconcile(ctx)
	if err != nil {
		return summary, fmt.Errorf("agent.RunOnce: %w", err)
	}
	summary.Resolutions = resolutions

	// 2. Feedback: recalcular la calibración con el log ya actualizado.
	e.refreshFeedback(ctx)

	// 3. Descubrimiento: candidatos de ambos venues en paralelo.
	markets, fetchErrors := e.fetchCandidates(ctx)
	summary.MarketsFetched = len(markets)
	summary.FetchErrors = fetchErrors

	// 4. Elegibilidad: filtrar y quedarse con los que resuelven antes.
	eligible := e.filter.Apply(markets)
	summary.Eligible = len(eligible)
	top := e.filter.Rank(eligible)
	if len(top) > e.cfg.TopN {
		top = top[:e.cfg.TopN]
	}
	summary.Estimated = len(top)

	// 5. Decisión: estimar y clasificar; una decisión por candidato.
	summary.Decisions = e.decideAll(ctx, top)

	// 6. Ejecución: despachar las decisiones BET.
	summary.Executions = e.dispatchAll(ctx, summary.Decisions)

	// 7. Snapshot: mark-to-market de las posiciones que siguen abiertas.
	summary.Snapshots = e.snapshotOpen(ctx)

	summary.Duration = e.now().Sub(start)
	return summary, nil
}

// fetchCandidates pide candidatos a cada venue en paralelo. Un venue caído
// no bloquea al otro: cuenta como error de fetch y el ciclo sigue.
func (e *Engine) fetchCandidates(ctx context.Context) ([]domain.Market, int) {
	type venueResult struct {
		venue   domain.Venue
		markets []domain.Market
		err     error
	}

	results := make(chan venueResult, len(e.markets))
	var wg sync.WaitGroup
	for venue, provider := range e.markets {
		wg.Add(1)
		go func(venue domain.Venue, provider ports.MarketProvider) {
			defer wg.Done()
			ms, err := provider.FetchCandidateMarkets(ctx, e.cfg.CandidateLimit)
			results <- venueResult{venue: venue, markets: ms, err: err}
		}(venue, provider)
	}
	wg.Wait()
	close(results)

	var all []domain.Market
	fetchErrors := 0
	for r := range results {
		if r.err != nil {
			slog.Warn("fetch candidates failed", "venue", r.venue, "err", r.err)
			fetchErrors++
			continue
		}
		slog.Debug("candidates fetched", "venue", r.venue, "count", len(r.markets))
		all = append(all, r.markets...)
	}
	return all, fetchErrors
}

// shortID recorta un trace id para los logs.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
