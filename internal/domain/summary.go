package domain

import "time"

// RunSummary agrega todo lo producido por un ciclo completo del agente.
type RunSummary struct {
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool

	MarketsFetched int // candidatos crudos de ambos venues
	Eligible       int // tras el filtro de elegibilidad
	Estimated      int // estimaciones pedidas al servicio externo
	FetchErrors    int // fetches de candidatos fallidos

	Decisions   []Decision
	Executions  []Execution
	Resolutions []Resolution
	Snapshots   int
}

// CountByAction devuelve cuántas decisiones terminaron en la acción dada.
func (s RunSummary) CountByAction(a Action) int {
	var n int
	for _, d := range s.Decisions {
		if d.Action == a {
			n++
		}
	}
	return n
}

// CountByStatus devuelve cuántas ejecuciones terminaron en el estado dado.
func (s RunSummary) CountByStatus(st ExecutionStatus) int {
	var n int
	for _, e := range s.Executions {
		if e.Status == st {
			n++
		}
	}
	return n
}
