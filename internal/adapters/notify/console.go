package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Console implementa ports.Notifier: imprime el resumen de cada ciclo y,
// bajo demanda, el reporte de calibración completo.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Notify imprime el resumen del ciclo: una línea compacta siempre, la
// tabla de decisiones cuando hubo candidatos y las resoluciones nuevas.
func (c *Console) Notify(_ context.Context, s domain.RunSummary) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d mkts → elig:%d est:%d",
		s.StartedAt.Format("15:04:05"), s.MarketsFetched, s.Eligible, s.Estimated)
	if s.FetchErrors > 0 {
		fmt.Fprintf(&sb, " fetchErr:%d", s.FetchErrors)
	}

	fmt.Fprintf(&sb, " | BET:%d SKIP edge:%d kelly:%d conf:%d err:%d",
		s.CountByAction(domain.ActionBet),
		s.CountByAction(domain.ActionSkipLowEdge),
		s.CountByAction(domain.ActionSkipNegativeKelly),
		s.CountByAction(domain.ActionSkipLowConfidence),
		s.CountByAction(domain.ActionSkipError),
	)

	if len(s.Executions) > 0 {
		fmt.Fprintf(&sb, " | fill:%d nofill:%d fail:%d",
			s.CountByStatus(domain.ExecutionFilled),
			s.CountByStatus(domain.ExecutionUnfilled),
			s.CountByStatus(domain.ExecutionFailed),
		)
	}
	if len(s.Resolutions) > 0 {
		fmt.Fprintf(&sb, " | resolved:%d", len(s.Resolutions))
	}
	if s.Snapshots > 0 {
		fmt.Fprintf(&sb, " | snap:%d", s.Snapshots)
	}
	fmt.Fprintf(&sb, " (%.1fs)", s.Duration.Seconds())
	if s.DryRun {
		sb.WriteString(" [DRY-RUN]")
	}
	fmt.Fprintln(c.out, sb.String())

	if len(s.Decisions) > 0 {
		c.printDecisions(s.Decisions)
	}
	if len(s.Resolutions) > 0 {
		c.printResolutions(s.Resolutions)
	}
	return nil
}

// printDecisions imprime la tabla de candidatos evaluados, skips incluidos.
func (c *Console) printDecisions(decisions []domain.Decision) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Venue", "Market", "Prob", "Est", "Conf", "Edge", "Dir", "Stake", "Action")

	for i, d := range decisions {
		table.Append(
			fmt.Sprintf("%d", i+1),
			string(d.Venue),
			domain.TruncateQuestion(d.Question, d.MarketID, 38),
			fmt.Sprintf("%.2f", d.MarketProb),
			fmt.Sprintf("%.2f", d.Estimate),
			orDash(string(d.Confidence)),
			fmt.Sprintf("%.2f", d.Edge),
			orDash(string(d.Direction)),
			fmt.Sprintf("%.2f", d.Stake),
			string(d.Action),
		)
	}

	table.Render()
}

// printResolutions imprime una línea por apuesta resuelta en el ciclo.
func (c *Console) printResolutions(resolutions []domain.Resolution) {
	for _, r := range resolutions {
		mark := "✗"
		switch {
		case r.Outcome == domain.OutcomeCancel:
			mark = "·"
		case r.Won:
			mark = "✓"
		}
		fmt.Fprintf(c.out, "  %s %s %s %s→%s pnl %+.2f\n",
			mark, shortTrace(r.TraceID), r.Venue, orDash(string(r.Direction)), r.Outcome, r.Pnl)
	}
}

// PrintCalibrationReport imprime el reporte completo de calibración: los
// agregados, los buckets, el desglose por etiqueta y el texto de feedback
// tal como lo recibe el estimador.
func (c *Console) PrintCalibrationReport(r domain.CalibrationReport) {
	if r.Total == 0 && r.Cancelled == 0 {
		fmt.Fprintln(c.out, "\n  No resolved bets yet.")
		return
	}

	fmt.Fprintf(c.out, "\n=== CALIBRATION: %d resolved", r.Total)
	if r.Cancelled > 0 {
		fmt.Fprintf(c.out, " (+%d cancelled)", r.Cancelled)
	}
	fmt.Fprintln(c.out, " ===")

	fmt.Fprintf(c.out, "  win rate %.1f%% | Brier %.3f | PnL %+.2f | ROI %+.1f%%\n",
		r.WinRate*100, r.MeanBrier, r.TotalPnl, r.ROI*100)

	if len(r.Buckets) > 0 {
		fmt.Fprintln(c.out, "\n  Buckets (predicted side probability):")
		table := tablewriter.NewWriter(c.out)
		table.Header("Range", "N", "Predicted", "Won", "Gap")
		for _, b := range r.Buckets {
			gap := fmt.Sprintf("%+.0fpt", b.Overconfidence*100)
			if b.Actionable() {
				gap += " !"
			}
			table.Append(
				fmt.Sprintf("%.0f-%.0f%%", b.Low*100, b.High*100),
				fmt.Sprintf("%d", b.N),
				fmt.Sprintf("%.0f%%", b.MeanPredicted*100),
				fmt.Sprintf("%.0f%%", b.WinRate*100),
				gap,
			)
		}
		table.Render()
	}

	if len(r.ByLabel) > 0 {
		fmt.Fprintln(c.out, "\n  By confidence label:")
		table := tablewriter.NewWriter(c.out)
		table.Header("Label", "N", "Win", "Brier", "PnL", "ROI")
		for _, ls := range r.ByLabel {
			table.Append(
				string(ls.Label),
				fmt.Sprintf("%d", ls.N),
				fmt.Sprintf("%.0f%%", ls.WinRate*100),
				fmt.Sprintf("%.3f", ls.MeanBrier),
				fmt.Sprintf("%+.2f", ls.Pnl),
				fmt.Sprintf("%+.1f%%", ls.ROI*100),
			)
		}
		table.Render()
	}

	if r.Recent.N > 0 {
		fmt.Fprintf(c.out, "\n  Last %d: win rate %.1f%% | Brier %.3f | ROI %+.1f%%\n",
			r.Recent.N, r.Recent.WinRate*100, r.Recent.MeanBrier, r.Recent.ROI*100)
	}

	fmt.Fprintln(c.out, "\n  Feedback fed to the estimator:")
	for _, line := range strings.Split(domain.FeedbackText(r), "\n") {
		fmt.Fprintf(c.out, "  > %s\n", line)
	}
	fmt.Fprintln(c.out)
}

// --- helpers ---

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortTrace(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
