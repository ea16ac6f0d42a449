// Package notify renders forecast and portfolio summaries to the operator's
// terminal.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/mdelacruz-oss/forecastbot/internal/domain"
	"github.com/mdelacruz-oss/forecastbot/internal/ports"
)

// Console implements ports.Notifier, writing to stdout by default.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

func (c *Console) NotifyForecast(_ context.Context, s ports.ForecastSummary) error {
	now := time.Now().Format("15:04:05")
	if len(s.Forecasts) == 0 {
		fmt.Fprintf(c.out, "[%s] %s — no forecasts produced\n", now, compactName(s.Market.Question, 40))
		return nil
	}

	if c.table {
		c.printFull(s)
	} else {
		c.printCompact(now, s)
	}
	return nil
}

func (c *Console) printCompact(now string, s ports.ForecastSummary) {
	ensemble := s.Forecasts[0].EnsembleProbability
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s → p=%s tier=%s models=%d",
		now, compactName(s.Market.Question, 40), ensemble.StringFixed(2), s.Forecasts[0].ConfidenceTier, len(s.Forecasts))

	switch {
	case s.Trade != nil:
		fmt.Fprintf(&sb, " | TRADED %s %s @ %s", s.Trade.Side, s.Trade.SizeUnits.StringFixed(2), s.Trade.Price.StringFixed(4))
	case s.Rejection != "":
		fmt.Fprintf(&sb, " | no trade: %s", s.Rejection)
	}
	fmt.Fprintln(c.out, sb.String())
}

func (c *Console) printFull(s ports.ForecastSummary) {
	fmt.Fprintf(c.out, "\n[%s] %s\n", time.Now().Format("15:04:05"), s.Market.Question)

	table := tablewriter.NewWriter(c.out)
	table.Header("Model", "Prompt", "Raw P", "Ensemble P", "Entropy", "Tier", "News")
	for _, f := range s.Forecasts {
		table.Append(
			f.Model,
			f.PromptVersion,
			f.RawProbability.StringFixed(3),
			f.EnsembleProbability.StringFixed(3),
			fmt.Sprintf("%.2f", f.Entropy),
			string(f.ConfidenceTier),
			fmt.Sprintf("%v", f.NewsUsed),
		)
	}
	table.Render()

	switch {
	case s.Trade != nil:
		fmt.Fprintf(c.out, "  TRADE: %s %s units @ %s  (edge=%s, kelly=%s, paper=%v)\n",
			s.Trade.Side, s.Trade.SizeUnits.StringFixed(2), s.Trade.Price.StringFixed(4),
			s.Trade.Edge.StringFixed(3), s.Trade.KellyFraction.StringFixed(3), s.Trade.IsPaper)
	case s.Rejection != "":
		fmt.Fprintf(c.out, "  NO TRADE: %s\n", s.Rejection)
	}
	fmt.Fprintln(c.out)
}

func (c *Console) NotifyPortfolio(_ context.Context, p domain.PortfolioState) error {
	fmt.Fprintf(c.out, "[%s] portfolio: cash=%s total_value=%s\n",
		time.Now().Format("15:04:05"), p.Cash.StringFixed(2), p.TotalValue.StringFixed(2))
	return nil
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
