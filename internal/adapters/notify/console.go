package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

// Console implementa ports.Notifier.
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

// ReportTick imprime una fila por posición evaluada más la fila de totales.
// Las posiciones con acción SELL llevan una fila extra con la razón del
// trigger debajo de la suya.
func (c *Console) ReportTick(_ context.Context, reports []domain.PositionReport) error {
	now := time.Now().Format("2006-01-02 15:04:05")

	if len(reports) == 0 {
		fmt.Fprintf(c.out, "[%s] no open positions\n", now)
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] %d open positions\n", now, len(reports))

	table := tablewriter.NewWriter(c.out)
	table.Header("OrderID", "Market", "Side", "Shares", "Ask/Cost", "Bid/Value", "P&L")

	var totalCost, totalValue float64
	for _, r := range reports {
		totalCost += r.Cost
		totalValue += r.Value

		table.Append(
			shortID(r.OrderID),
			truncate(r.Question, 28),
			r.Side,
			fmt.Sprintf("%.6f", r.Quantity),
			fmt.Sprintf("%.2f/%.2f", r.EntryPrice, r.Cost),
			bidValueCell(r),
			pnlCell(r),
		)

		if r.Action == domain.ActionSell {
			table.Append("", ">>> "+r.Reason, "", "", "", "", "")
		}
	}

	totalPnLPct := 0.0
	if totalCost > 0 {
		totalPnLPct = (totalValue - totalCost) / totalCost * 100
	}
	table.Append(
		"TOTAL", "", "", "",
		fmt.Sprintf("%.2f", totalCost),
		fmt.Sprintf("%.2f", totalValue),
		fmt.Sprintf("%+.1f%%", totalPnLPct),
	)

	table.Render()
	return nil
}

// bidValueCell formatea bid/value, o "-" si ningún oráculo resolvió precio.
func bidValueCell(r domain.PositionReport) string {
	if !r.PriceKnown {
		return "-"
	}
	return fmt.Sprintf("%.2f/%.2f", r.CurrentPrice, r.Value)
}

func pnlCell(r domain.PositionReport) string {
	if !r.PriceKnown {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", r.PnLPct*100)
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
