package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DefaultConsoleReporter implements console output functionality
type DefaultConsoleReporter struct {
	// TopMembers limits the member table; 0 prints every member
	TopMembers int
}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter(topMembers int) *DefaultConsoleReporter {
	return &DefaultConsoleReporter{TopMembers: topMembers}
}

// OutputResults prints the run summary, the best members and the ensemble
func (r *DefaultConsoleReporter) OutputResults(w io.Writer, report *RunReport) {
	s := report.Summarize()

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(w, "📊 SWARM BACKTEST RESULTS")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	summary := newTable(w)
	summary.AppendRows([]table.Row{
		{"Strategy", s.Strategy},
		{"Data", s.DataFile},
		{"Bars", s.Bars},
		{"Period", periodString(s)},
		{"Members", s.Members},
		{"Ever picked", s.EverPicked},
		{"Rebalances", s.Rebalances},
		{"Avg swarm profit", fmt.Sprintf("%.4f", s.AvgSwarmProfit)},
		{"Ensemble profit", fmt.Sprintf("%.4f", s.EnsembleProfit)},
		{"Ensemble max DD", fmt.Sprintf("%.4f", s.EnsembleMaxDD)},
		{"Ensemble trades", s.EnsembleTrades},
		{"Best member", fmt.Sprintf("%s (%.4f)", s.BestMember, s.BestProfit)},
	})
	summary.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 60, Align: text.AlignLeft},
	})
	summary.Render()

	rows := report.MemberRows()
	limit := len(rows)
	if r.TopMembers > 0 && r.TopMembers < limit {
		limit = r.TopMembers
	}
	if limit > 0 {
		fmt.Fprintf(w, "\n🏆 TOP %d MEMBERS BY NET PROFIT\n", limit)
		members := newTable(w)
		members.AppendHeader(table.Row{"#", "Member", "Net profit", "Trades", "Win rate", "Max DD", "Picked"})
		for i, row := range rows[:limit] {
			members.AppendRow(table.Row{
				i + 1,
				row.Name,
				fmt.Sprintf("%.4f", row.Stats.NetProfit),
				row.Stats.Count,
				fmt.Sprintf("%.1f%%", row.Stats.WinRate*100),
				fmt.Sprintf("%.4f", row.Stats.MaxDD),
				pickedString(row),
			})
		}
		members.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 48, Align: text.AlignLeft},
		})
		members.Render()
	}

	var picked []MemberRow
	for _, row := range rows {
		if row.Ensemble != nil {
			picked = append(picked, row)
		}
	}
	if len(picked) == 0 {
		fmt.Fprintln(w, "\n⚠️  No member was ever picked")
		return
	}

	fmt.Fprintf(w, "\n🎯 ENSEMBLE MEMBERS (%d)\n", len(picked))
	ens := newTable(w)
	ens.AppendHeader(table.Row{"Member", "Bars picked", "Net profit", "Trades", "Win rate", "Max DD"})
	for _, row := range picked {
		ens.AppendRow(table.Row{
			row.Name,
			row.BarsPicked,
			fmt.Sprintf("%.4f", row.Ensemble.NetProfit),
			row.Ensemble.Count,
			fmt.Sprintf("%.1f%%", row.Ensemble.WinRate*100),
			fmt.Sprintf("%.4f", row.Ensemble.MaxDD),
		})
	}
	ens.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 48, Align: text.AlignLeft},
	})
	ens.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func periodString(s Summary) string {
	if s.Bars == 0 {
		return "-"
	}
	return fmt.Sprintf("%s → %s", s.Start.Format("2006-01-02 15:04"), s.End.Format("2006-01-02 15:04"))
}

func pickedString(row MemberRow) string {
	if !row.Picked {
		return "-"
	}
	return fmt.Sprintf("✅ %d bars", row.BarsPicked)
}

// OutputConsole prints a run to stdout
func OutputConsole(report *RunReport) {
	NewDefaultConsoleReporter(0).OutputResults(os.Stdout, report)
}
