package reporting

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/ducminhle1904/swarm-backtester/internal/backtest"
)

const timeLayout = "2006-01-02 15:04:05"

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteMembersCSV writes one row per member with its sweep statistics and
// its pick status, best net profit first
func (r *DefaultCSVReporter) WriteMembersCSV(report *RunReport, path string) error {
	header := append([]string{"member", "picked", "bars_picked"}, backtest.StatKeys...)
	header = append(header, "ensemble_netprofit", "ensemble_count")

	records := [][]string{header}
	for _, row := range report.MemberRows() {
		m := row.Stats.Map()
		rec := []string{row.Name, strconv.FormatBool(row.Picked), strconv.Itoa(row.BarsPicked)}
		for _, k := range backtest.StatKeys {
			rec = append(rec, formatFloat(m[k]))
		}
		if row.Ensemble != nil {
			rec = append(rec, formatFloat(row.Ensemble.NetProfit), strconv.Itoa(row.Ensemble.Count))
		} else {
			rec = append(rec, "", "")
		}
		records = append(records, rec)
	}
	return writeCSV(path, records)
}

// WriteEquityCSV writes the average swarm and ensemble equity per bar
func (r *DefaultCSVReporter) WriteEquityCSV(report *RunReport, path string) error {
	records := [][]string{{"timestamp", "average", "ensemble", "picked_count", "rebalance"}}
	for _, row := range report.EquityRows() {
		records = append(records, []string{
			row.Time.UTC().Format(time.RFC3339),
			formatFloat(row.Average),
			formatFloat(row.Ensemble),
			strconv.Itoa(row.Picked),
			strconv.FormatBool(row.Rebal),
		})
	}
	return writeCSV(path, records)
}

func writeCSV(path string, records [][]string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteMembersCSV is a convenience function using the default reporter
func WriteMembersCSV(report *RunReport, path string) error {
	return NewDefaultCSVReporter().WriteMembersCSV(report, path)
}

// WriteEquityCSV is a convenience function using the default reporter
func WriteEquityCSV(report *RunReport, path string) error {
	return NewDefaultCSVReporter().WriteEquityCSV(report, path)
}
