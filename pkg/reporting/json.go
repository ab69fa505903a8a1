package reporting

import (
	"encoding/json"
	"os"
)

// summaryDocument is the summary.json layout
type summaryDocument struct {
	Summary Summary         `json:"summary"`
	Picked  []pickedMember  `json:"picked"`
	Top     []memberSummary `json:"top"`
}

type memberSummary struct {
	Name      string  `json:"name"`
	NetProfit float64 `json:"netprofit"`
	Count     int     `json:"count"`
	WinRate   float64 `json:"winrate"`
	MaxDD     float64 `json:"maxdd"`
}

type pickedMember struct {
	memberSummary
	BarsPicked int `json:"bars_picked"`
}

// DefaultJSONFormatter implements JSON output functionality
type DefaultJSONFormatter struct {
	TopMembers int
}

// NewDefaultJSONFormatter creates a new JSON formatter
func NewDefaultJSONFormatter(topMembers int) *DefaultJSONFormatter {
	return &DefaultJSONFormatter{TopMembers: topMembers}
}

// Format renders the run summary as indented JSON
func (f *DefaultJSONFormatter) Format(report *RunReport) ([]byte, error) {
	doc := summaryDocument{
		Summary: report.Summarize(),
		Picked:  []pickedMember{},
		Top:     []memberSummary{},
	}
	rows := report.MemberRows()
	for i, row := range rows {
		if f.TopMembers <= 0 || i < f.TopMembers {
			doc.Top = append(doc.Top, toMemberSummary(row.Name, row.Stats.NetProfit, row.Stats.Count, row.Stats.WinRate, row.Stats.MaxDD))
		}
		if row.Ensemble != nil {
			e := row.Ensemble
			doc.Picked = append(doc.Picked, pickedMember{
				memberSummary: toMemberSummary(row.Name, e.NetProfit, e.Count, e.WinRate, e.MaxDD),
				BarsPicked:    row.BarsPicked,
			})
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

func toMemberSummary(name string, profit float64, count int, winRate, maxDD float64) memberSummary {
	return memberSummary{Name: name, NetProfit: profit, Count: count, WinRate: winRate, MaxDD: maxDD}
}

// WriteSummaryJSON writes summary.json
func (f *DefaultJSONFormatter) WriteSummaryJSON(report *RunReport, path string) error {
	data, err := f.Format(report)
	if err != nil {
		return err
	}
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WriteSummaryJSON is a convenience function using the default formatter
func WriteSummaryJSON(report *RunReport, path string) error {
	return NewDefaultJSONFormatter(0).WriteSummaryJSON(report, path)
}
