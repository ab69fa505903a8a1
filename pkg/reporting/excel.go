package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/swarm-backtester/internal/backtest"
)

// Workbook sheet names
const (
	SummarySheet = "Summary"
	MembersSheet = "Members"
	EquitySheet  = "Equity"
	PicksSheet   = "Picks"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteXLSX writes the run workbook with summary, member, equity and pick sheets
func (r *DefaultExcelReporter) WriteXLSX(report *RunReport, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), SummarySheet); err != nil {
		return err
	}
	for _, name := range []string{MembersSheet, EquitySheet, PicksSheet} {
		if _, err := fx.NewSheet(name); err != nil {
			return err
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, report, styles); err != nil {
		return err
	}
	if err := r.writeMembersSheet(fx, report, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, report, styles); err != nil {
		return err
	}
	if err := r.writePicksSheet(fx, report, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "E0E0E0", Style: 1},
	{Type: "right", Color: "E0E0E0", Style: 1},
	{Type: "bottom", Color: "E0E0E0", Style: 1},
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	// Dark slate header with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.NumberStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4, // #,##0.00
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.NegativeStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10, // 0.00%
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: thinBorder})
	if err != nil {
		return styles, err
	}

	styles.DateStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 22, // m/d/yy h:mm
		Border: thinBorder,
	})
	if err != nil {
		return styles, err
	}

	// Light green fill for picked members
	styles.PickedStyle, err = fx.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E6FFE6"}, Pattern: 1},
		Border: thinBorder,
	})
	if err != nil {
		return styles, err
	}

	return styles, nil
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return fx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setCell(fx *excelize.File, sheet string, col, row int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, cell, value); err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, cell, cell, style)
}

func (r *DefaultExcelReporter) numberStyle(styles ExcelStyles, v float64) int {
	if v < 0 {
		return styles.NegativeStyle
	}
	return styles.NumberStyle
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, report *RunReport, styles ExcelStyles) error {
	s := report.Summarize()
	if err := writeHeader(fx, SummarySheet, []string{"Metric", "Value"}, styles.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(SummarySheet, "A", "A", 20)
	fx.SetColWidth(SummarySheet, "B", "B", 48)

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Run", s.RunID, styles.BaseStyle},
		{"Strategy", s.Strategy, styles.BaseStyle},
		{"Data file", s.DataFile, styles.BaseStyle},
		{"Generated", s.GeneratedAt, styles.DateStyle},
		{"Bars", s.Bars, styles.BaseStyle},
		{"Start", s.Start, styles.DateStyle},
		{"End", s.End, styles.DateStyle},
		{"Members", s.Members, styles.BaseStyle},
		{"Ever picked", s.EverPicked, styles.BaseStyle},
		{"Rebalances", s.Rebalances, styles.BaseStyle},
		{"Avg swarm profit", s.AvgSwarmProfit, r.numberStyle(styles, s.AvgSwarmProfit)},
		{"Ensemble profit", s.EnsembleProfit, r.numberStyle(styles, s.EnsembleProfit)},
		{"Ensemble max DD", s.EnsembleMaxDD, r.numberStyle(styles, s.EnsembleMaxDD)},
		{"Ensemble trades", s.EnsembleTrades, styles.BaseStyle},
		{"Best member", s.BestMember, styles.BaseStyle},
		{"Best profit", s.BestProfit, r.numberStyle(styles, s.BestProfit)},
	}
	for i, row := range rows {
		if err := setCell(fx, SummarySheet, 1, i+2, row.label, styles.BaseStyle); err != nil {
			return err
		}
		if err := setCell(fx, SummarySheet, 2, i+2, row.value, row.style); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeMembersSheet(fx *excelize.File, report *RunReport, styles ExcelStyles) error {
	headers := append([]string{"member", "picked", "bars_picked"}, backtest.StatKeys...)
	if err := writeHeader(fx, MembersSheet, headers, styles.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(MembersSheet, "A", "A", 36)
	fx.SetColWidth(MembersSheet, "B", "M", 14)

	for i, row := range report.MemberRows() {
		line := i + 2
		nameStyle := styles.BaseStyle
		if row.Picked {
			nameStyle = styles.PickedStyle
		}
		if err := setCell(fx, MembersSheet, 1, line, row.Name, nameStyle); err != nil {
			return err
		}
		if err := setCell(fx, MembersSheet, 2, line, row.Picked, styles.BaseStyle); err != nil {
			return err
		}
		if err := setCell(fx, MembersSheet, 3, line, row.BarsPicked, styles.BaseStyle); err != nil {
			return err
		}
		m := row.Stats.Map()
		for j, k := range backtest.StatKeys {
			style := r.numberStyle(styles, m[k])
			if k == "winrate" {
				style = styles.PercentStyle
			}
			if err := setCell(fx, MembersSheet, 4+j, line, m[k], style); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, report *RunReport, styles ExcelStyles) error {
	if err := writeHeader(fx, EquitySheet, []string{"timestamp", "average", "ensemble", "picked_count", "rebalance"}, styles.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(EquitySheet, "A", "A", 20)
	fx.SetColWidth(EquitySheet, "B", "E", 14)

	for i, row := range report.EquityRows() {
		line := i + 2
		if err := setCell(fx, EquitySheet, 1, line, row.Time, styles.DateStyle); err != nil {
			return err
		}
		if err := setCell(fx, EquitySheet, 2, line, row.Average, r.numberStyle(styles, row.Average)); err != nil {
			return err
		}
		if err := setCell(fx, EquitySheet, 3, line, row.Ensemble, r.numberStyle(styles, row.Ensemble)); err != nil {
			return err
		}
		if err := setCell(fx, EquitySheet, 4, line, row.Picked, styles.BaseStyle); err != nil {
			return err
		}
		if err := setCell(fx, EquitySheet, 5, line, row.Rebal, styles.BaseStyle); err != nil {
			return err
		}
	}
	return nil
}

// writePicksSheet lists the picked members at every rebalance bar
func (r *DefaultExcelReporter) writePicksSheet(fx *excelize.File, report *RunReport, styles ExcelStyles) error {
	if err := writeHeader(fx, PicksSheet, []string{"timestamp", "count", "members"}, styles.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(PicksSheet, "A", "A", 20)
	fx.SetColWidth(PicksSheet, "B", "B", 8)
	fx.SetColWidth(PicksSheet, "C", "C", 80)

	line := 2
	for _, p := range report.Rebalances() {
		if err := setCell(fx, PicksSheet, 1, line, p.Time, styles.DateStyle); err != nil {
			return err
		}
		if err := setCell(fx, PicksSheet, 2, line, len(p.Members), styles.BaseStyle); err != nil {
			return err
		}
		if err := setCell(fx, PicksSheet, 3, line, joinMembers(p.Members), styles.BaseStyle); err != nil {
			return err
		}
		line++
	}
	return nil
}

// WriteXLSX is a convenience function using the default reporter
func WriteXLSX(report *RunReport, path string) error {
	return NewDefaultExcelReporter().WriteXLSX(report, path)
}
