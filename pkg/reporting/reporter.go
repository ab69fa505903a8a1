package reporting

import (
	"io"
	"path/filepath"
)

// DefaultReporter implements every console and file output
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	json    *DefaultJSONFormatter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a new default reporter with all functionality
func NewDefaultReporter(topMembers int) *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(topMembers),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		json:    NewDefaultJSONFormatter(topMembers),
		paths:   NewDefaultPathManager(),
	}
}

// Console output methods
func (r *DefaultReporter) OutputResults(w io.Writer, report *RunReport) {
	r.console.OutputResults(w, report)
}

// File output methods
func (r *DefaultReporter) WriteMembersCSV(report *RunReport, path string) error {
	return r.csv.WriteMembersCSV(report, path)
}

func (r *DefaultReporter) WriteEquityCSV(report *RunReport, path string) error {
	return r.csv.WriteEquityCSV(report, path)
}

func (r *DefaultReporter) WriteXLSX(report *RunReport, path string) error {
	return r.excel.WriteXLSX(report, path)
}

func (r *DefaultReporter) WriteSummaryJSON(report *RunReport, path string) error {
	return r.json.WriteSummaryJSON(report, path)
}

// Path management methods
func (r *DefaultReporter) GetDefaultOutputDir(root, strategyName, dataFile string) string {
	return r.paths.GetDefaultOutputDir(root, strategyName, dataFile)
}

// ReportingManager provides a high-level interface for all reporting needs
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
}

// NewReportingManager creates a new reporting manager with configuration
func NewReportingManager(config ReportingConfig) *ReportingManager {
	return &ReportingManager{
		reporter: NewDefaultReporter(config.TopMembers),
		config:   config,
	}
}

// OutputDir returns the run directory under the configured output root
func (m *ReportingManager) OutputDir(report *RunReport) string {
	return m.reporter.GetDefaultOutputDir(m.config.OutputDirectory, report.Strategy, report.DataFile)
}

// ReportResults outputs the run according to configuration and returns the
// paths of the files it wrote
func (m *ReportingManager) ReportResults(w io.Writer, report *RunReport) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.OutputResults(w, report)
	}
	if !m.config.EnableFiles {
		return nil, nil
	}

	outputDir := m.OutputDir(report)
	var written []string
	write := func(enabled bool, name string, fn func(*RunReport, string) error) error {
		if !enabled {
			return nil
		}
		path := filepath.Join(outputDir, name)
		if err := fn(report, path); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := write(m.config.CSVEnabled, MembersFile, m.reporter.WriteMembersCSV); err != nil {
		return written, err
	}
	if err := write(m.config.CSVEnabled, EquityFile, m.reporter.WriteEquityCSV); err != nil {
		return written, err
	}
	if err := write(m.config.ExcelEnabled, WorkbookFile, m.reporter.WriteXLSX); err != nil {
		return written, err
	}
	if err := write(m.config.JSONEnabled, SummaryFile, m.reporter.WriteSummaryJSON); err != nil {
		return written, err
	}
	return written, nil
}
