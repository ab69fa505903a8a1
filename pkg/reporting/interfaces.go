package reporting

import (
	"io"
)

// Package reporting renders swarm backtest results to the console and to files

// ConsoleReporter prints a run to a terminal
type ConsoleReporter interface {
	OutputResults(w io.Writer, report *RunReport)
}

// FileReporter writes a run to files
type FileReporter interface {
	WriteMembersCSV(report *RunReport, path string) error
	WriteEquityCSV(report *RunReport, path string) error
	WriteXLSX(report *RunReport, path string) error
	WriteSummaryJSON(report *RunReport, path string) error
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	NumberStyle   int
	PercentStyle  int
	BaseStyle     int
	DateStyle     int
	PickedStyle   int
	NegativeStyle int
}

// ReportingConfig selects which outputs are produced
type ReportingConfig struct {
	EnableConsole bool
	EnableFiles   bool
	// OutputDirectory is the root under which each run gets its own directory
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
	// TopMembers limits the console member table; 0 prints every member
	TopMembers int
}
