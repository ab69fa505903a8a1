package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Output file names inside a run directory
const (
	MembersFile  = "members.csv"
	EquityFile   = "equity.csv"
	SummaryFile  = "summary.json"
	WorkbookFile = "swarm.xlsx"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// GetDefaultOutputDir returns <root>/<strategy>_<data file stem>; an empty
// root means "results"
func (p *DefaultPathManager) GetDefaultOutputDir(root, strategyName, dataFile string) string {
	if root == "" {
		root = "results"
	}
	s := strings.ToLower(strings.TrimSpace(strategyName))
	if s == "" {
		s = "unknown"
	}
	stem := strings.TrimSuffix(filepath.Base(strings.TrimSpace(dataFile)), filepath.Ext(dataFile))
	if stem == "" || stem == "." {
		stem = "data"
	}
	return filepath.Join(root, fmt.Sprintf("%s_%s", s, stem))
}

// EnsureDirectoryExists creates the parent directory of path if needed
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// DefaultOutputDir is a convenience function using the default path manager
func DefaultOutputDir(strategyName, dataFile string) string {
	return NewDefaultPathManager().GetDefaultOutputDir("", strategyName, dataFile)
}

// EnsureDirectoryExists is a convenience function using the default path manager
func EnsureDirectoryExists(path string) error {
	return NewDefaultPathManager().EnsureDirectoryExists(path)
}
