package swarm

import (
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/swarm-backtester/internal/backtest"
	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// Table is a time-indexed set of equal-length member columns (equity curves
// or ranks). Members keeps the column order.
type Table struct {
	Index   []time.Time
	Members []string
	Columns map[string][]float64
}

// NewTable creates an empty table over index
func NewTable(index []time.Time) *Table {
	return &Table{Index: index, Columns: make(map[string][]float64)}
}

// TableFromSweep builds the equity table from sweep results in member order
func TableFromSweep(res *backtest.SweepResult) (*Table, error) {
	t := NewTable(res.Index)
	for _, m := range res.Members {
		eq, ok := res.Equity(m)
		if !ok {
			return nil, fmt.Errorf("sweep result has no equity for member %s", m)
		}
		if err := t.Add(m, eq.Values); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Add appends a column
func (t *Table) Add(member string, values []float64) error {
	if len(values) != len(t.Index) {
		return fmt.Errorf("%w: member %s has %d values for %d bars", backtest.ErrMisalignedSeries, member, len(values), len(t.Index))
	}
	if _, exists := t.Columns[member]; exists {
		return fmt.Errorf("duplicate member %s", member)
	}
	t.Members = append(t.Members, member)
	t.Columns[member] = values
	return nil
}

// Len returns the number of bars
func (t *Table) Len() int { return len(t.Index) }

// Column returns a member column as a series sharing the table index
func (t *Table) Column(member string) types.Series {
	return types.Series{Index: t.Index, Values: t.Columns[member]}
}

// Row returns the values of bar i in member order
func (t *Table) Row(i int) []float64 {
	row := make([]float64, len(t.Members))
	for j, m := range t.Members {
		row[j] = t.Columns[m][i]
	}
	return row
}

func (t *Table) validate() error {
	if len(t.Members) == 0 {
		return fmt.Errorf("swarm table has no members")
	}
	for _, m := range t.Members {
		col, ok := t.Columns[m]
		if !ok {
			return fmt.Errorf("swarm table has no column for member %s", m)
		}
		if len(col) != len(t.Index) {
			return fmt.Errorf("%w: member %s has %d values for %d bars", backtest.ErrMisalignedSeries, m, len(col), len(t.Index))
		}
	}
	return nil
}

// PickMask records which members are selected at each bar
type PickMask struct {
	Index   []time.Time
	Members []string
	Columns map[string][]uint8
}

func newPickMask(index []time.Time, members []string) *PickMask {
	m := &PickMask{
		Index:   index,
		Members: append([]string(nil), members...),
		Columns: make(map[string][]uint8, len(members)),
	}
	for _, name := range members {
		m.Columns[name] = make([]uint8, len(index))
	}
	return m
}

// Flags returns a member column as a flag series
func (m *PickMask) Flags(member string) types.Flags {
	return types.Flags{Index: m.Index, Values: m.Columns[member]}
}

// PickedAt lists the members picked at bar i in member order
func (m *PickMask) PickedAt(i int) []string {
	var out []string
	for _, name := range m.Members {
		if m.Columns[name][i] != 0 {
			out = append(out, name)
		}
	}
	return out
}

// Count returns the number of members picked at bar i
func (m *PickMask) Count(i int) int {
	n := 0
	for _, name := range m.Members {
		if m.Columns[name][i] != 0 {
			n++
		}
	}
	return n
}

// dropNeverPicked removes columns that are zero on every bar
func (m *PickMask) dropNeverPicked() {
	kept := m.Members[:0]
	for _, name := range m.Members {
		col := m.Columns[name]
		picked := false
		for _, v := range col {
			if v != 0 {
				picked = true
				break
			}
		}
		if picked {
			kept = append(kept, name)
		} else {
			delete(m.Columns, name)
		}
	}
	m.Members = kept
}

// FlagsByMember returns every column keyed by member name
func (m *PickMask) FlagsByMember() map[string]types.Flags {
	out := make(map[string]types.Flags, len(m.Members))
	for _, name := range m.Members {
		out[name] = m.Flags(name)
	}
	return out
}

// AverageSwarm returns the cumulative sum of the per-bar mean equity change
// across members. Bar 0 is 0; NaN changes are skipped in the mean.
func AverageSwarm(t *Table) types.Series {
	out := types.NewSeries(t.Index)
	acc := 0.0
	for i := 1; i < t.Len(); i++ {
		sum, n := 0.0, 0
		for _, m := range t.Members {
			col := t.Columns[m]
			d := col[i] - col[i-1]
			if math.IsNaN(d) {
				continue
			}
			sum += d
			n++
		}
		if n > 0 {
			acc += sum / float64(n)
		}
		out.Values[i] = acc
	}
	return out
}
