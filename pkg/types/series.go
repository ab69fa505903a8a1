package types

import (
	"math"
	"time"
)

// Series is an ordered sequence of numeric values, one per bar, keyed by a
// monotonically increasing time index
type Series struct {
	Index  []time.Time
	Values []float64
}

// Flags is a {0,1} series sharing the same index layout as Series
type Flags struct {
	Index  []time.Time
	Values []uint8
}

// NewSeries creates a zero-filled series over the given index
func NewSeries(index []time.Time) Series {
	return Series{Index: index, Values: make([]float64, len(index))}
}

// NewFlags creates an all-zero flag series over the given index
func NewFlags(index []time.Time) Flags {
	return Flags{Index: index, Values: make([]uint8, len(index))}
}

// FlagsFromBools converts a boolean slice into a flag series
func FlagsFromBools(index []time.Time, values []bool) Flags {
	f := NewFlags(index)
	for i, v := range values {
		if v {
			f.Values[i] = 1
		}
	}
	return f
}

// Len returns the number of bars
func (s Series) Len() int { return len(s.Values) }

// Len returns the number of bars
func (f Flags) Len() int { return len(f.Values) }

// At returns the flag at bar i as a bool
func (f Flags) At(i int) bool { return f.Values[i] != 0 }

// Copy returns a deep copy of the values; the index is shared because it is never mutated
func (s Series) Copy() Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	return Series{Index: s.Index, Values: values}
}

// Copy returns a deep copy of the flag values
func (f Flags) Copy() Flags {
	values := make([]uint8, len(f.Values))
	copy(values, f.Values)
	return Flags{Index: f.Index, Values: values}
}

// And returns the bar-wise logical AND of two aligned flag series
func (f Flags) And(other Flags) Flags {
	out := NewFlags(f.Index)
	for i := range f.Values {
		if f.Values[i] != 0 && other.Values[i] != 0 {
			out.Values[i] = 1
		}
	}
	return out
}

// Sum returns the number of set bars
func (f Flags) Sum() int {
	n := 0
	for _, v := range f.Values {
		if v != 0 {
			n++
		}
	}
	return n
}

// Last returns the final value of the series or NaN when empty
func (s Series) Last() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// SameIndex reports whether two time indices are identical
func SameIndex(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Aligned reports whether the series shares the index of other and its value
// count matches the index length
func (s Series) Aligned(index []time.Time) bool {
	return len(s.Values) == len(s.Index) && SameIndex(s.Index, index)
}

// Aligned reports whether the flags share the given index
func (f Flags) Aligned(index []time.Time) bool {
	return len(f.Values) == len(f.Index) && SameIndex(f.Index, index)
}

// DailyIndex builds a daily time index of n bars starting at start
func DailyIndex(start time.Time, n int) []time.Time {
	index := make([]time.Time, n)
	for i := range index {
		index[i] = start.AddDate(0, 0, i)
	}
	return index
}
