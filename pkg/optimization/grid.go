package optimization

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Package optimization enumerates the parameter universe of a swarm strategy

// Dimension is one axis of the parameter grid
type Dimension interface {
	GetName() string
	Values() ([]float64, error)
	DefaultValue() float64
}

// Param is a stepped numeric range, inclusive of the last step
type Param struct {
	Name    string
	Default float64
	Min     float64
	Max     float64
	Step    float64
}

// GetName returns the parameter name
func (p Param) GetName() string { return p.Name }

// DefaultValue returns the parameter default
func (p Param) DefaultValue() float64 { return p.Default }

// Values expands the range into its grid points
func (p Param) Values() ([]float64, error) {
	if p.Step <= 0 {
		return nil, fmt.Errorf("param %s: step must be positive, got %v", p.Name, p.Step)
	}
	if p.Max < p.Min {
		return nil, fmt.Errorf("param %s: max %v is below min %v", p.Name, p.Max, p.Min)
	}

	count := int(math.Floor((p.Max-p.Min)/p.Step+1e-9)) + 1
	values := make([]float64, count)
	for k := range values {
		values[k] = roundGrid(p.Min + float64(k)*p.Step)
	}
	return values, nil
}

// ParamArray is an explicit list of values
type ParamArray struct {
	Name    string
	Options []float64
}

// GetName returns the parameter name
func (p ParamArray) GetName() string { return p.Name }

// DefaultValue returns the first option
func (p ParamArray) DefaultValue() float64 {
	if len(p.Options) == 0 {
		return math.NaN()
	}
	return p.Options[0]
}

// Values returns a copy of the options
func (p ParamArray) Values() ([]float64, error) {
	if len(p.Options) == 0 {
		return nil, fmt.Errorf("param %s: no values", p.Name)
	}
	out := make([]float64, len(p.Options))
	copy(out, p.Options)
	return out, nil
}

// ParamSet is one point of the grid, in dimension order
type ParamSet []float64

// Name returns the member identifier of the parameter set, e.g. "(1, 10, 20.5)"
func (p ParamSet) Name() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Int returns parameter i rounded to the nearest integer
func (p ParamSet) Int(i int) int {
	return int(math.Round(p[i]))
}

// Grid is the cartesian product of its dimensions
type Grid struct {
	Dimensions []Dimension
}

// NewGrid creates a grid over the given dimensions
func NewGrid(dims ...Dimension) *Grid {
	return &Grid{Dimensions: dims}
}

// Names returns the dimension names in order
func (g *Grid) Names() []string {
	names := make([]string, len(g.Dimensions))
	for i, d := range g.Dimensions {
		names[i] = d.GetName()
	}
	return names
}

// Defaults returns the default parameter set
func (g *Grid) Defaults() ParamSet {
	out := make(ParamSet, len(g.Dimensions))
	for i, d := range g.Dimensions {
		out[i] = d.DefaultValue()
	}
	return out
}

// Combinations enumerates every parameter set; the last dimension varies fastest
func (g *Grid) Combinations() ([]ParamSet, error) {
	if len(g.Dimensions) == 0 {
		return []ParamSet{{}}, nil
	}

	axes := make([][]float64, len(g.Dimensions))
	total := 1
	for i, d := range g.Dimensions {
		values, err := d.Values()
		if err != nil {
			return nil, err
		}
		axes[i] = values
		total *= len(values)
	}

	out := make([]ParamSet, 0, total)
	cursor := make([]int, len(axes))
	for {
		set := make(ParamSet, len(axes))
		for i, c := range cursor {
			set[i] = axes[i][c]
		}
		out = append(out, set)

		k := len(axes) - 1
		for k >= 0 {
			cursor[k]++
			if cursor[k] < len(axes[k]) {
				break
			}
			cursor[k] = 0
			k--
		}
		if k < 0 {
			return out, nil
		}
	}
}

// Filter returns the combinations whose member names are in keep, preserving grid order
func (g *Grid) Filter(keep []string) ([]ParamSet, error) {
	all, err := g.Combinations()
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		wanted[k] = struct{}{}
	}
	out := make([]ParamSet, 0, len(keep))
	for _, p := range all {
		if _, ok := wanted[p.Name()]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func roundGrid(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
