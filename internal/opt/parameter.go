// Package opt calibrates model parameters against observations with a
// genetic algorithm. The search space is declared per functional group and
// flattened into a deterministic gene vector; every score is a cost, lower
// is better.
package opt

import "fmt"

// Parameter is one searchable coefficient with its bounds.
type Parameter struct {
	Name string
	Low  float64
	High float64
}

func (p Parameter) validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter name is required")
	}
	if !(p.Low < p.High) {
		return fmt.Errorf("parameter %s: bounds must satisfy low < high, got [%v, %v]", p.Name, p.Low, p.High)
	}
	return nil
}

// FunctionalGroup names the group whose parameters are searched.
type FunctionalGroup struct {
	Name       string
	Parameters []Parameter
}

// FunctionalGroupSet is the full search space. Group and parameter order is
// the flattening order, so two sets with the same declarations index their
// genes identically.
type FunctionalGroupSet struct {
	groups []FunctionalGroup
}

func NewFunctionalGroupSet(groups ...FunctionalGroup) (FunctionalGroupSet, error) {
	if len(groups) == 0 {
		return FunctionalGroupSet{}, fmt.Errorf("at least one functional group is required")
	}
	seenGroup := map[string]bool{}
	for _, g := range groups {
		if g.Name == "" {
			return FunctionalGroupSet{}, fmt.Errorf("functional group name is required")
		}
		if seenGroup[g.Name] {
			return FunctionalGroupSet{}, fmt.Errorf("duplicate functional group %q", g.Name)
		}
		seenGroup[g.Name] = true
		if len(g.Parameters) == 0 {
			return FunctionalGroupSet{}, fmt.Errorf("functional group %s has no parameters", g.Name)
		}
		seenParam := map[string]bool{}
		for _, p := range g.Parameters {
			if err := p.validate(); err != nil {
				return FunctionalGroupSet{}, fmt.Errorf("functional group %s: %w", g.Name, err)
			}
			if seenParam[p.Name] {
				return FunctionalGroupSet{}, fmt.Errorf("functional group %s: duplicate parameter %q", g.Name, p.Name)
			}
			seenParam[p.Name] = true
		}
	}
	return FunctionalGroupSet{groups: groups}, nil
}

// Gene is one flattened search dimension.
type Gene struct {
	Group     string
	Parameter string
	Low       float64
	High      float64
}

// Genes returns the flattened search dimensions in declaration order.
func (s FunctionalGroupSet) Genes() []Gene {
	var out []Gene
	for _, g := range s.groups {
		for _, p := range g.Parameters {
			out = append(out, Gene{Group: g.Name, Parameter: p.Name, Low: p.Low, High: p.High})
		}
	}
	return out
}

// Dimension is the gene vector length.
func (s FunctionalGroupSet) Dimension() int {
	n := 0
	for _, g := range s.groups {
		n += len(g.Parameters)
	}
	return n
}

// Unflatten maps a gene vector back to group -> parameter -> value.
func (s FunctionalGroupSet) Unflatten(genes []float64) (map[string]map[string]float64, error) {
	if len(genes) != s.Dimension() {
		return nil, fmt.Errorf("gene vector length %d does not match dimension %d", len(genes), s.Dimension())
	}
	out := make(map[string]map[string]float64, len(s.groups))
	i := 0
	for _, g := range s.groups {
		values := make(map[string]float64, len(g.Parameters))
		for _, p := range g.Parameters {
			values[p.Name] = genes[i]
			i++
		}
		out[g.Name] = values
	}
	return out, nil
}
