package theory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

//go:embed modes.json
var defaultModes []byte

// Production is one weighted alternative of a grammar rule.
type Production struct {
	To     []string `json:"to"`
	Weight float64  `json:"weight"`
}

// Mode is a seven-degree scale plus its melody grammar.
type Mode struct {
	Name      string                  `json:"name"`
	Intervals []int                   `json:"intervals"`
	Rules     map[string][]Production `json:"rules"`

	degree map[string]int
}

// Interval returns the semitone offset of a degree symbol.
func (m Mode) Interval(symbol string) (int, bool) {
	i, ok := m.degree[symbol]
	if !ok {
		return 0, false
	}
	return m.Intervals[i], true
}

// Modes is the mode table ordered brightest to darkest.
type Modes []Mode

type modesFile struct {
	Degrees []string `json:"degrees"`
	Modes   []Mode   `json:"modes"`
}

// DefaultModes returns the built-in table.
func DefaultModes() Modes {
	m, err := ParseModes(defaultModes)
	if err != nil {
		panic(fmt.Sprintf("theory: embedded modes: %v", err))
	}
	return m
}

// LoadModes reads a mode table from r.
func LoadModes(r io.Reader) (Modes, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseModes(data)
}

// ParseModes decodes and validates a mode table.
func ParseModes(data []byte) (Modes, error) {
	var f modesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse modes: %w", err)
	}
	if len(f.Degrees) != 7 {
		return nil, fmt.Errorf("modes: want 7 degree symbols, got %d", len(f.Degrees))
	}
	if f.Degrees[0] != TonicSymbol {
		return nil, fmt.Errorf("modes: first degree must be %q, got %q", TonicSymbol, f.Degrees[0])
	}
	if len(f.Modes) == 0 {
		return nil, fmt.Errorf("modes: table is empty")
	}

	degree := make(map[string]int, len(f.Degrees))
	for i, s := range f.Degrees {
		degree[s] = i
	}
	seen := make(map[string]bool)
	for i := range f.Modes {
		m := &f.Modes[i]
		m.degree = degree
		if m.Name == "" {
			return nil, fmt.Errorf("modes: entry %d has no name", i)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("modes: duplicate mode %q", m.Name)
		}
		seen[m.Name] = true
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("modes: %s: %w", m.Name, err)
		}
	}
	return Modes(f.Modes), nil
}

func (m Mode) validate() error {
	if len(m.Intervals) != 7 {
		return fmt.Errorf("want 7 intervals, got %d", len(m.Intervals))
	}
	if _, ok := m.Rules[TonicSymbol]; !ok {
		return fmt.Errorf("no rule for %q", TonicSymbol)
	}
	for sym, prods := range m.Rules {
		if _, ok := m.degree[sym]; !ok {
			return fmt.Errorf("rule for unknown symbol %q", sym)
		}
		if len(prods) == 0 {
			return fmt.Errorf("rule %q has no alternatives", sym)
		}
		for _, p := range prods {
			if len(p.To) == 0 {
				return fmt.Errorf("rule %q has an empty alternative", sym)
			}
			if p.Weight <= 0 {
				return fmt.Errorf("rule %q has non-positive weight %v", sym, p.Weight)
			}
			for _, to := range p.To {
				if _, ok := m.degree[to]; !ok {
					return fmt.Errorf("rule %q produces unknown symbol %q", sym, to)
				}
			}
		}
	}
	return nil
}

// Names lists the mode names in table order.
func (ms Modes) Names() []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

// Lookup finds a mode by name.
func (ms Modes) Lookup(name string) (Mode, bool) {
	i := slices.IndexFunc(ms, func(m Mode) bool { return m.Name == name })
	if i < 0 {
		return Mode{}, false
	}
	return ms[i], true
}
