// Package metric defines the metric value model and the provider boundary
// through which raw quality metrics enter an assessment run.
package metric

import (
	"fmt"
	"sort"
)

// Unit identifies how a metric value is expressed.
type Unit string

const (
	// UnitPercent is a percentage in [0,100] (coverage, pass rate).
	UnitPercent Unit = "percent"

	// UnitCount is a plain count (open issues, failing tests).
	UnitCount Unit = "count"

	// UnitHours is an effort estimate in hours (technical debt).
	UnitHours Unit = "hours"

	// UnitMillis is a latency in milliseconds (response time).
	UnitMillis Unit = "ms"

	// UnitRatio is a dimensionless ratio in [0,1].
	UnitRatio Unit = "ratio"

	// UnitScore is an abstract score, typically cyclomatic complexity or a
	// composite index where lower is better.
	UnitScore Unit = "score"
)

// Metric is a single named measurement for an assessment target.
// Metrics are immutable once captured.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Set is a collection of metrics keyed by name.
type Set map[string]Metric

// NewSet builds a Set from raw name/value pairs. Units default to
// UnitPercent, the dominant unit in assessment requests; callers that need
// other units add metrics with Put.
func NewSet(values map[string]float64) Set {
	s := make(Set, len(values))
	for name, v := range values {
		s[name] = Metric{Name: name, Value: v, Unit: UnitPercent}
	}
	return s
}

// Put adds or replaces a metric in the set.
func (s Set) Put(name string, value float64, unit Unit) {
	s[name] = Metric{Name: name, Value: value, Unit: unit}
}

// Value returns the value of the named metric and whether it is present.
func (s Set) Value(name string) (float64, bool) {
	m, ok := s[name]
	return m.Value, ok
}

// Names returns the metric names in sorted order. Sorting keeps downstream
// output (reasoning strings, warnings) deterministic.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values flattens the set to name/value pairs.
func (s Set) Values() map[string]float64 {
	values := make(map[string]float64, len(s))
	for name, m := range s {
		values[name] = m.Value
	}
	return values
}

// Merge returns a new Set containing s overlaid with other. Metrics in
// other win on name collision.
func (s Set) Merge(other Set) Set {
	merged := make(Set, len(s)+len(other))
	for name, m := range s {
		merged[name] = m
	}
	for name, m := range other {
		merged[name] = m
	}
	return merged
}

// List returns the metrics ordered by name.
func (s Set) List() []Metric {
	list := make([]Metric, 0, len(s))
	for _, name := range s.Names() {
		list = append(list, s[name])
	}
	return list
}

// Validate rejects metrics that cannot participate in scoring.
func (m Metric) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("metric name is required")
	}
	if m.Value != m.Value { // NaN
		return fmt.Errorf("metric %s: value is NaN", m.Name)
	}
	return nil
}
