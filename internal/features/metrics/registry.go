package metrics

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Registry is the immutable catalog of every metric variant. Built once at
// startup, validated, then shared across concurrent requests without locking.
type Registry struct {
	definitions map[string]MetricDefinition
}

// NewRegistry expands the base catalog into attribution families and
// validates every definition. A registry that fails validation aborts
// startup rather than serving a broken catalog.
func NewRegistry(log *zap.Logger) (*Registry, error) {
	defs := make(map[string]MetricDefinition)

	for _, base := range baseCatalog {
		family := GenerateFamily(base)
		for name, def := range family {
			if _, exists := defs[name]; exists {
				return nil, fmt.Errorf("duplicate metric name %q in catalog", name)
			}
			if err := validateDefinition(def); err != nil {
				return nil, fmt.Errorf("invalid metric %q: %w", name, err)
			}
			defs[name] = def
		}
	}

	log.Info("metric registry initialized",
		zap.Int("base_metrics", len(baseCatalog)),
		zap.Int("variants", len(defs)),
	)

	return &Registry{definitions: defs}, nil
}

func validateDefinition(def MetricDefinition) error {
	meta, ok := LookupTable(def.Table)
	if !ok {
		return fmt.Errorf("unknown table %q", def.Table)
	}
	if !def.IsSpecial && len(def.SelectExprs) == 0 {
		return fmt.Errorf("no select expressions")
	}
	if def.Attribution != "" && def.Attribution != AttributionNone {
		found := false
		for _, ctx := range meta.Contexts {
			if ctx == def.Attribution {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("attribution %q not applicable to table %q", def.Attribution, def.Table)
		}
	}
	switch def.Breakdown {
	case BreakdownTotal, BreakdownRep, BreakdownSetter, BreakdownLink, BreakdownTime:
	default:
		return fmt.Errorf("unknown breakdown type %q", def.Breakdown)
	}
	switch def.Unit {
	case UnitCount, UnitCurrency, UnitPercent, UnitSeconds, UnitDays:
	default:
		return fmt.Errorf("unknown unit %q", def.Unit)
	}
	return nil
}

// Lookup returns the definition for a metric variant name.
func (r *Registry) Lookup(name string) (MetricDefinition, bool) {
	def, ok := r.definitions[name]
	return def, ok
}

// Names returns every registered variant name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the catalog entries sorted by name, for the
// catalog endpoint.
func (r *Registry) Definitions() []MetricDefinition {
	out := make([]MetricDefinition, 0, len(r.definitions))
	for _, name := range r.Names() {
		out = append(out, r.definitions[name])
	}
	return out
}
