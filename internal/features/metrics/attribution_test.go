package metrics

import (
	"reflect"
	"testing"
)

func TestGenerateFamilySize(t *testing.T) {
	tests := []struct {
		name  string
		table string
		want  int // |applicable contexts| + 1 legacy
	}{
		{name: "appointment table", table: TableAppointments, want: 3},
		{name: "discovery table", table: TableDiscoveries, want: 3},
		{name: "call log table", table: TableDials, want: 2},
		{name: "table with no contexts", table: TableLeads, want: 1},
		{name: "unknown table is terminal, not an error", table: "mystery", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := MetricDefinition{
				Name:        "m",
				Breakdown:   BreakdownTotal,
				Unit:        UnitCount,
				Table:       tt.table,
				SelectExprs: []string{"COUNT(*)"},
			}
			family := GenerateFamily(base)
			if len(family) != tt.want {
				t.Errorf("family size = %d, want %d", len(family), tt.want)
			}
			legacy, ok := family["m"]
			if !ok {
				t.Fatal("legacy unsuffixed variant missing")
			}
			if legacy.Attribution != "" {
				t.Errorf("legacy variant has attribution %q", legacy.Attribution)
			}
		})
	}
}

func TestGenerateFamilyNamesRoundTrip(t *testing.T) {
	base := MetricDefinition{
		Name:        "total_appointments",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableAppointments,
		SelectExprs: []string{"COUNT(*)"},
	}
	family := GenerateFamily(base)
	for name := range family {
		if got := StripContextSuffix(name); got != base.Name {
			t.Errorf("StripContextSuffix(%q) = %q, want %q", name, got, base.Name)
		}
	}
}

func TestGenerateFamilyOnePerContext(t *testing.T) {
	base := MetricDefinition{
		Name:        "shows",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableAppointments,
		SelectExprs: []string{"COUNT(*)"},
	}
	family := GenerateFamily(base)

	seen := map[AttributionContext]int{}
	for _, def := range family {
		if def.Attribution != "" {
			seen[def.Attribution]++
		}
	}
	for _, ctx := range AttributionContextsFor(TableAppointments) {
		if seen[ctx] != 1 {
			t.Errorf("context %q has %d variants, want exactly 1", ctx, seen[ctx])
		}
	}
}

func TestGenerateFamilyDeterministic(t *testing.T) {
	base := baseCatalog[0]
	first := GenerateFamily(base)
	second := GenerateFamily(base)
	if !reflect.DeepEqual(first, second) {
		t.Error("same base produced different families across runs")
	}
}

func TestSpecialMetricsSkipAttributionVariants(t *testing.T) {
	base := MetricDefinition{
		Name:      "roi",
		Breakdown: BreakdownTotal,
		Unit:      UnitPercent,
		Table:     TableAppointments,
		IsSpecial: true,
	}
	family := GenerateFamily(base)
	if len(family) != 1 {
		t.Errorf("special metric family size = %d, want 1", len(family))
	}
}

func TestCloneDoesNotShareSlices(t *testing.T) {
	base := MetricDefinition{
		Name:         "m",
		Table:        TableAppointments,
		SelectExprs:  []string{"COUNT(*)"},
		WhereClauses: []string{"x = 1"},
	}
	family := GenerateFamily(base)
	variant := family["m_assigned"]
	variant.WhereClauses[0] = "mutated"
	if base.WhereClauses[0] != "x = 1" {
		t.Error("variant mutation leaked into base definition")
	}
}
