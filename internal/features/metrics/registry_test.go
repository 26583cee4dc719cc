package metrics

import (
	"sort"
	"testing"

	"go.uber.org/zap"
)

func TestNewRegistryExpandsCatalog(t *testing.T) {
	registry, err := NewRegistry(zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	// every base metric keeps its legacy name
	for _, base := range baseCatalog {
		if _, ok := registry.Lookup(base.Name); !ok {
			t.Errorf("base metric %q missing from registry", base.Name)
		}
	}

	// appointment metrics grow one variant per attribution context
	for _, name := range []string{"total_appointments_assigned", "total_appointments_booked"} {
		def, ok := registry.Lookup(name)
		if !ok {
			t.Errorf("variant %q missing", name)
			continue
		}
		if def.Attribution == "" || def.Attribution == AttributionNone {
			t.Errorf("variant %q has no attribution context", name)
		}
	}

	// special formulas never expand
	if _, ok := registry.Lookup("roi_assigned"); ok {
		t.Error("special metric grew an attribution variant")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	registry, err := NewRegistry(zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	names := registry.Names()
	if len(names) == 0 {
		t.Fatal("no names")
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("names not sorted: %v", names)
	}
	if len(names) < len(baseCatalog) {
		t.Errorf("expansion shrank the catalog: %d < %d", len(names), len(baseCatalog))
	}
}

func TestValidateDefinition(t *testing.T) {
	valid := MetricDefinition{
		Name:        "sample_metric",
		Table:       TableAppointments,
		SelectExprs: []string{"COUNT(*)"},
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
	}

	tests := []struct {
		name    string
		mutate  func(*MetricDefinition)
		wantErr bool
	}{
		{"valid", func(*MetricDefinition) {}, false},
		{"unknown table", func(d *MetricDefinition) { d.Table = "nope" }, true},
		{"missing selects", func(d *MetricDefinition) { d.SelectExprs = nil }, true},
		{"special without selects", func(d *MetricDefinition) { d.IsSpecial = true; d.SelectExprs = nil }, false},
		{"attribution not on table", func(d *MetricDefinition) { d.Table = TableDials; d.Attribution = AttributionAssigned }, true},
		{"bad breakdown", func(d *MetricDefinition) { d.Breakdown = "pie" }, true},
		{"bad unit", func(d *MetricDefinition) { d.Unit = "furlongs" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := valid
			tc.mutate(&def)
			err := validateDefinition(def)
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestDefinitionsMatchesNames(t *testing.T) {
	registry, err := NewRegistry(zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	names := registry.Names()
	defs := registry.Definitions()
	if len(defs) != len(names) {
		t.Fatalf("len(defs) = %d, len(names) = %d", len(defs), len(names))
	}
	for i, def := range defs {
		if def.Name != names[i] {
			t.Errorf("defs[%d] = %q, want %q", i, def.Name, names[i])
		}
	}
}
