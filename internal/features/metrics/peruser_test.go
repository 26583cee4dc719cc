package metrics

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func newAggregatorForTest(t *testing.T, exec *fakeExecutor) *PerUserAggregator {
	t.Helper()
	log := zap.NewNop()
	registry, err := NewRegistry(log)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	applier := NewFilterApplier(log)
	cfg := testConfig()
	worktime := NewWorkTimeframeDeriver(exec, applier, cfg, log)
	special := NewSpecialFormulas(exec, applier, worktime, cfg, log)
	directory := staticDirectory{"u1": "Uma", "u2": "Uri"}
	shaper := NewResultShaper(directory)
	engine := NewEngine(registry, applier, NewBuilder(), special, exec, shaper, log)
	return NewPerUserAggregator(engine, registry, directory, log)
}

func TestAggregateBuildsFullTable(t *testing.T) {
	exec := &fakeExecutor{handler: func(sqlText string, params map[string]any) ([]map[string]any, error) {
		if strings.Contains(sqlText, "cash_collected") {
			return []map[string]any{{"value": 100.0}}, nil
		}
		return []map[string]any{{"value": int64(4)}}, nil
	}}
	agg := newAggregatorForTest(t, exec)

	table, err := agg.Aggregate(context.Background(), PerUserRequest{
		MetricNames: []string{"total_appointments", "cash_collected"},
		UserIDs:     []string{"u1", "u2"},
		Filters:     testFilters(),
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if len(table.Rows) != 2 {
		t.Fatalf("rows = %+v", table.Rows)
	}
	if table.Rows[0].UserID != "u1" || table.Rows[1].UserID != "u2" {
		t.Errorf("row order should follow the request: %+v", table.Rows)
	}
	if table.Rows[0].UserName != "Uma" {
		t.Errorf("UserName = %q, want Uma", table.Rows[0].UserName)
	}
	for _, row := range table.Rows {
		if row.Values["total_appointments"] != 4 {
			t.Errorf("user %s total_appointments = %v", row.UserID, row.Values["total_appointments"])
		}
		if row.Values["cash_collected"] != 100 {
			t.Errorf("user %s cash_collected = %v", row.UserID, row.Values["cash_collected"])
		}
	}
	// one engine call per (user, metric) pair
	if len(exec.queries) != 4 {
		t.Errorf("query count = %d, want 4", len(exec.queries))
	}
}

func TestAggregateUnknownMetricFailsUpFront(t *testing.T) {
	exec := &fakeExecutor{}
	agg := newAggregatorForTest(t, exec)

	_, err := agg.Aggregate(context.Background(), PerUserRequest{
		MetricNames: []string{"total_appointments", "nope"},
		UserIDs:     []string{"u1"},
		Filters:     testFilters(),
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(exec.queries) != 0 {
		t.Errorf("%d queries issued despite unknown metric", len(exec.queries))
	}
}

func TestAggregateRequiresMetricNames(t *testing.T) {
	agg := newAggregatorForTest(t, &fakeExecutor{})
	_, err := agg.Aggregate(context.Background(), PerUserRequest{
		UserIDs: []string{"u1"},
		Filters: testFilters(),
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestAggregateBookedAttributionFiltersOnSetter(t *testing.T) {
	exec := &fakeExecutor{handler: func(string, map[string]any) ([]map[string]any, error) {
		return []map[string]any{{"value": int64(1)}}, nil
	}}
	agg := newAggregatorForTest(t, exec)

	_, err := agg.Aggregate(context.Background(), PerUserRequest{
		MetricNames: []string{"total_appointments_booked", "total_appointments_assigned"},
		UserIDs:     []string{"u1"},
		Filters:     testFilters(),
	})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	var sawSetterScoped, sawRepScoped bool
	for _, sqlText := range exec.queries {
		if strings.Contains(sqlText, "booked_by_user_id = :setter_id_0") {
			sawSetterScoped = true
		}
		if strings.Contains(sqlText, "assigned_user_id = :rep_id_0") {
			sawRepScoped = true
		}
	}
	if !sawSetterScoped {
		t.Error("booked-attribution metric should scope by setter id")
	}
	if !sawRepScoped {
		t.Error("assigned-attribution metric should scope by rep id")
	}
}

func TestAggregateExecutionFailureYieldsZeroCell(t *testing.T) {
	exec := &fakeExecutor{handler: func(string, map[string]any) ([]map[string]any, error) {
		return nil, errors.New("down")
	}}
	agg := newAggregatorForTest(t, exec)

	table, err := agg.Aggregate(context.Background(), PerUserRequest{
		MetricNames: []string{"total_appointments"},
		UserIDs:     []string{"u1"},
		Filters:     testFilters(),
	})
	if err != nil {
		t.Fatalf("execution failures must not fail the table: %v", err)
	}
	if got := table.Rows[0].Values["total_appointments"]; got != 0 {
		t.Errorf("cell = %v, want 0", got)
	}
}

func TestAggregateBoundsConcurrency(t *testing.T) {
	var inFlight, peak int64
	exec := &fakeExecutor{handler: func(string, map[string]any) ([]map[string]any, error) {
		now := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if now <= p || atomic.CompareAndSwapInt64(&peak, p, now) {
				break
			}
		}
		atomic.AddInt64(&inFlight, -1)
		return []map[string]any{{"value": int64(1)}}, nil
	}}
	agg := newAggregatorForTest(t, exec)

	userIDs := make([]string, 40)
	for i := range userIDs {
		userIDs[i] = "user-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	if _, err := agg.Aggregate(context.Background(), PerUserRequest{
		MetricNames: []string{"total_appointments"},
		UserIDs:     userIDs,
		Filters:     testFilters(),
	}); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if atomic.LoadInt64(&peak) > maxConcurrentQueries {
		t.Errorf("peak in-flight = %d, exceeds limit %d", peak, maxConcurrentQueries)
	}
}

func TestScalarFromResult(t *testing.T) {
	tests := []struct {
		name   string
		result MetricResult
		want   float64
	}{
		{
			"total",
			MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: 7}},
			7,
		},
		{
			"rep match",
			MetricResult{Breakdown: BreakdownRep, Reps: []RepValue{{RepID: "other", Value: 9}, {RepID: "u1", Value: 3}}},
			3,
		},
		{
			"rep absent",
			MetricResult{Breakdown: BreakdownRep, Reps: []RepValue{{RepID: "other", Value: 9}}},
			0,
		},
		{
			"setter match",
			MetricResult{Breakdown: BreakdownSetter, Setters: []SetterValue{{SetterID: "u1", Value: 2}}},
			2,
		},
		{
			"nil total",
			MetricResult{Breakdown: BreakdownTotal},
			0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := scalarFromResult(tc.result, "u1"); got != tc.want {
				t.Errorf("scalarFromResult = %v, want %v", got, tc.want)
			}
		})
	}
}
