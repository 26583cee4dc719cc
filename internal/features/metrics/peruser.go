package metrics

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentQueries caps in-flight engine calls during per-user
// fan-out so the execution interface is not saturated.
const maxConcurrentQueries = 10

// PerUserRequest asks for the same metrics computed per user.
type PerUserRequest struct {
	MetricNames []string      `json:"metric_names"`
	UserIDs     []string      `json:"user_ids"`
	Filters     MetricFilters `json:"filters"`
}

// PerUserRow is one user's column values in the aggregated table.
type PerUserRow struct {
	UserID   string             `json:"user_id"`
	UserName string             `json:"user_name,omitempty"`
	Values   map[string]float64 `json:"values"`
}

// PerUserTable is the merged result of the fan-out.
type PerUserTable struct {
	MetricNames []string     `json:"metric_names"`
	Rows        []PerUserRow `json:"rows"`
}

// PerUserAggregator computes a table of users x metrics by issuing one
// engine call per (user, metric) pair under a fixed worker budget.
type PerUserAggregator struct {
	engine    *Engine
	registry  *Registry
	directory UserDirectory
	log       *zap.Logger
}

func NewPerUserAggregator(engine *Engine, registry *Registry, directory UserDirectory, log *zap.Logger) *PerUserAggregator {
	return &PerUserAggregator{engine: engine, registry: registry, directory: directory, log: log}
}

// Aggregate drains the (user, metric) work queue with bounded concurrency
// and merges results into per-user rows. Unknown metric names fail the
// whole request up front; individual execution failures already degrade
// to zero inside the engine.
func (a *PerUserAggregator) Aggregate(ctx context.Context, req PerUserRequest) (*PerUserTable, error) {
	if err := ValidateFilters(req.Filters); err != nil {
		return nil, err
	}
	if len(req.MetricNames) == 0 {
		return nil, &ValidationError{Reasons: []string{"at least one metric name is required"}}
	}

	defs := make(map[string]MetricDefinition, len(req.MetricNames))
	for _, name := range req.MetricNames {
		def, ok := a.registry.Lookup(name)
		if !ok {
			return nil, &ValidationError{Reasons: []string{fmt.Sprintf("unknown metric %q", name)}}
		}
		defs[name] = def
	}

	var mu sync.Mutex
	values := make(map[string]map[string]float64, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		values[userID] = make(map[string]float64, len(req.MetricNames))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)

	for _, userID := range req.UserIDs {
		for _, name := range req.MetricNames {
			userID, name := userID, name
			g.Go(func() error {
				value, err := a.computeCell(gctx, defs[name], name, userID, req.Filters)
				if err != nil {
					return err
				}
				mu.Lock()
				values[userID][name] = value
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := a.directory.DisplayNames(ctx, req.Filters.AccountID, req.UserIDs)

	table := &PerUserTable{MetricNames: req.MetricNames}
	for _, userID := range req.UserIDs {
		table.Rows = append(table.Rows, PerUserRow{
			UserID:   userID,
			UserName: names[userID],
			Values:   values[userID],
		})
	}
	return table, nil
}

// computeCell runs one metric scoped to one user. The metric's attribution
// context decides which filter dimension carries the user id.
func (a *PerUserAggregator) computeCell(ctx context.Context, def MetricDefinition, name, userID string, filters MetricFilters) (float64, error) {
	scoped := filters
	if def.Attribution == AttributionBooked {
		scoped.SetterIDs = []string{userID}
		scoped.RepIDs = nil
	} else {
		scoped.RepIDs = []string{userID}
		scoped.SetterIDs = nil
	}

	resp, err := a.engine.Execute(ctx, MetricRequest{MetricName: name, Filters: scoped})
	if err != nil {
		return 0, err
	}
	return scalarFromResult(resp.Result, userID), nil
}

// scalarFromResult extracts the single value a table cell holds from
// whatever shape the metric produced.
func scalarFromResult(result MetricResult, userID string) float64 {
	switch result.Breakdown {
	case BreakdownTotal:
		if result.Total != nil {
			return result.Total.Value
		}
	case BreakdownRep:
		for _, rep := range result.Reps {
			if rep.RepID == userID {
				return rep.Value
			}
		}
	case BreakdownSetter:
		for _, setter := range result.Setters {
			if setter.SetterID == userID {
				return setter.Value
			}
		}
	}
	return 0
}
