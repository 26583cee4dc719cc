package metrics

import (
	"context"
	"fmt"
	"time"

	"go-salesops/internal/query"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine turns a MetricRequest into a MetricResponse. Validation failures
// and unknown metrics are the only errors it returns; execution failures
// degrade to a shape-correct zero result so callers always get a
// well-formed response.
type Engine struct {
	registry *Registry
	applier  *FilterApplier
	builder  *Builder
	special  *SpecialFormulas
	executor query.Executor
	shaper   *ResultShaper
	log      *zap.Logger
}

func NewEngine(
	registry *Registry,
	applier *FilterApplier,
	builder *Builder,
	special *SpecialFormulas,
	executor query.Executor,
	shaper *ResultShaper,
	log *zap.Logger,
) *Engine {
	return &Engine{
		registry: registry,
		applier:  applier,
		builder:  builder,
		special:  special,
		executor: executor,
		shaper:   shaper,
		log:      log,
	}
}

// Execute runs one metric request end to end.
func (e *Engine) Execute(ctx context.Context, req MetricRequest) (*MetricResponse, error) {
	if err := ValidateFilters(req.Filters); err != nil {
		return nil, err
	}

	def, ok := e.registry.Lookup(req.MetricName)
	if !ok {
		return nil, &ValidationError{Reasons: []string{fmt.Sprintf("unknown metric %q", req.MetricName)}}
	}

	start := time.Now()
	strat := chooseStrategy(def, req.Options)
	breakdown := effectiveBreakdown(def, req.Options)

	result := e.run(ctx, def, req, strat, breakdown)

	elapsed := time.Since(start)
	e.log.Info("metric executed",
		zap.String("metric", req.MetricName),
		zap.String("strategy", string(strat)),
		zap.String("breakdown", string(result.Breakdown)),
		zap.Duration("duration", elapsed),
	)

	return &MetricResponse{
		RequestID:       uuid.NewString(),
		MetricName:      req.MetricName,
		Filters:         req.Filters,
		Result:          result,
		ExecutedAt:      start,
		ExecutionTimeMs: elapsed.Milliseconds(),
	}, nil
}

// run executes the chosen strategy and absorbs every failure past the
// validation boundary into a zero result of the effective breakdown.
func (e *Engine) run(ctx context.Context, def MetricDefinition, req MetricRequest, strat strategy, breakdown BreakdownType) MetricResult {
	switch strat {
	case strategySpecial:
		result, err := e.special.Compute(ctx, def, req.Filters, req.Options)
		if err != nil {
			e.log.Error("special formula failed",
				zap.String("metric", def.Name),
				zap.Error(err),
			)
			return zeroResult(breakdown)
		}
		return result

	case strategyTimeSeries:
		meta, _ := tableForDefinition(def)
		applied := e.applier.Apply(req.Filters, meta)
		plan, err := e.builder.BuildTimeSeries(def, applied, req.Filters)
		if err != nil {
			e.log.Error("time-series build failed",
				zap.String("metric", def.Name),
				zap.Error(err),
			)
			return zeroResult(BreakdownTime)
		}
		rows, err := e.executor.Query(ctx, plan.sql, plan.params)
		if err != nil {
			e.log.Error("time-series query failed",
				zap.String("metric", def.Name),
				zap.Error(err),
			)
			return zeroResult(BreakdownTime)
		}
		return e.shaper.Shape(ctx, BreakdownTime, req.Filters.AccountID, rows, plan.buckets, def.IsRatio)

	default:
		meta, _ := tableForDefinition(def)
		applied := e.applier.Apply(req.Filters, meta)
		plan, err := e.builder.BuildGeneric(def, applied, breakdown)
		if err != nil {
			e.log.Error("query build failed",
				zap.String("metric", def.Name),
				zap.Error(err),
			)
			return zeroResult(breakdown)
		}
		rows, err := e.executor.Query(ctx, plan.sql, plan.params)
		if err != nil {
			e.log.Error("metric query failed",
				zap.String("metric", def.Name),
				zap.Error(err),
			)
			return zeroResult(breakdown)
		}
		return e.shaper.Shape(ctx, breakdown, req.Filters.AccountID, rows, nil, def.IsRatio)
	}
}
