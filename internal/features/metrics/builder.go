package metrics

import (
	"fmt"
	"strings"
	"time"
)

// strategy is the build path chosen for one request, resolved once from
// the metric definition's flags and the requested visualization.
type strategy string

const (
	strategyGeneric    strategy = "generic"
	strategyTimeSeries strategy = "time_series"
	strategySpecial    strategy = "special"
)

// queryPlan is one executable statement plus the breakdown its rows carry.
type queryPlan struct {
	sql       string
	params    map[string]any
	breakdown BreakdownType
	buckets   []time.Time // set for time-series plans
}

// chooseStrategy resolves the build path. Special metrics always take
// their hand-written formulas; any non-KPI visualization forces the
// time-series path; everything else assembles generically.
func chooseStrategy(def MetricDefinition, opts *RequestOptions) strategy {
	if def.IsSpecial {
		return strategySpecial
	}
	if opts != nil && opts.VizType != "" && opts.VizType != "kpi" {
		return strategyTimeSeries
	}
	return strategyGeneric
}

// effectiveBreakdown is the breakdown the result will actually use, which
// may diverge from the metric's declared default.
func effectiveBreakdown(def MetricDefinition, opts *RequestOptions) BreakdownType {
	if def.IsSpecial {
		if opts != nil && opts.DynamicBreakdown != "" && def.Name == "cost_per_booked_call" {
			return opts.DynamicBreakdown
		}
		return def.Breakdown
	}
	if opts != nil && opts.VizType != "" && opts.VizType != "kpi" {
		return BreakdownTime
	}
	if opts != nil && opts.DynamicBreakdown != "" {
		return opts.DynamicBreakdown
	}
	return def.Breakdown
}

// Builder assembles SQL text and parameters for generic and time-series
// metric executions.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// BuildGeneric assembles a plain aggregation for the given breakdown.
func (b *Builder) BuildGeneric(def MetricDefinition, applied AppliedFilters, breakdown BreakdownType) (queryPlan, error) {
	meta, ok := tableForDefinition(def)
	if !ok {
		return queryPlan{}, fmt.Errorf("unknown table %q", def.Table)
	}

	q := &querySpec{from: def.Table}
	q.addWhere(applied.clauses()...)
	q.addWhere(def.WhereClauses...)

	switch breakdown {
	case BreakdownTotal:
		q.addSelect(def.SelectExprs[0], "value")
		// attributed variants only credit records that have an owner
		if def.Attribution != "" {
			if col := entityColumn(meta, def.Attribution, breakdown); col != "" {
				q.addWhere(col + " IS NOT NULL")
			}
		}
	case BreakdownRep:
		col := entityColumn(meta, def.Attribution, BreakdownRep)
		if col == "" {
			return queryPlan{}, fmt.Errorf("table %q has no rep column", def.Table)
		}
		q.addSelect(col, "rep_id")
		q.addSelect(def.SelectExprs[0], "value")
		q.addWhere(col + " IS NOT NULL")
		q.addGroupBy(col)
	case BreakdownSetter:
		col := entityColumn(meta, def.Attribution, BreakdownSetter)
		if col == "" {
			return queryPlan{}, fmt.Errorf("table %q has no setter column", def.Table)
		}
		q.addSelect(col, "setter_id")
		q.addSelect(def.SelectExprs[0], "value")
		q.addWhere(col + " IS NOT NULL")
		q.addGroupBy(col)
	case BreakdownLink:
		if meta.SetterColumn == "" || meta.RepColumn == "" {
			return queryPlan{}, fmt.Errorf("table %q cannot break down by setter-rep pair", def.Table)
		}
		q.addSelect(meta.SetterColumn, "setter_id")
		q.addSelect(meta.RepColumn, "rep_id")
		q.addSelect(def.SelectExprs[0], "value")
		q.addWhere(meta.SetterColumn+" IS NOT NULL", meta.RepColumn+" IS NOT NULL")
		q.addGroupBy(meta.SetterColumn, meta.RepColumn)
	default:
		return queryPlan{}, fmt.Errorf("breakdown %q is not a generic aggregation", breakdown)
	}

	if def.GroupBy != "" {
		q.addGroupBy(def.GroupBy)
	}
	q.having = def.Having
	q.orderBy = def.OrderBy

	return queryPlan{sql: q.SQL(), params: applied.Params, breakdown: breakdown}, nil
}

// BuildTimeSeries assembles the bucketed, zero-filled aggregation: the
// metric aggregate grouped by bucket, left-joined against a complete
// series of bucket starts so empty buckets survive as rows.
func (b *Builder) BuildTimeSeries(def MetricDefinition, applied AppliedFilters, filters MetricFilters) (queryPlan, error) {
	meta, ok := tableForDefinition(def)
	if !ok {
		return queryPlan{}, fmt.Errorf("unknown table %q", def.Table)
	}

	start, err := time.Parse(isoDate, filters.DateRange.Start)
	if err != nil {
		return queryPlan{}, fmt.Errorf("bad start date: %w", err)
	}
	end, err := time.Parse(isoDate, filters.DateRange.End)
	if err != nil {
		return queryPlan{}, fmt.Errorf("bad end date: %w", err)
	}

	gran := SelectGranularity(start, end)
	buckets := BucketStarts(start, end, gran)

	params := make(map[string]any, len(applied.Params)+len(buckets))
	for k, v := range applied.Params {
		params[k] = v
	}
	placeholders := make([]string, len(buckets))
	for i, bucket := range buckets {
		name := fmt.Sprintf("bucket_%d", i)
		placeholders[i] = ":" + name
		params[name] = bucket.Format(isoDate)
	}

	bucket := bucketExpr(meta, gran)

	agg := &querySpec{from: def.Table}
	agg.addSelect(bucket, "bucket_date")
	agg.addSelect(def.SelectExprs[0], "value")
	agg.addWhere(applied.clauses()...)
	agg.addWhere(def.WhereClauses...)
	if def.Attribution != "" {
		if col := entityColumn(meta, def.Attribution, def.Breakdown); col != "" {
			agg.addWhere(col + " IS NOT NULL")
		}
	}
	agg.addGroupBy(bucket)

	// ratio metrics are undefined at an empty bucket, everything else is zero
	value := "COALESCE(agg.value, 0)"
	if def.IsRatio {
		value = "agg.value"
	}

	outer := &querySpec{
		from: fmt.Sprintf("UNNEST(ARRAY[%s]::date[]) AS s(bucket_date)", strings.Join(placeholders, ", ")),
	}
	outer.addSelect("s.bucket_date", "bucket_date")
	outer.addSelect(value, "value")
	outer.addJoin("LEFT JOIN (" + agg.SQL() + ") agg ON agg.bucket_date = s.bucket_date")
	outer.orderBy = "s.bucket_date"

	return queryPlan{sql: outer.SQL(), params: params, breakdown: BreakdownTime, buckets: buckets}, nil
}
