package metrics

import (
	"context"
	"sort"
	"strconv"
	"time"
)

// ResultShaper maps generic row maps from the executor into the typed
// result shapes. Rows arrive untyped, so every numeric field is coerced
// defensively.
type ResultShaper struct {
	directory UserDirectory
}

func NewResultShaper(directory UserDirectory) *ResultShaper {
	return &ResultShaper{directory: directory}
}

// Shape converts raw rows into the result member matching the effective
// breakdown. ratio controls how time buckets without data come back:
// NULL for ratio metrics, zero for everything else.
func (s *ResultShaper) Shape(ctx context.Context, breakdown BreakdownType, accountID string, rows []map[string]any, buckets []time.Time, ratio bool) MetricResult {
	switch breakdown {
	case BreakdownTotal:
		return s.shapeTotal(rows)
	case BreakdownRep:
		return s.shapeRep(ctx, accountID, rows)
	case BreakdownSetter:
		return s.shapeSetter(ctx, accountID, rows)
	case BreakdownLink:
		return s.shapeLink(ctx, accountID, rows)
	case BreakdownTime:
		return s.shapeTime(rows, buckets, ratio)
	}
	return zeroResult(breakdown)
}

func (s *ResultShaper) shapeTotal(rows []map[string]any) MetricResult {
	value := 0.0
	if len(rows) > 0 {
		if v, ok := coerceFloat(rows[0]["value"]); ok {
			value = v
		}
	}
	return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: value}}
}

func (s *ResultShaper) shapeRep(ctx context.Context, accountID string, rows []map[string]any) MetricResult {
	out := make([]RepValue, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		id := coerceString(row["rep_id"])
		if id == "" {
			continue
		}
		value, _ := coerceFloat(row["value"])
		out = append(out, RepValue{RepID: id, Value: value})
		ids = append(ids, id)
	}
	names := s.directory.DisplayNames(ctx, accountID, ids)
	for i := range out {
		out[i].RepName = names[out[i].RepID]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return MetricResult{Breakdown: BreakdownRep, Reps: out}
}

func (s *ResultShaper) shapeSetter(ctx context.Context, accountID string, rows []map[string]any) MetricResult {
	out := make([]SetterValue, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		id := coerceString(row["setter_id"])
		if id == "" {
			continue
		}
		value, _ := coerceFloat(row["value"])
		out = append(out, SetterValue{SetterID: id, Value: value})
		ids = append(ids, id)
	}
	names := s.directory.DisplayNames(ctx, accountID, ids)
	for i := range out {
		out[i].SetterName = names[out[i].SetterID]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return MetricResult{Breakdown: BreakdownSetter, Setters: out}
}

func (s *ResultShaper) shapeLink(ctx context.Context, accountID string, rows []map[string]any) MetricResult {
	out := make([]LinkValue, 0, len(rows))
	var ids []string
	for _, row := range rows {
		setterID := coerceString(row["setter_id"])
		repID := coerceString(row["rep_id"])
		if setterID == "" || repID == "" {
			continue
		}
		value, _ := coerceFloat(row["value"])
		out = append(out, LinkValue{SetterID: setterID, RepID: repID, Value: value})
		ids = append(ids, setterID, repID)
	}
	names := s.directory.DisplayNames(ctx, accountID, ids)
	for i := range out {
		out[i].SetterName = names[out[i].SetterID]
		out[i].RepName = names[out[i].RepID]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return MetricResult{Breakdown: BreakdownLink, Links: out}
}

// shapeTime labels every bucket with the ISO date of its start. The SQL
// left join already produced one row per bucket; buckets missing from the
// rows anyway (malformed dates and the like) fall back per metric
// semantics: nil for ratio metrics, zero otherwise.
func (s *ResultShaper) shapeTime(rows []map[string]any, buckets []time.Time, ratio bool) MetricResult {
	byDate := make(map[string]*float64, len(rows))
	for _, row := range rows {
		date := coerceDate(row["bucket_date"])
		if date == "" {
			continue
		}
		if v, ok := coerceFloat(row["value"]); ok {
			value := v
			byDate[date] = &value
		} else {
			byDate[date] = nil
		}
	}

	series := make([]TimePoint, 0, len(buckets))
	for _, bucket := range buckets {
		date := bucket.Format(isoDate)
		value := byDate[date]
		if value == nil && !ratio {
			zero := 0.0
			value = &zero
		}
		series = append(series, TimePoint{Date: date, Value: value})
	}
	return MetricResult{Breakdown: BreakdownTime, Series: series}
}

// coerceFloat converts the loosely-typed values drivers hand back into a
// float64. ok is false for NULL and anything non-numeric.
func coerceFloat(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int64:
		return float64(value), true
	case int:
		return float64(value), true
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		f, err := strconv.ParseFloat(string(value), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func coerceBool(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		return value == "t" || value == "true"
	case int64:
		return value != 0
	default:
		return false
	}
}

func coerceString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return ""
	}
}

// coerceDate normalizes date cells (time.Time from pq, or text) into an
// ISO date string.
func coerceDate(v any) string {
	switch value := v.(type) {
	case time.Time:
		return value.Format(isoDate)
	case string:
		if len(value) >= len(isoDate) {
			return value[:len(isoDate)]
		}
		return value
	default:
		return ""
	}
}
