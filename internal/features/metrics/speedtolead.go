package metrics

import (
	"context"
	"sort"
	"time"
)

// Business window used by the speed-to-lead adjustment: Monday-Friday,
// 09:00-17:00 in the account's local time.
const (
	businessOpenHour  = 9
	businessCloseHour = 17
)

// speedToLead measures seconds from lead creation to first call across
// leads that received at least one call. The optional business-hours
// adjustment shifts the creation timestamp forward to the next open
// window before differencing, so a lead created Friday night is not
// penalized for the weekend.
func (s *SpecialFormulas) speedToLead(ctx context.Context, filters MetricFilters, settings WidgetSettings) (MetricResult, error) {
	meta, _ := LookupTable(TableLeads)
	applied := s.applier.Apply(filters, meta)

	q := &querySpec{from: TableLeads}
	q.addSelect("created_at", "")
	q.addSelect("first_call_at", "")
	q.addWhere(applied.clauses()...)
	q.addWhere("first_call_at IS NOT NULL")

	rows, err := s.executor.Query(ctx, q.SQL(), applied.Params)
	if err != nil {
		return MetricResult{}, err
	}

	loc := s.location()
	diffs := make([]float64, 0, len(rows))
	for _, row := range rows {
		created, ok := coerceTime(row["created_at"])
		if !ok {
			continue
		}
		firstCall, ok := coerceTime(row["first_call_at"])
		if !ok {
			continue
		}
		if settings.SpeedToLeadBusinessHours {
			created = nextBusinessOpen(created.In(loc))
		}
		diff := firstCall.Sub(created).Seconds()
		if diff < 0 {
			diff = 0
		}
		diffs = append(diffs, diff)
	}

	value := 0.0
	if len(diffs) > 0 {
		if settings.SpeedToLeadCalculation == CalculationMedian {
			value = median(diffs)
		} else {
			value = mean(diffs)
		}
	}
	return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: value}}, nil
}

// bookingLeadTime measures seconds between booking an appointment and the
// scheduled call time. The cohort is pinned to the booking date, so a call
// scheduled far outside the range still counts for the day it was booked.
func (s *SpecialFormulas) bookingLeadTime(ctx context.Context, filters MetricFilters, settings WidgetSettings) (MetricResult, error) {
	meta, _ := LookupTable(TableAppointments)
	meta.DateColumn = "created_at::date"
	applied := s.applier.Apply(filters, meta)

	q := &querySpec{from: TableAppointments}
	q.addSelect("created_at", "")
	q.addSelect("scheduled_at", "")
	q.addWhere(applied.clauses()...)
	q.addWhere("scheduled_at IS NOT NULL")

	rows, err := s.executor.Query(ctx, q.SQL(), applied.Params)
	if err != nil {
		return MetricResult{}, err
	}

	diffs := make([]float64, 0, len(rows))
	for _, row := range rows {
		created, ok := coerceTime(row["created_at"])
		if !ok {
			continue
		}
		scheduled, ok := coerceTime(row["scheduled_at"])
		if !ok {
			continue
		}
		diff := scheduled.Sub(created).Seconds()
		if diff < 0 {
			diff = 0
		}
		diffs = append(diffs, diff)
	}

	value := 0.0
	if len(diffs) > 0 {
		if settings.BookingLeadTimeCalculation == CalculationMedian {
			value = median(diffs)
		} else {
			value = mean(diffs)
		}
	}
	return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: value}}, nil
}

// nextBusinessOpen shifts a timestamp forward to the next open business
// window. A timestamp already inside the window is returned unchanged.
func nextBusinessOpen(t time.Time) time.Time {
	for {
		switch t.Weekday() {
		case time.Saturday, time.Sunday:
			t = time.Date(t.Year(), t.Month(), t.Day()+1, businessOpenHour, 0, 0, 0, t.Location())
			continue
		}
		if t.Hour() < businessOpenHour {
			return time.Date(t.Year(), t.Month(), t.Day(), businessOpenHour, 0, 0, 0, t.Location())
		}
		if t.Hour() >= businessCloseHour {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, businessOpenHour, 0, 0, 0, t.Location())
			continue
		}
		return t
	}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median averages the middle two values for even-length input.
func median(values []float64) float64 {
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// coerceTime normalizes timestamp cells (time.Time from pq, or text).
func coerceTime(v any) (time.Time, bool) {
	switch value := v.(type) {
	case time.Time:
		return value, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", isoDate} {
			if t, err := time.Parse(layout, value); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
