package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-salesops/internal/config"
	"go-salesops/internal/query"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SpecialFormulas computes the hand-written cross-table metrics. Each
// formula issues its dependent sub-queries behind an errgroup barrier and
// combines them in-process once all have completed.
//
// The recurring trap in these formulas is filter placement: rep/setter
// filters belong on the numerator/attributed side only. Account-wide
// denominators (total spend, total appointment volume) must ignore them,
// otherwise per-entity ratios drift.
type SpecialFormulas struct {
	executor query.Executor
	applier  *FilterApplier
	worktime *WorkTimeframeDeriver
	timezone string
	log      *zap.Logger
}

func NewSpecialFormulas(executor query.Executor, applier *FilterApplier, worktime *WorkTimeframeDeriver, cfg *config.Config, log *zap.Logger) *SpecialFormulas {
	return &SpecialFormulas{
		executor: executor,
		applier:  applier,
		worktime: worktime,
		timezone: cfg.DefaultTimezone,
		log:      log,
	}
}

// location resolves the account-local timezone, falling back to UTC.
func (s *SpecialFormulas) location() *time.Location {
	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Compute dispatches to the formula matching the metric name.
func (s *SpecialFormulas) Compute(ctx context.Context, def MetricDefinition, filters MetricFilters, opts *RequestOptions) (MetricResult, error) {
	settings := WidgetSettings{}
	if opts != nil && opts.WidgetSettings != nil {
		settings = *opts.WidgetSettings
	}

	switch def.Name {
	case "roi":
		return s.roi(ctx, filters, settings)
	case "rep_roi":
		return s.repROI(ctx, filters, settings)
	case "cost_per_booked_call":
		return s.costPerBookedCall(ctx, filters, effectiveBreakdown(def, opts))
	case "speed_to_lead":
		return s.speedToLead(ctx, filters, settings)
	case "booking_lead_time":
		return s.bookingLeadTime(ctx, filters, settings)
	case "lead_to_appointment":
		return s.leadToAppointment(ctx, filters)
	case "data_completion_rate":
		return s.dataCompletionRate(ctx, filters)
	case "overdue_items":
		return s.overdue(ctx, filters, false)
	case "overdue_percentage":
		return s.overdue(ctx, filters, true)
	case "cash_per_dial":
		return s.cashPerDial(ctx, filters)
	case "hours_worked", "bookings_per_hour", "dials_per_hour":
		return s.workRate(ctx, def.Name, filters)
	}
	return MetricResult{}, fmt.Errorf("no formula registered for %q", def.Name)
}

// scalar runs one statement and returns the first row's "value" column.
func (s *SpecialFormulas) scalar(ctx context.Context, sqlText string, params map[string]any) (float64, error) {
	rows, err := s.executor.Query(ctx, sqlText, params)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	v, _ := coerceFloat(rows[0]["value"])
	return v, nil
}

// entityTotals runs a per-entity aggregate and returns id -> value.
func (s *SpecialFormulas) entityTotals(ctx context.Context, sqlText string, params map[string]any, idColumn string) (map[string]float64, error) {
	rows, err := s.executor.Query(ctx, sqlText, params)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		id := coerceString(row[idColumn])
		if id == "" {
			continue
		}
		v, _ := coerceFloat(row["value"])
		out[id] = v
	}
	return out, nil
}

func (s *SpecialFormulas) adSpendPlan(filters MetricFilters) (string, map[string]any) {
	meta, _ := LookupTable(TableAdSpend)
	applied := s.applier.Apply(filters, meta)
	q := &querySpec{from: TableAdSpend}
	q.addSelect("COALESCE(SUM(amount), 0)", "value")
	q.addWhere(applied.clauses()...)
	return q.SQL(), applied.Params
}

// roi is cash collected over ad spend, zero when nothing was spent.
func (s *SpecialFormulas) roi(ctx context.Context, filters MetricFilters, settings WidgetSettings) (MetricResult, error) {
	apptMeta, _ := LookupTable(TableAppointments)
	apptApplied := s.applier.Apply(filters, apptMeta)

	cashQ := &querySpec{from: TableAppointments}
	cashQ.addSelect("COALESCE(SUM(cash_collected), 0)", "value")
	cashQ.addWhere(apptApplied.clauses()...)

	spendSQL, spendParams := s.adSpendPlan(filters)

	var cash, spend float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cash, err = s.scalar(gctx, cashQ.SQL(), apptApplied.Params)
		return err
	})
	g.Go(func() error {
		var err error
		spend, err = s.scalar(gctx, spendSQL, spendParams)
		return err
	})
	if err := g.Wait(); err != nil {
		return MetricResult{}, err
	}

	value := 0.0
	if spend > 0 {
		value = cash / spend
		if settings.RoiDisplayMode == DisplayPercent {
			value -= 1
		}
	}
	return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: value}}, nil
}

// repROI allocates account-wide spend to each rep in proportion to their
// share of total appointment volume, then divides the rep's cash by that
// allocated cost. The spend and volume denominators deliberately ignore
// rep/setter filters.
func (s *SpecialFormulas) repROI(ctx context.Context, filters MetricFilters, settings WidgetSettings) (MetricResult, error) {
	meta, _ := LookupTable(TableAppointments)
	applied := s.applier.Apply(filters, meta)
	accountWide := applied.withoutEntityFilters()

	repCashQ := &querySpec{from: TableAppointments}
	repCashQ.addSelect(meta.RepColumn, "rep_id")
	repCashQ.addSelect("COALESCE(SUM(cash_collected), 0)", "value")
	repCashQ.addWhere(applied.clauses()...)
	repCashQ.addWhere(meta.RepColumn + " IS NOT NULL")
	repCashQ.addGroupBy(meta.RepColumn)

	repApptQ := &querySpec{from: TableAppointments}
	repApptQ.addSelect(meta.RepColumn, "rep_id")
	repApptQ.addSelect("COUNT(*)", "value")
	repApptQ.addWhere(applied.clauses()...)
	repApptQ.addWhere(meta.RepColumn + " IS NOT NULL")
	repApptQ.addGroupBy(meta.RepColumn)

	totalApptQ := &querySpec{from: TableAppointments}
	totalApptQ.addSelect("COUNT(*)", "value")
	totalApptQ.addWhere(accountWide.clauses()...)

	spendSQL, spendParams := s.adSpendPlan(filters)

	var repCash, repAppts map[string]float64
	var totalAppts, totalSpend float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		repCash, err = s.entityTotals(gctx, repCashQ.SQL(), applied.Params, "rep_id")
		return err
	})
	g.Go(func() error {
		var err error
		repAppts, err = s.entityTotals(gctx, repApptQ.SQL(), applied.Params, "rep_id")
		return err
	})
	g.Go(func() error {
		var err error
		totalAppts, err = s.scalar(gctx, totalApptQ.SQL(), accountWide.Params)
		return err
	})
	g.Go(func() error {
		var err error
		totalSpend, err = s.scalar(gctx, spendSQL, spendParams)
		return err
	})
	if err := g.Wait(); err != nil {
		return MetricResult{}, err
	}

	reps := make([]RepValue, 0, len(repAppts))
	for repID, appts := range repAppts {
		value := 0.0
		if totalAppts > 0 && appts > 0 {
			allocated := (totalSpend / totalAppts) * appts
			if allocated > 0 {
				value = repCash[repID] / allocated
				if settings.RoiDisplayMode != DisplayMultiplier {
					// percent display is the default: 2.5x spend reads as 150%
					value -= 1
				}
			}
		}
		reps = append(reps, RepValue{RepID: repID, Value: value})
	}
	sortRepValues(reps)
	return MetricResult{Breakdown: BreakdownRep, Reps: reps}, nil
}

// costPerBookedCall divides account-wide spend by account-wide appointment
// volume. Entity breakdowns list each entity carrying the same account
// average; the allocation is per appointment, not per entity budget.
func (s *SpecialFormulas) costPerBookedCall(ctx context.Context, filters MetricFilters, breakdown BreakdownType) (MetricResult, error) {
	meta, _ := LookupTable(TableAppointments)
	applied := s.applier.Apply(filters, meta)
	accountWide := applied.withoutEntityFilters()

	totalApptQ := &querySpec{from: TableAppointments}
	totalApptQ.addSelect("COUNT(*)", "value")
	totalApptQ.addWhere(accountWide.clauses()...)

	spendSQL, spendParams := s.adSpendPlan(filters)

	var totalAppts, totalSpend float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totalAppts, err = s.scalar(gctx, totalApptQ.SQL(), accountWide.Params)
		return err
	})
	g.Go(func() error {
		var err error
		totalSpend, err = s.scalar(gctx, spendSQL, spendParams)
		return err
	})
	if err := g.Wait(); err != nil {
		return MetricResult{}, err
	}

	average := 0.0
	if totalAppts > 0 {
		average = totalSpend / totalAppts
	}

	switch breakdown {
	case BreakdownTotal:
		return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: average}}, nil
	case BreakdownRep:
		counts, err := s.appointmentCountsBy(ctx, applied, meta.RepColumn, "rep_id")
		if err != nil {
			return MetricResult{}, err
		}
		reps := make([]RepValue, 0, len(counts))
		for id := range counts {
			reps = append(reps, RepValue{RepID: id, Value: average})
		}
		sortRepValues(reps)
		return MetricResult{Breakdown: BreakdownRep, Reps: reps}, nil
	case BreakdownSetter:
		counts, err := s.appointmentCountsBy(ctx, applied, meta.SetterColumn, "setter_id")
		if err != nil {
			return MetricResult{}, err
		}
		setters := make([]SetterValue, 0, len(counts))
		for id := range counts {
			setters = append(setters, SetterValue{SetterID: id, Value: average})
		}
		sortSetterValues(setters)
		return MetricResult{Breakdown: BreakdownSetter, Setters: setters}, nil
	case BreakdownLink:
		// per-pair cost is the account-wide average regardless of the pair
		pairQ := &querySpec{from: TableAppointments}
		pairQ.addSelect(meta.SetterColumn, "setter_id")
		pairQ.addSelect(meta.RepColumn, "rep_id")
		pairQ.addSelect("COUNT(*)", "value")
		pairQ.addWhere(applied.clauses()...)
		pairQ.addWhere(meta.SetterColumn+" IS NOT NULL", meta.RepColumn+" IS NOT NULL")
		pairQ.addGroupBy(meta.SetterColumn, meta.RepColumn)

		rows, err := s.executor.Query(ctx, pairQ.SQL(), applied.Params)
		if err != nil {
			return MetricResult{}, err
		}
		links := make([]LinkValue, 0, len(rows))
		for _, row := range rows {
			setterID := coerceString(row["setter_id"])
			repID := coerceString(row["rep_id"])
			if setterID == "" || repID == "" {
				continue
			}
			links = append(links, LinkValue{SetterID: setterID, RepID: repID, Value: average})
		}
		return MetricResult{Breakdown: BreakdownLink, Links: links}, nil
	}
	return MetricResult{}, fmt.Errorf("cost_per_booked_call does not support breakdown %q", breakdown)
}

func (s *SpecialFormulas) appointmentCountsBy(ctx context.Context, applied AppliedFilters, column, alias string) (map[string]float64, error) {
	q := &querySpec{from: TableAppointments}
	q.addSelect(column, alias)
	q.addSelect("COUNT(*)", "value")
	q.addWhere(applied.clauses()...)
	q.addWhere(column + " IS NOT NULL")
	q.addGroupBy(column)
	return s.entityTotals(ctx, q.SQL(), applied.Params, alias)
}

// leadToAppointment measures the share of leads created in range that went
// on to book at least one appointment. The cohort is pinned to lead
// creation date; when the appointment happened does not matter.
func (s *SpecialFormulas) leadToAppointment(ctx context.Context, filters MetricFilters) (MetricResult, error) {
	meta, _ := LookupTable(TableLeads)
	applied := s.applier.Apply(filters, meta)

	q := &querySpec{from: TableLeads}
	q.addSelect("COUNT(DISTINCT id)", "total")
	q.addSelect("COUNT(DISTINCT id) FILTER (WHERE EXISTS (SELECT 1 FROM appointments a WHERE a.lead_id = leads.id))", "booked")
	q.addWhere(applied.clauses()...)

	rows, err := s.executor.Query(ctx, q.SQL(), applied.Params)
	if err != nil {
		return MetricResult{}, err
	}

	var total, booked float64
	if len(rows) > 0 {
		total, _ = coerceFloat(rows[0]["total"])
		booked, _ = coerceFloat(rows[0]["booked"])
	}
	value := 0.0
	if total > 0 {
		value = 100 * booked / total
	}
	return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: value}}, nil
}

// dataCompletionRate unions appointments and discoveries and measures how
// many assigned records have their data filled.
func (s *SpecialFormulas) dataCompletionRate(ctx context.Context, filters MetricFilters) (MetricResult, error) {
	apptMeta, _ := LookupTable(TableAppointments)
	applied := s.applier.Apply(filters, apptMeta)
	clauses := applied.clauses()

	appt := &querySpec{from: TableAppointments}
	appt.addSelect("data_filled", "")
	appt.addWhere(clauses...)
	appt.addWhere(apptMeta.RepColumn + " IS NOT NULL")

	disc := &querySpec{from: TableDiscoveries}
	disc.addSelect("data_filled", "")
	disc.addWhere(clauses...)
	disc.addWhere(apptMeta.RepColumn + " IS NOT NULL")

	sqlText := fmt.Sprintf(
		"SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE data_filled) AS filled FROM (%s UNION ALL %s) u",
		appt.SQL(), disc.SQL(),
	)

	rows, err := s.executor.Query(ctx, sqlText, applied.Params)
	if err != nil {
		return MetricResult{}, err
	}

	var total, filled float64
	if len(rows) > 0 {
		total, _ = coerceFloat(rows[0]["total"])
		filled, _ = coerceFloat(rows[0]["filled"])
	}
	value := 0.0
	if total > 0 {
		value = 100 * filled / total
	}
	return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: value}}, nil
}

// overdue counts records more than 24 hours past their scheduled time with
// data still missing. The percentage divides by all not-yet-filled records
// in range, not all records.
func (s *SpecialFormulas) overdue(ctx context.Context, filters MetricFilters, asPercentage bool) (MetricResult, error) {
	apptMeta, _ := LookupTable(TableAppointments)
	applied := s.applier.Apply(filters, apptMeta)
	clauses := applied.clauses()

	appt := &querySpec{from: TableAppointments}
	appt.addSelect("scheduled_at", "")
	appt.addWhere(clauses...)
	appt.addWhere("NOT data_filled")

	disc := &querySpec{from: TableDiscoveries}
	disc.addSelect("scheduled_at", "")
	disc.addWhere(clauses...)
	disc.addWhere("NOT data_filled")

	sqlText := fmt.Sprintf(
		"SELECT COUNT(*) AS unfilled, COUNT(*) FILTER (WHERE scheduled_at < NOW() - INTERVAL '24 hours') AS overdue FROM (%s UNION ALL %s) u",
		appt.SQL(), disc.SQL(),
	)

	rows, err := s.executor.Query(ctx, sqlText, applied.Params)
	if err != nil {
		return MetricResult{}, err
	}

	var unfilled, overdue float64
	if len(rows) > 0 {
		unfilled, _ = coerceFloat(rows[0]["unfilled"])
		overdue, _ = coerceFloat(rows[0]["overdue"])
	}

	if !asPercentage {
		return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: overdue}}, nil
	}
	value := 0.0
	if unfilled > 0 {
		value = 100 * overdue / unfilled
	}
	return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: value}}, nil
}

// cashPerDial traces cash collected on appointments back to the dial that
// booked them via the booking reference, then divides by total dial count.
func (s *SpecialFormulas) cashPerDial(ctx context.Context, filters MetricFilters) (MetricResult, error) {
	dialMeta, _ := LookupTable(TableDials)
	applied := s.applier.Apply(filters, dialMeta)

	countQ := &querySpec{from: TableDials}
	countQ.addSelect("COUNT(*)", "value")
	countQ.addWhere(applied.clauses()...)

	cashQ := &querySpec{from: TableDials + " d"}
	cashQ.addSelect("COALESCE(SUM(a.cash_collected), 0)", "value")
	cashQ.addJoin("JOIN appointments a ON a.booking_ref = d.booking_ref AND a.account_id = d.account_id")
	cashQ.addWhere(applied.clausesQualified("d")...)
	cashQ.addWhere("d.booking_ref IS NOT NULL")

	var dials, cash float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dials, err = s.scalar(gctx, countQ.SQL(), applied.Params)
		return err
	})
	g.Go(func() error {
		var err error
		cash, err = s.scalar(gctx, cashQ.SQL(), applied.Params)
		return err
	})
	if err := g.Wait(); err != nil {
		return MetricResult{}, err
	}

	value := 0.0
	if dials > 0 {
		value = cash / dials
	}
	return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: value}}, nil
}

// workRate answers the hours-worked family from the timeframe deriver.
func (s *SpecialFormulas) workRate(ctx context.Context, name string, filters MetricFilters) (MetricResult, error) {
	summary, err := s.worktime.Derive(ctx, filters)
	if err != nil {
		return MetricResult{}, err
	}
	var value float64
	switch name {
	case "hours_worked":
		value = summary.HoursWorked
	case "bookings_per_hour":
		value = summary.BookingsPerHour
	case "dials_per_hour":
		value = summary.DialsPerHour
	}
	return MetricResult{Breakdown: BreakdownTotal, Total: &TotalValue{Value: value}}, nil
}

func sortRepValues(reps []RepValue) {
	sort.Slice(reps, func(i, j int) bool {
		if reps[i].Value != reps[j].Value {
			return reps[i].Value > reps[j].Value
		}
		return reps[i].RepID < reps[j].RepID
	})
}

func sortSetterValues(setters []SetterValue) {
	sort.Slice(setters, func(i, j int) bool {
		if setters[i].Value != setters[j].Value {
			return setters[i].Value > setters[j].Value
		}
		return setters[i].SetterID < setters[j].SetterID
	})
}
