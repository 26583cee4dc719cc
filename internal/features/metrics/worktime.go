package metrics

import (
	"context"
	"fmt"
	"time"

	"go-salesops/internal/config"
	"go-salesops/internal/query"

	"go.uber.org/zap"
)

// minimum elapsed time credited to a (user, day) group. Prevents a
// single-call day from producing a near-zero divisor.
const minWorkedHours = 0.1

// callerRoles are the user roles whose call activity counts as work time.
var callerRoles = []string{"caller", "setter"}

// WorkTimeframeSummary is the derived hours-worked aggregate. There is no
// stored aggregate behind it; everything comes from raw call-log rows.
type WorkTimeframeSummary struct {
	HoursWorked     float64 `json:"hours_worked"`
	TotalDials      float64 `json:"total_dials"`
	TotalBookings   float64 `json:"total_bookings"`
	BookingsPerHour float64 `json:"bookings_per_hour"`
	DialsPerHour    float64 `json:"dials_per_hour"`
}

// WorkTimeframeDeriver computes per-user, per-local-day worked hours from
// raw dial timestamps.
type WorkTimeframeDeriver struct {
	executor query.Executor
	applier  *FilterApplier
	timezone string
	log      *zap.Logger
}

func NewWorkTimeframeDeriver(executor query.Executor, applier *FilterApplier, cfg *config.Config, log *zap.Logger) *WorkTimeframeDeriver {
	return &WorkTimeframeDeriver{
		executor: executor,
		applier:  applier,
		timezone: cfg.DefaultTimezone,
		log:      log,
	}
}

type workGroup struct {
	first    time.Time
	last     time.Time
	dials    float64
	bookings float64
}

// Derive pulls raw call rows in range for the account's caller-role users,
// groups them by (user, local day) and credits each group
// max(last-first, 0.1h) of worked time. Zero total hours yields zero
// rates, never an error.
func (d *WorkTimeframeDeriver) Derive(ctx context.Context, filters MetricFilters) (WorkTimeframeSummary, error) {
	callers, err := d.callerIDs(ctx, filters.AccountID)
	if err != nil {
		return WorkTimeframeSummary{}, err
	}
	if len(callers) == 0 {
		return WorkTimeframeSummary{}, nil
	}

	meta, _ := LookupTable(TableDials)
	applied := d.applier.Apply(filters, meta)

	q := &querySpec{from: TableDials}
	q.addSelect("user_id", "")
	q.addSelect("created_at", "")
	q.addSelect("(booking_ref IS NOT NULL)", "booked")
	q.addWhere(applied.clauses()...)
	q.orderBy = "created_at"

	rows, err := d.executor.Query(ctx, q.SQL(), applied.Params)
	if err != nil {
		return WorkTimeframeSummary{}, err
	}

	loc := d.location()
	groups := make(map[string]*workGroup)
	for _, row := range rows {
		userID := coerceString(row["user_id"])
		if _, isCaller := callers[userID]; !isCaller {
			continue
		}
		at, ok := coerceTime(row["created_at"])
		if !ok {
			continue
		}
		local := at.In(loc)
		key := userID + "|" + local.Format(isoDate)

		g, exists := groups[key]
		if !exists {
			g = &workGroup{first: local, last: local}
			groups[key] = g
		}
		if local.Before(g.first) {
			g.first = local
		}
		if local.After(g.last) {
			g.last = local
		}
		g.dials++
		if coerceBool(row["booked"]) {
			g.bookings++
		}
	}

	var summary WorkTimeframeSummary
	for _, g := range groups {
		elapsed := g.last.Sub(g.first).Hours()
		if elapsed < minWorkedHours {
			elapsed = minWorkedHours
		}
		summary.HoursWorked += elapsed
		summary.TotalDials += g.dials
		summary.TotalBookings += g.bookings
	}

	if summary.HoursWorked > 0 {
		summary.BookingsPerHour = summary.TotalBookings / summary.HoursWorked
		summary.DialsPerHour = summary.TotalDials / summary.HoursWorked
	}
	return summary, nil
}

// callerIDs returns the set of account users with a caller role.
func (d *WorkTimeframeDeriver) callerIDs(ctx context.Context, accountID string) (map[string]struct{}, error) {
	params := map[string]any{"account_id": accountID}
	placeholders := ""
	for i, role := range callerRoles {
		name := fmt.Sprintf("role_%d", i)
		if i > 0 {
			placeholders += ", "
		}
		placeholders += ":" + name
		params[name] = role
	}

	sqlText := fmt.Sprintf(
		"SELECT id FROM users WHERE account_id = :account_id AND role IN (%s)",
		placeholders,
	)
	rows, err := d.executor.Query(ctx, sqlText, params)
	if err != nil {
		return nil, fmt.Errorf("caller lookup failed: %w", err)
	}

	out := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if id := coerceString(row["id"]); id != "" {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (d *WorkTimeframeDeriver) location() *time.Location {
	loc, err := time.LoadLocation(d.timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
