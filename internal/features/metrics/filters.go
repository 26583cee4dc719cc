package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// identifierPattern is the strict format check applied to every caller
// supplied rep/setter id before it reaches a query parameter.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidationError carries every reason a request failed pre-flight checks.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid metric request: " + strings.Join(e.Reasons, "; ")
}

// ValidateFilters checks the parts of MetricFilters every request must
// carry. These are the only failures a caller should treat as fatal.
func ValidateFilters(filters MetricFilters) error {
	var reasons []string

	if filters.AccountID == "" {
		reasons = append(reasons, "account id is required")
	}
	if filters.DateRange.Start == "" {
		reasons = append(reasons, "date range start is required")
	}
	if filters.DateRange.End == "" {
		reasons = append(reasons, "date range end is required")
	}

	var start, end time.Time
	var err error
	if filters.DateRange.Start != "" {
		if start, err = time.Parse("2006-01-02", filters.DateRange.Start); err != nil {
			reasons = append(reasons, fmt.Sprintf("date range start %q is not an ISO date", filters.DateRange.Start))
		}
	}
	if filters.DateRange.End != "" {
		if end, err = time.Parse("2006-01-02", filters.DateRange.End); err != nil {
			reasons = append(reasons, fmt.Sprintf("date range end %q is not an ISO date", filters.DateRange.End))
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		reasons = append(reasons, "date range start is after end")
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// FilterApplier converts caller filters into table-aware parameterized
// conditions. It never interpolates values into SQL text.
type FilterApplier struct {
	log *zap.Logger
}

func NewFilterApplier(log *zap.Logger) *FilterApplier {
	return &FilterApplier{log: log}
}

// Apply derives AppliedFilters for one table. Date-range and account
// conditions are always present; identifier conditions only when at least
// one valid id survived validation. A list of all-invalid ids behaves as
// "no filter on that dimension", never as "match nothing".
func (a *FilterApplier) Apply(filters MetricFilters, meta TableMeta) AppliedFilters {
	applied := AppliedFilters{Params: map[string]any{}}

	applied.Conditions = append(applied.Conditions, FilterCondition{
		Field:     meta.DateColumn,
		Operator:  ">=",
		Dimension: DimensionDate,
		ParamName: "start_date",
	})
	applied.Params["start_date"] = filters.DateRange.Start

	applied.Conditions = append(applied.Conditions, FilterCondition{
		Field:     meta.DateColumn,
		Operator:  "<=",
		Dimension: DimensionDate,
		ParamName: "end_date",
	})
	applied.Params["end_date"] = filters.DateRange.End

	applied.Conditions = append(applied.Conditions, FilterCondition{
		Field:     meta.AccountColumn,
		Operator:  "=",
		Dimension: DimensionAccount,
		ParamName: "account_id",
	})
	applied.Params["account_id"] = filters.AccountID

	a.applyIDs(&applied, filters.RepIDs, meta.RepColumn, "rep_id")
	a.applyIDs(&applied, filters.SetterIDs, meta.SetterColumn, "setter_id")

	return applied
}

func (a *FilterApplier) applyIDs(applied *AppliedFilters, ids []string, column, paramPrefix string) {
	if column == "" || len(ids) == 0 {
		return
	}

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if identifierPattern.MatchString(id) {
			valid = append(valid, id)
		} else {
			a.log.Warn("dropping invalid identifier from filter",
				zap.String("column", column),
				zap.String("id", id),
			)
		}
	}
	if len(valid) == 0 {
		// every id failed validation: skip the dimension entirely
		return
	}

	if len(valid) == 1 {
		name := paramPrefix + "_0"
		applied.Conditions = append(applied.Conditions, FilterCondition{
			Field:     column,
			Operator:  "=",
			Dimension: DimensionEntity,
			ParamName: name,
		})
		applied.Params[name] = valid[0]
		return
	}

	names := make([]string, len(valid))
	for i, id := range valid {
		names[i] = fmt.Sprintf("%s_%d", paramPrefix, i)
		applied.Params[names[i]] = id
	}
	applied.Conditions = append(applied.Conditions, FilterCondition{
		Field:      column,
		Operator:   "IN",
		Dimension:  DimensionEntity,
		ParamNames: names,
	})
}

// clauses renders each condition as SQL text with :name placeholders.
func (f AppliedFilters) clauses() []string {
	out := make([]string, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		out = append(out, c.render(""))
	}
	return out
}

// clausesQualified renders conditions with a table alias prefix.
func (f AppliedFilters) clausesQualified(alias string) []string {
	out := make([]string, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		out = append(out, c.render(alias))
	}
	return out
}

// withoutEntityFilters returns a copy with entity-dimension conditions
// removed. Account-wide denominators of special formulas use this so
// per-entity ratios stay proportional to the whole account.
func (f AppliedFilters) withoutEntityFilters() AppliedFilters {
	out := AppliedFilters{Params: f.Params}
	for _, c := range f.Conditions {
		if c.Dimension == DimensionEntity {
			continue
		}
		out.Conditions = append(out.Conditions, c)
	}
	return out
}

func (c FilterCondition) render(alias string) string {
	field := c.Field
	if alias != "" {
		field = alias + "." + field
	}
	if c.Operator == "IN" {
		placeholders := make([]string, len(c.ParamNames))
		for i, name := range c.ParamNames {
			placeholders[i] = ":" + name
		}
		return fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", "))
	}
	return fmt.Sprintf("%s %s :%s", field, c.Operator, c.ParamName)
}
