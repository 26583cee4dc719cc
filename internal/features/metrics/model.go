package metrics

import "time"

// BreakdownType is the dimension a metric result is grouped by.
type BreakdownType string

const (
	BreakdownTotal  BreakdownType = "total"
	BreakdownRep    BreakdownType = "rep"
	BreakdownSetter BreakdownType = "setter"
	BreakdownLink   BreakdownType = "link"
	BreakdownTime   BreakdownType = "time"
)

// Unit describes how a metric value should be displayed.
type Unit string

const (
	UnitCount    Unit = "count"
	UnitCurrency Unit = "currency"
	UnitPercent  Unit = "percent"
	UnitSeconds  Unit = "seconds"
	UnitDays     Unit = "days"
)

// AttributionContext names the identifier column that "owns" a record
// for crediting purposes.
type AttributionContext string

const (
	AttributionAssigned AttributionContext = "assigned"
	AttributionBooked   AttributionContext = "booked"
	AttributionDialer   AttributionContext = "dialer"
	AttributionNone     AttributionContext = "none"
)

// CalculationMethod selects between aggregate variants of a special metric.
type CalculationMethod string

const (
	CalculationAverage CalculationMethod = "average"
	CalculationMedian  CalculationMethod = "median"
)

// DisplayMode selects between ROI display conventions.
type DisplayMode string

const (
	DisplayMultiplier DisplayMode = "multiplier"
	DisplayPercent    DisplayMode = "percent"
)

// MetricOptions enumerates the variant axes a base metric supports.
type MetricOptions struct {
	Attributions []AttributionContext `json:"attributions,omitempty"`
	Calculations []CalculationMethod  `json:"calculations,omitempty"`
	DisplayModes []DisplayMode        `json:"display_modes,omitempty"`
	TimeFormats  []string             `json:"time_formats,omitempty"`
}

// MetricDefinition is an immutable catalog entry. Definitions are created
// once at process start and never mutated afterwards.
type MetricDefinition struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Breakdown   BreakdownType `json:"breakdown"`
	Unit        Unit          `json:"unit"`
	Table       string        `json:"table"`
	// DateColumn overrides the table's default date column, for metrics
	// counted by a different date dimension (booked-by-creation).
	DateColumn   string             `json:"-"`
	SelectExprs  []string           `json:"-"`
	WhereClauses []string           `json:"-"`
	GroupBy      string             `json:"-"`
	Having       string             `json:"-"`
	OrderBy      string             `json:"-"`
	IsSpecial    bool               `json:"is_special"`
	IsRatio      bool               `json:"is_ratio"` // undefined (NULL) at empty time buckets instead of zero
	Attribution  AttributionContext `json:"attribution,omitempty"`
	Options      MetricOptions      `json:"options,omitempty"`
}

// DateRange holds inclusive ISO calendar dates (YYYY-MM-DD).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MetricFilters is the caller-supplied filter set for one request.
type MetricFilters struct {
	DateRange DateRange `json:"date_range"`
	AccountID string    `json:"account_id"`
	RepIDs    []string  `json:"rep_ids,omitempty"`
	SetterIDs []string  `json:"setter_ids,omitempty"`
}

// FilterDimension classifies what a condition constrains, so formulas
// that need account-wide scans can strip entity conditions without
// inspecting parameter names.
type FilterDimension string

const (
	DimensionDate    FilterDimension = "date"
	DimensionAccount FilterDimension = "account"
	DimensionEntity  FilterDimension = "entity"
)

// FilterCondition is one parameterized predicate of an applied filter.
type FilterCondition struct {
	Field     string
	Operator  string // ">=", "<=", "=", "IN"
	Dimension FilterDimension
	ParamName string
	// ParamNames is set instead of ParamName for IN conditions,
	// one placeholder per element.
	ParamNames []string
}

// AppliedFilters is the table-aware, parameterized form of MetricFilters.
type AppliedFilters struct {
	Conditions []FilterCondition
	Params     map[string]any
}

// WidgetSettings carries variant selectors consumed only by special formulas.
type WidgetSettings struct {
	SpeedToLeadCalculation     CalculationMethod `json:"speed_to_lead_calculation,omitempty"`
	SpeedToLeadBusinessHours   bool              `json:"speed_to_lead_business_hours,omitempty"`
	BookingLeadTimeCalculation CalculationMethod `json:"booking_lead_time_calculation,omitempty"`
	RoiDisplayMode             DisplayMode       `json:"roi_display_mode,omitempty"`
}

// RequestOptions tunes how one request is built and visualized.
type RequestOptions struct {
	VizType          string          `json:"viz_type,omitempty"` // "kpi" or a chart type
	DynamicBreakdown BreakdownType   `json:"dynamic_breakdown,omitempty"`
	WidgetSettings   *WidgetSettings `json:"widget_settings,omitempty"`
}

// MetricRequest is the inbound request for one metric computation.
type MetricRequest struct {
	MetricName string          `json:"metric_name"`
	Filters    MetricFilters   `json:"filters"`
	Options    *RequestOptions `json:"options,omitempty"`
}

// TotalValue is the total-breakdown result member.
type TotalValue struct {
	Value float64 `json:"value"`
}

// RepValue is one per-rep result row.
type RepValue struct {
	RepID   string  `json:"rep_id"`
	RepName string  `json:"rep_name,omitempty"`
	Value   float64 `json:"value"`
}

// SetterValue is one per-setter result row.
type SetterValue struct {
	SetterID   string  `json:"setter_id"`
	SetterName string  `json:"setter_name,omitempty"`
	Value      float64 `json:"value"`
}

// LinkValue is one setter->rep pair result row.
type LinkValue struct {
	SetterID   string  `json:"setter_id"`
	SetterName string  `json:"setter_name,omitempty"`
	RepID      string  `json:"rep_id"`
	RepName    string  `json:"rep_name,omitempty"`
	Value      float64 `json:"value"`
}

// TimePoint is one bucket of a time-series result. Value is nil for
// ratio metrics with an empty bucket (undefined, not zero).
type TimePoint struct {
	Date  string   `json:"date"` // ISO date of the bucket start
	Value *float64 `json:"value"`
}

// MetricResult is a closed union: exactly the member matching Breakdown
// is populated.
type MetricResult struct {
	Breakdown BreakdownType `json:"breakdown"`
	Total     *TotalValue   `json:"total,omitempty"`
	Reps      []RepValue    `json:"reps,omitempty"`
	Setters   []SetterValue `json:"setters,omitempty"`
	Links     []LinkValue   `json:"links,omitempty"`
	Series    []TimePoint   `json:"series,omitempty"`
}

// MetricResponse is what execute returns for every well-formed request.
type MetricResponse struct {
	RequestID       string        `json:"request_id"`
	MetricName      string        `json:"metric_name"`
	Filters         MetricFilters `json:"filters"`
	Result          MetricResult  `json:"result"`
	ExecutedAt      time.Time     `json:"executed_at"`
	ExecutionTimeMs int64         `json:"execution_time_ms"`
}

// zeroResult returns the empty/zero result of the given breakdown shape.
func zeroResult(breakdown BreakdownType) MetricResult {
	res := MetricResult{Breakdown: breakdown}
	switch breakdown {
	case BreakdownTotal:
		res.Total = &TotalValue{Value: 0}
	case BreakdownRep:
		res.Reps = []RepValue{}
	case BreakdownSetter:
		res.Setters = []SetterValue{}
	case BreakdownLink:
		res.Links = []LinkValue{}
	case BreakdownTime:
		res.Series = []TimePoint{}
	}
	return res
}
