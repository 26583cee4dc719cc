package metrics

// baseCatalog declares every base metric definition. The registry expands
// these over their table's attribution contexts at startup; nothing here
// is mutated afterwards.
//
// Convention: SelectExprs[0] is the value expression; the builder adds
// the alias and any breakdown grouping around it.
var baseCatalog = []MetricDefinition{
	// appointments
	{
		Name:        "total_appointments",
		Description: "Appointments scheduled in range",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableAppointments,
		SelectExprs: []string{"COUNT(*)"},
	},
	{
		Name:        "appointments_booked",
		Description: "Appointments created in range, regardless of when the call happens",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableAppointments,
		DateColumn:  "created_at::date",
		SelectExprs: []string{"COUNT(*)"},
	},
	{
		Name:        "shows",
		Description: "Appointments where the prospect showed",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableAppointments,
		SelectExprs: []string{"COUNT(*)"},
		WhereClauses: []string{
			"show_outcome = 'show'",
		},
	},
	{
		Name:        "no_shows",
		Description: "Appointments where the prospect did not show",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableAppointments,
		SelectExprs: []string{"COUNT(*)"},
		WhereClauses: []string{
			"show_outcome = 'no_show'",
		},
	},
	{
		Name:        "cancels",
		Description: "Appointments cancelled before the call",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableAppointments,
		SelectExprs: []string{"COUNT(*)"},
		WhereClauses: []string{
			"call_outcome = 'cancelled'",
		},
	},
	{
		Name:        "closes",
		Description: "Appointments closed won",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableAppointments,
		SelectExprs: []string{"COUNT(*)"},
		WhereClauses: []string{
			"call_outcome = 'won'",
		},
	},
	{
		Name:        "cash_collected",
		Description: "Cash collected on appointments in range",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCurrency,
		Table:       TableAppointments,
		SelectExprs: []string{"COALESCE(SUM(cash_collected), 0)"},
	},
	{
		Name:        "revenue_generated",
		Description: "Revenue generated on appointments in range",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCurrency,
		Table:       TableAppointments,
		SelectExprs: []string{"COALESCE(SUM(revenue_generated), 0)"},
	},
	{
		Name:        "close_rate",
		Description: "Share of appointments closed won",
		Breakdown:   BreakdownTotal,
		Unit:        UnitPercent,
		Table:       TableAppointments,
		SelectExprs: []string{"100.0 * COUNT(*) FILTER (WHERE call_outcome = 'won') / NULLIF(COUNT(*), 0)"},
		IsRatio:     true,
	},
	{
		Name:        "show_rate",
		Description: "Share of appointments where the prospect showed",
		Breakdown:   BreakdownTotal,
		Unit:        UnitPercent,
		Table:       TableAppointments,
		SelectExprs: []string{"100.0 * COUNT(*) FILTER (WHERE show_outcome = 'show') / NULLIF(COUNT(*), 0)"},
		IsRatio:     true,
	},

	// discoveries
	{
		Name:        "total_discoveries",
		Description: "Discovery calls scheduled in range",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableDiscoveries,
		SelectExprs: []string{"COUNT(*)"},
	},
	{
		Name:        "discovery_shows",
		Description: "Discovery calls where the prospect showed",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableDiscoveries,
		SelectExprs: []string{"COUNT(*)"},
		WhereClauses: []string{
			"show_outcome = 'show'",
		},
	},

	// dials
	{
		Name:        "total_dials",
		Description: "Outbound dials placed in range",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableDials,
		SelectExprs: []string{"COUNT(*)"},
	},
	{
		Name:        "answered_dials",
		Description: "Dials that were answered",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableDials,
		SelectExprs: []string{"COUNT(*)"},
		WhereClauses: []string{
			"answered = TRUE",
		},
	},
	{
		Name:        "answer_rate",
		Description: "Share of dials that were answered",
		Breakdown:   BreakdownTotal,
		Unit:        UnitPercent,
		Table:       TableDials,
		SelectExprs: []string{"100.0 * COUNT(*) FILTER (WHERE answered) / NULLIF(COUNT(*), 0)"},
		IsRatio:     true,
	},
	{
		Name:        "total_talk_time",
		Description: "Total talk time across answered dials",
		Breakdown:   BreakdownTotal,
		Unit:        UnitSeconds,
		Table:       TableDials,
		SelectExprs: []string{"COALESCE(SUM(duration_seconds), 0)"},
	},

	// leads
	{
		Name:        "new_leads",
		Description: "Leads created in range",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableLeads,
		SelectExprs: []string{"COUNT(*)"},
	},

	// ad spend
	{
		Name:        "ad_spend_total",
		Description: "Ad spend recorded in range",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCurrency,
		Table:       TableAdSpend,
		SelectExprs: []string{"COALESCE(SUM(amount), 0)"},
	},

	// special cross-table formulas
	{
		Name:        "roi",
		Description: "Cash collected over ad spend",
		Breakdown:   BreakdownTotal,
		Unit:        UnitPercent,
		Table:       TableAppointments,
		IsSpecial:   true,
		IsRatio:     true,
	},
	{
		Name:        "rep_roi",
		Description: "Per-rep ROI with proportional cost allocation",
		Breakdown:   BreakdownRep,
		Unit:        UnitPercent,
		Table:       TableAppointments,
		IsSpecial:   true,
		IsRatio:     true,
		Options: MetricOptions{
			DisplayModes: []DisplayMode{DisplayMultiplier, DisplayPercent},
		},
	},
	{
		Name:        "cost_per_booked_call",
		Description: "Ad spend per booked appointment",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCurrency,
		Table:       TableAppointments,
		IsSpecial:   true,
		IsRatio:     true,
	},
	{
		Name:        "speed_to_lead",
		Description: "Seconds from lead creation to first call",
		Breakdown:   BreakdownTotal,
		Unit:        UnitSeconds,
		Table:       TableLeads,
		IsSpecial:   true,
		IsRatio:     true,
		Options: MetricOptions{
			Calculations: []CalculationMethod{CalculationAverage, CalculationMedian},
		},
	},
	{
		Name:        "booking_lead_time",
		Description: "Seconds from when an appointment is booked to when the call is scheduled",
		Breakdown:   BreakdownTotal,
		Unit:        UnitSeconds,
		Table:       TableAppointments,
		IsSpecial:   true,
		IsRatio:     true,
		Options: MetricOptions{
			Calculations: []CalculationMethod{CalculationAverage, CalculationMedian},
		},
	},
	{
		Name:        "lead_to_appointment",
		Description: "Share of leads in range that booked at least one appointment",
		Breakdown:   BreakdownTotal,
		Unit:        UnitPercent,
		Table:       TableLeads,
		IsSpecial:   true,
		IsRatio:     true,
	},
	{
		Name:        "data_completion_rate",
		Description: "Share of assigned appointment and discovery records with data filled",
		Breakdown:   BreakdownTotal,
		Unit:        UnitPercent,
		Table:       TableAppointments,
		IsSpecial:   true,
		IsRatio:     true,
	},
	{
		Name:        "overdue_items",
		Description: "Records more than 24h past their scheduled time with data still missing",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableAppointments,
		IsSpecial:   true,
	},
	{
		Name:        "overdue_percentage",
		Description: "Overdue records as a share of all not-yet-filled records",
		Breakdown:   BreakdownTotal,
		Unit:        UnitPercent,
		Table:       TableAppointments,
		IsSpecial:   true,
		IsRatio:     true,
	},
	{
		Name:        "cash_per_dial",
		Description: "Cash collected on appointments traceable to a dial, per dial",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCurrency,
		Table:       TableDials,
		IsSpecial:   true,
		IsRatio:     true,
	},
	{
		Name:        "hours_worked",
		Description: "Hours worked derived from raw call activity",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableDials,
		IsSpecial:   true,
	},
	{
		Name:        "bookings_per_hour",
		Description: "Bookings per hour worked",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableDials,
		IsSpecial:   true,
		IsRatio:     true,
	},
	{
		Name:        "dials_per_hour",
		Description: "Dials per hour worked",
		Breakdown:   BreakdownTotal,
		Unit:        UnitCount,
		Table:       TableDials,
		IsSpecial:   true,
		IsRatio:     true,
	},
}
