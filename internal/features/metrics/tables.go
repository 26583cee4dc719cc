package metrics

// TableMeta describes the columns and capabilities of one source table.
// Date and account column names differ per table, and not every table
// carries precomputed local-bucket columns.
type TableMeta struct {
	Name          string
	DateColumn    string
	AccountColumn string
	RepColumn     string // assigned rep, empty when the table has none
	SetterColumn  string // setter/booker, empty when the table has none
	DialerColumn  string // call originator, only on call-log tables
	// HasLocalBuckets is true when the table carries local_day /
	// local_week / local_month columns precomputed in account-local time.
	// Tables without them derive buckets by truncating the raw timestamp.
	HasLocalBuckets bool
	Contexts        []AttributionContext
}

const (
	TableAppointments = "appointments"
	TableDiscoveries  = "discoveries"
	TableDials        = "dials"
	TableLeads        = "leads"
	TableAdSpend      = "ad_spend"
	TableUsers        = "users"
)

var tableCatalog = map[string]TableMeta{
	TableAppointments: {
		Name:            TableAppointments,
		DateColumn:      "date",
		AccountColumn:   "account_id",
		RepColumn:       "assigned_user_id",
		SetterColumn:    "booked_by_user_id",
		HasLocalBuckets: true,
		Contexts:        []AttributionContext{AttributionAssigned, AttributionBooked},
	},
	TableDiscoveries: {
		Name:            TableDiscoveries,
		DateColumn:      "date",
		AccountColumn:   "account_id",
		RepColumn:       "assigned_user_id",
		SetterColumn:    "booked_by_user_id",
		HasLocalBuckets: true,
		Contexts:        []AttributionContext{AttributionAssigned, AttributionBooked},
	},
	TableDials: {
		Name:            TableDials,
		DateColumn:      "date",
		AccountColumn:   "account_id",
		RepColumn:       "user_id",
		DialerColumn:    "user_id",
		HasLocalBuckets: true,
		Contexts:        []AttributionContext{AttributionDialer},
	},
	TableLeads: {
		Name: TableLeads,
		// cast keeps the inclusive end-date bound correct against the
		// raw creation timestamp
		DateColumn:    "created_at::date",
		AccountColumn: "account_id",
		RepColumn:     "assigned_user_id",
		// leads keep only the raw creation timestamp
		HasLocalBuckets: false,
	},
	TableAdSpend: {
		Name:            TableAdSpend,
		DateColumn:      "date",
		AccountColumn:   "account_id",
		HasLocalBuckets: true,
	},
	TableUsers: {
		Name:          TableUsers,
		DateColumn:    "created_at",
		AccountColumn: "account_id",
	},
}

// LookupTable returns metadata for a table name; ok is false for tables
// outside the catalog.
func LookupTable(name string) (TableMeta, bool) {
	meta, ok := tableCatalog[name]
	return meta, ok
}

// AttributionContextsFor returns the attribution contexts a table supports.
// An unknown table yields an empty set, which is a valid terminal case.
func AttributionContextsFor(table string) []AttributionContext {
	meta, ok := tableCatalog[table]
	if !ok {
		return nil
	}
	return meta.Contexts
}

// tableForDefinition returns the metric's table metadata with any
// definition-level date override applied. An overridden date dimension
// cannot use the precomputed local buckets, which track the default one.
func tableForDefinition(def MetricDefinition) (TableMeta, bool) {
	meta, ok := tableCatalog[def.Table]
	if !ok {
		return TableMeta{}, false
	}
	if def.DateColumn != "" {
		meta.DateColumn = def.DateColumn
		meta.HasLocalBuckets = false
	}
	return meta, true
}

// entityColumn resolves the identifier column that owns a record for the
// given attribution context, falling back to the breakdown default when
// no attribution is set (rep -> assigned column, setter -> booker column).
func entityColumn(meta TableMeta, attribution AttributionContext, breakdown BreakdownType) string {
	switch attribution {
	case AttributionAssigned:
		return meta.RepColumn
	case AttributionBooked:
		return meta.SetterColumn
	case AttributionDialer:
		return meta.DialerColumn
	}
	if breakdown == BreakdownSetter {
		if meta.SetterColumn != "" {
			return meta.SetterColumn
		}
		return meta.RepColumn
	}
	return meta.RepColumn
}
