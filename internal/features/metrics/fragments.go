package metrics

import "strings"

// querySpec is the structured form of one SQL statement. Fragments are
// composed as values and serialized to text only at the final step.
type querySpec struct {
	selects []selectFragment
	from    string
	joins   []string
	wheres  []string
	groupBy []string
	having  string
	orderBy string
}

type selectFragment struct {
	expr  string
	alias string
}

func (q *querySpec) addSelect(expr, alias string) *querySpec {
	q.selects = append(q.selects, selectFragment{expr: expr, alias: alias})
	return q
}

func (q *querySpec) addJoin(join string) *querySpec {
	q.joins = append(q.joins, join)
	return q
}

func (q *querySpec) addWhere(clauses ...string) *querySpec {
	for _, c := range clauses {
		if c != "" {
			q.wheres = append(q.wheres, c)
		}
	}
	return q
}

func (q *querySpec) addGroupBy(cols ...string) *querySpec {
	q.groupBy = append(q.groupBy, cols...)
	return q
}

// SQL renders the statement, omitting empty clauses.
func (q *querySpec) SQL() string {
	var b strings.Builder

	b.WriteString("SELECT ")
	for i, s := range q.selects {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.expr)
		if s.alias != "" {
			b.WriteString(" AS ")
			b.WriteString(s.alias)
		}
	}

	b.WriteString(" FROM ")
	b.WriteString(q.from)

	for _, j := range q.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}

	if len(q.wheres) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.wheres, " AND "))
	}

	if len(q.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(q.groupBy, ", "))
	}

	if q.having != "" {
		b.WriteString(" HAVING ")
		b.WriteString(q.having)
	}

	if q.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.orderBy)
	}

	return b.String()
}
