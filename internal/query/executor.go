package query

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"go-salesops/internal/database"
)

// Executor is the single query-execution entry point the metrics engine
// talks to. SQL text uses :name placeholders; every value flows through
// the parameter map, never through the text itself.
type Executor interface {
	Query(ctx context.Context, sqlText string, params map[string]any) ([]map[string]any, error)
}

// PostgresExecutor executes parameterized queries against Postgres,
// rewriting :name placeholders to positional $n bindings.
type PostgresExecutor struct {
	db *sql.DB
}

func NewExecutor(pg *database.PostgresDB) Executor {
	return &PostgresExecutor{db: pg.DB}
}

func (e *PostgresExecutor) Query(ctx context.Context, sqlText string, params map[string]any) ([]map[string]any, error) {
	bound, args, err := BindNamed(sqlText, params)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, bound, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	data, err := rowsToMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to process query results: %w", err)
	}

	return data, nil
}

// BindNamed rewrites :name placeholders in sqlText to $1..$n and returns
// the positional argument list. A "::" sequence is left alone so Postgres
// casts survive. An unknown placeholder is an error; unused parameters
// are ignored.
func BindNamed(sqlText string, params map[string]any) (string, []any, error) {
	var out strings.Builder
	var args []any
	seen := map[string]int{}

	for i := 0; i < len(sqlText); i++ {
		c := sqlText[i]
		if c != ':' {
			out.WriteByte(c)
			continue
		}
		// "::" is a cast, not a placeholder
		if i+1 < len(sqlText) && sqlText[i+1] == ':' {
			out.WriteString("::")
			i++
			continue
		}
		j := i + 1
		for j < len(sqlText) && isNameByte(sqlText[j]) {
			j++
		}
		if j == i+1 {
			out.WriteByte(c)
			continue
		}
		name := sqlText[i+1 : j]
		pos, ok := seen[name]
		if !ok {
			value, exists := params[name]
			if !exists {
				return "", nil, fmt.Errorf("missing query parameter %q", name)
			}
			args = append(args, value)
			pos = len(args)
			seen[name] = pos
		}
		fmt.Fprintf(&out, "$%d", pos)
		i = j - 1
	}

	return out.String(), args, nil
}

func isNameByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// ParamNames returns the sorted placeholder names in sqlText, used by tests
// to assert a built query binds exactly what it should.
func ParamNames(sqlText string) []string {
	set := map[string]struct{}{}
	for i := 0; i < len(sqlText); i++ {
		if sqlText[i] != ':' {
			continue
		}
		if i+1 < len(sqlText) && sqlText[i+1] == ':' {
			i++
			continue
		}
		j := i + 1
		for j < len(sqlText) && isNameByte(sqlText[j]) {
			j++
		}
		if j > i+1 {
			set[sqlText[i+1:j]] = struct{}{}
		}
		i = j - 1
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// rowsToMaps converts SQL rows to a slice of maps
func rowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []map[string]any{}

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any)
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}

		result = append(result, row)
	}

	return result, rows.Err()
}
