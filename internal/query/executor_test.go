package query

import (
	"context"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestBindNamed(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		params   map[string]any
		wantSQL  string
		wantArgs []any
		wantErr  bool
	}{
		{
			name:     "single placeholder",
			sql:      "SELECT * FROM t WHERE a = :a",
			params:   map[string]any{"a": 1},
			wantSQL:  "SELECT * FROM t WHERE a = $1",
			wantArgs: []any{1},
		},
		{
			name:     "repeated placeholder binds once",
			sql:      "SELECT :a + :b + :a",
			params:   map[string]any{"a": 1, "b": 2},
			wantSQL:  "SELECT $1 + $2 + $1",
			wantArgs: []any{1, 2},
		},
		{
			name:     "cast is not a placeholder",
			sql:      "SELECT created_at::date FROM t WHERE a = :a",
			params:   map[string]any{"a": "x"},
			wantSQL:  "SELECT created_at::date FROM t WHERE a = $1",
			wantArgs: []any{"x"},
		},
		{
			name:     "array literal with casts",
			sql:      "SELECT * FROM UNNEST(ARRAY[:b0, :b1]::date[]) s(d)",
			params:   map[string]any{"b0": "2024-01-01", "b1": "2024-01-02"},
			wantSQL:  "SELECT * FROM UNNEST(ARRAY[$1, $2]::date[]) s(d)",
			wantArgs: []any{"2024-01-01", "2024-01-02"},
		},
		{
			name:    "missing parameter",
			sql:     "SELECT :missing",
			params:  map[string]any{},
			wantErr: true,
		},
		{
			name:     "unused parameters are ignored",
			sql:      "SELECT :a",
			params:   map[string]any{"a": 1, "extra": 2},
			wantSQL:  "SELECT $1",
			wantArgs: []any{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotArgs, err := BindNamed(tt.sql, tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BindNamed() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if gotSQL != tt.wantSQL {
				t.Errorf("sql = %q, want %q", gotSQL, tt.wantSQL)
			}
			if !reflect.DeepEqual(gotArgs, tt.wantArgs) {
				t.Errorf("args = %v, want %v", gotArgs, tt.wantArgs)
			}
		})
	}
}

func TestParamNames(t *testing.T) {
	got := ParamNames("SELECT x::date FROM t WHERE a = :start_date AND b IN (:id_0, :id_1) AND a = :start_date")
	want := []string{"id_0", "id_1", "start_date"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParamNames() = %v, want %v", got, want)
	}
}

func TestExecutorQuery(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT(*) AS value FROM appointments WHERE account_id = $1").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(42)))

	executor := &PostgresExecutor{db: db}
	rows, err := executor.Query(
		context.Background(),
		"SELECT COUNT(*) AS value FROM appointments WHERE account_id = :account_id",
		map[string]any{"account_id": "acct-1"},
	)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["value"] != int64(42) {
		t.Errorf("value = %v, want 42", rows[0]["value"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExecutorQueryBytesBecomeStrings(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"rep_id"}).AddRow([]byte("user-7")))

	executor := &PostgresExecutor{db: db}
	rows, err := executor.Query(context.Background(), "SELECT rep_id FROM t", nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if rows[0]["rep_id"] != "user-7" {
		t.Errorf("rep_id = %v (%T), want string user-7", rows[0]["rep_id"], rows[0]["rep_id"])
	}
}
