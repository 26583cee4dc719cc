package metrics

import (
	"context"
	"fmt"
	"strings"

	"go-salesops/internal/query"

	"go.uber.org/zap"
)

// UserDirectory resolves raw user identifiers to display names. A miss
// degrades to showing the raw id; it is never an error.
type UserDirectory interface {
	DisplayNames(ctx context.Context, accountID string, userIDs []string) map[string]string
}

// PostgresUserDirectory looks display names up from the users table
// through the shared query executor.
type PostgresUserDirectory struct {
	executor query.Executor
	log      *zap.Logger
}

func NewUserDirectory(executor query.Executor, log *zap.Logger) UserDirectory {
	return &PostgresUserDirectory{executor: executor, log: log}
}

func (d *PostgresUserDirectory) DisplayNames(ctx context.Context, accountID string, userIDs []string) map[string]string {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names
	}

	params := map[string]any{"account_id": accountID}
	placeholders := make([]string, len(userIDs))
	for i, id := range userIDs {
		name := fmt.Sprintf("user_id_%d", i)
		placeholders[i] = ":" + name
		params[name] = id
	}

	sqlText := fmt.Sprintf(
		"SELECT id, full_name FROM users WHERE account_id = :account_id AND id IN (%s)",
		strings.Join(placeholders, ", "),
	)

	rows, err := d.executor.Query(ctx, sqlText, params)
	if err != nil {
		d.log.Warn("user name lookup failed, falling back to raw ids", zap.Error(err))
		return names
	}

	for _, row := range rows {
		id, _ := row["id"].(string)
		name, _ := row["full_name"].(string)
		if id != "" && name != "" {
			names[id] = name
		}
	}
	return names
}
