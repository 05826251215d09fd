// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Verify modes.
const (
	VerifyQuick = "quick"
	VerifyFull  = "full"
)

// VerifyIntegrity opens path read-only and runs quick_check or integrity_check.
// It returns nil issues when the database is healthy and the diagnostic rows
// otherwise.
func VerifyIntegrity(ctx context.Context, path string, mode string) ([]string, error) {
	pragma := "PRAGMA quick_check;"
	switch mode {
	case VerifyQuick, "":
	case VerifyFull:
		pragma = "PRAGMA integrity_check;"
	default:
		return nil, fmt.Errorf("sqlite: unknown verify mode %q", mode)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open for verification: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		return nil, fmt.Errorf("sqlite: integrity pragma: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("sqlite: scan integrity row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: integrity rows: %w", err)
	}

	// healthy is exactly one "ok" row
	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil, nil
	}
	if len(results) == 0 {
		return []string{"no results returned from integrity check"}, nil
	}
	return results, nil
}
