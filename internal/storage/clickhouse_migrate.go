package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/asset-tokenizer/internal/logging"
)

// RunClickHouseMigrations applies every .sql file under migrationsPath in
// lexical order. There is no version table on the ClickHouse side; the
// statements are written to be idempotent (CREATE TABLE IF NOT EXISTS).
func RunClickHouseMigrations(ctx context.Context, db *ClickHouseDB, migrationsPath string) error {
	logger := logging.GetGlobalLogger()

	entries, err := os.ReadDir(migrationsPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		logger.Warn("No ClickHouse migration files found")
		return nil
	}

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(migrationsPath, name)) // #nosec G304 - path comes from the operator
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		for _, stmt := range splitSQLStatements(string(content)) {
			if err := db.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute statement in %s: %w", name, err)
			}
		}
		logger.WithFields(map[string]interface{}{"file": name}).Info("Applied ClickHouse migration")
	}

	return nil
}

// splitSQLStatements breaks a migration file into statements on terminating
// semicolons, skipping blank and comment-only lines. ClickHouse rejects the
// trailing semicolon, so it is stripped.
func splitSQLStatements(content string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}
	flush()

	return statements
}
