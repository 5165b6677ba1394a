package database

import (
	"fmt"

	dbsql "watchtower/pkg/database/sql"
	"watchtower/pkg/logging"
)

// EnsureSchema applies the embedded schema at startup. Every statement
// in the schema file is idempotent (CREATE IF NOT EXISTS), so repeated
// application against an up-to-date database is a no-op.
func EnsureSchema(db PostgresConn, logger logging.Logger) error {
	content, err := dbsql.Content.ReadFile("schema/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read embedded schema: %w", err)
	}

	if _, err := db.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info("Database schema ensured")
	return nil
}
