// Package postgresql provides PostgreSQL persistence for workflow configuration, metadata
// standards and vocabularies.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

var _ persistence.Persistence = (*Persistence)(nil)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return newPersistence(database, logger), nil
}

func newPersistence(db *sql.DB, logger *slog.Logger) *Persistence {
	return &Persistence{db: db, logger: logger.With("module", "postgresql")}
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) StateRepository() persistence.StateRepository {
	return &StateRepository{db: p.db, logger: p.logger}
}

func (p *Persistence) TransitionRepository() persistence.TransitionRepository {
	return &TransitionRepository{db: p.db, logger: p.logger}
}

func (p *Persistence) MetricRepository() persistence.MetricRepository {
	return &MetricRepository{db: p.db, logger: p.logger}
}

func (p *Persistence) RuleRepository() persistence.RuleRepository {
	return &RuleRepository{db: p.db, logger: p.logger}
}

func (p *Persistence) StandardRepository() persistence.StandardRepository {
	return &StandardRepository{db: p.db, logger: p.logger}
}

func (p *Persistence) VocabularyRepository() persistence.VocabularyRepository {
	return &VocabularyRepository{db: p.db}
}

type scanner interface {
	Scan(dest ...any) error
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == code
}

func isUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

func marshalJSON(value map[string]any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}

	return json.Marshal(value)
}

func unmarshalJSON(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var value map[string]any

	err := json.Unmarshal(data, &value)

	return value, err
}

func nullString(value *string) sql.NullString {
	if value == nil || *value == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}

	return &value.String
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
