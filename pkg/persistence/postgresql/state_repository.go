package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/google/uuid"
)

const stateColumns = `
	id
  , name
  , title
  , description
  , rules
  , records_are_private
  , revert_target_id
  , status
  , created_at
  , updated_at
  , deleted_at
`

// StateRepository handles workflow state database operations.
type StateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func scanState(row scanner) (*models.WorkflowState, error) {
	var (
		state        models.WorkflowState
		rules        []byte
		revertTarget sql.NullString
		status       string
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&state.ID,
		&state.Name,
		&state.Title,
		&state.Description,
		&rules,
		&state.RecordsArePrivate,
		&revertTarget,
		&status,
		&state.CreatedAt,
		&state.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	state.Rules, err = unmarshalJSON(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules of state %s: %w", state.ID, err)
	}

	state.Status = models.StateStatus(status)
	state.RevertTargetID = stringPtr(revertTarget)

	if deletedAt.Valid {
		state.DeletedAt = &deletedAt.Time
	}

	return &state, nil
}

// GetState retrieves a state by ID or name.
func (r *StateRepository) GetState(ctx context.Context, idOrName string) (*models.WorkflowState, error) {
	query := `SELECT ` + stateColumns + ` FROM workflow_states WHERE id = $1 OR name = $1 LIMIT 1`

	state, err := scanState(r.db.QueryRowContext(ctx, query, idOrName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStateError("GetState", idOrName, persistence.ErrStateNotFound)
		}

		return nil, fmt.Errorf("failed to scan state: %w", err)
	}

	return state, nil
}

// ListStates returns states in creation order.
func (r *StateRepository) ListStates(ctx context.Context, filter persistence.StateFilter) ([]*models.WorkflowState, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if filter.RevertTargetID != "" {
		args = append(args, filter.RevertTargetID)
		conditions = append(conditions, fmt.Sprintf("revert_target_id = $%d", len(args)))
	}

	query := `SELECT ` + stateColumns + ` FROM workflow_states`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}

	query += ` ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query states: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	states := make([]*models.WorkflowState, 0)

	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}

		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating states: %w", err)
	}

	return states, nil
}

// CreateState inserts a new state, assigning an ID when none is set.
func (r *StateRepository) CreateState(ctx context.Context, state *models.WorkflowState) error {
	if state.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate state ID: %w", err)
		}

		state.ID = id.String()
	}

	if state.Status == "" {
		state.Status = models.StateStatusActive
	}

	now := time.Now().UTC()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}

	state.UpdatedAt = now

	rules, err := marshalJSON(state.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	query := `
		INSERT INTO workflow_states (
			id, name, title, description, rules, records_are_private,
			revert_target_id, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		state.ID, state.Name, state.Title, state.Description, rules, state.RecordsArePrivate,
		nullString(state.RevertTargetID), string(state.Status), state.CreatedAt, state.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStateError("CreateState", state.Name, persistence.ErrStateAlreadyExists)
		}

		if isForeignKeyViolation(err) {
			return persistence.NewStateError("CreateState", *state.RevertTargetID, persistence.ErrStateNotFound)
		}

		return fmt.Errorf("failed to insert state: %w", err)
	}

	return nil
}

// UpdateState replaces the mutable columns of a state.
func (r *StateRepository) UpdateState(ctx context.Context, state *models.WorkflowState) error {
	state.UpdatedAt = time.Now().UTC()

	rules, err := marshalJSON(state.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	query := `
		UPDATE workflow_states SET
			name = $2
		  , title = $3
		  , description = $4
		  , rules = $5
		  , records_are_private = $6
		  , revert_target_id = $7
		  , status = $8
		  , updated_at = $9
		  , deleted_at = $10
		WHERE id = $1
	`

	var deletedAt sql.NullTime
	if state.DeletedAt != nil {
		deletedAt = sql.NullTime{Time: *state.DeletedAt, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		state.ID, state.Name, state.Title, state.Description, rules, state.RecordsArePrivate,
		nullString(state.RevertTargetID), string(state.Status), state.UpdatedAt, deletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewStateError("UpdateState", state.Name, persistence.ErrStateAlreadyExists)
		}

		if isForeignKeyViolation(err) {
			return persistence.NewStateError("UpdateState", *state.RevertTargetID, persistence.ErrStateNotFound)
		}

		return fmt.Errorf("failed to update state: %w", err)
	}

	return requireAffected(result, persistence.NewStateError("UpdateState", state.ID, persistence.ErrStateNotFound))
}

// DeleteState marks a state as deleted.
func (r *StateRepository) DeleteState(ctx context.Context, id string) error {
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE workflow_states SET status = $2, deleted_at = $3, updated_at = $3 WHERE id = $1`,
		id, string(models.StateStatusDeleted), now,
	)
	if err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}

	return requireAffected(result, persistence.NewStateError("DeleteState", id, persistence.ErrStateNotFound))
}

// requireAffected returns notFound when the statement touched no rows.
func requireAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}
