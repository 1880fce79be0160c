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

// TransitionRepository handles workflow transition database operations.
type TransitionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func scanTransition(row scanner) (*models.WorkflowTransition, error) {
	var (
		transition models.WorkflowTransition
		from       sql.NullString
	)

	if err := row.Scan(&transition.ID, &from, &transition.ToStateID, &transition.CreatedAt); err != nil {
		return nil, err
	}

	transition.FromStateID = stringPtr(from)

	return &transition, nil
}

// GetTransition retrieves a transition by ID.
func (r *TransitionRepository) GetTransition(ctx context.Context, id string) (*models.WorkflowTransition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, from_state_id, to_state_id, created_at FROM workflow_transitions WHERE id = $1`, id)

	transition, err := scanTransition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTransitionError("GetTransition", id, persistence.ErrTransitionNotFound)
		}

		return nil, fmt.Errorf("failed to scan transition: %w", err)
	}

	return transition, nil
}

// ListTransitions returns transitions in creation order.
func (r *TransitionRepository) ListTransitions(ctx context.Context, filter persistence.TransitionFilter) ([]*models.WorkflowTransition, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.WildcardOnly {
		conditions = append(conditions, "from_state_id IS NULL")
	}

	if filter.FromStateID != "" {
		args = append(args, filter.FromStateID)
		conditions = append(conditions, fmt.Sprintf("from_state_id = $%d", len(args)))
	}

	if filter.ToStateID != "" {
		args = append(args, filter.ToStateID)
		conditions = append(conditions, fmt.Sprintf("to_state_id = $%d", len(args)))
	}

	if filter.StateID != "" {
		args = append(args, filter.StateID)
		conditions = append(conditions, fmt.Sprintf("(from_state_id = $%d OR to_state_id = $%d)", len(args), len(args)))
	}

	query := `SELECT id, from_state_id, to_state_id, created_at FROM workflow_transitions`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}

	query += ` ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	transitions := make([]*models.WorkflowTransition, 0)

	for rows.Next() {
		transition, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}

		transitions = append(transitions, transition)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transitions: %w", err)
	}

	return transitions, nil
}

// CreateTransition inserts a transition. The unique pair index rejects duplicates.
func (r *TransitionRepository) CreateTransition(ctx context.Context, transition *models.WorkflowTransition) error {
	if transition.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate transition ID: %w", err)
		}

		transition.ID = id.String()
	}

	if transition.CreatedAt.IsZero() {
		transition.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workflow_transitions (id, from_state_id, to_state_id, created_at) VALUES ($1, $2, $3, $4)`,
		transition.ID, nullString(transition.FromStateID), transition.ToStateID, transition.CreatedAt,
	)
	if err != nil {
		key := transition.From() + "->" + transition.ToStateID

		if isUniqueViolation(err) {
			return persistence.NewTransitionError("CreateTransition", key, persistence.ErrTransitionAlreadyExists)
		}

		if isForeignKeyViolation(err) {
			return persistence.NewTransitionError("CreateTransition", key, persistence.ErrStateNotFound)
		}

		return fmt.Errorf("failed to insert transition: %w", err)
	}

	return nil
}

// DeleteTransition removes a transition.
func (r *TransitionRepository) DeleteTransition(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_transitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transition: %w", err)
	}

	return requireAffected(result, persistence.NewTransitionError("DeleteTransition", id, persistence.ErrTransitionNotFound))
}
