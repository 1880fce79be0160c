package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func newID(entity string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate %s ID: %w", entity, err)
	}

	return id.String(), nil
}

// MetricRepository handles workflow metric database operations.
type MetricRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const metricColumns = `id, name, title, description, evaluator, created_at`

func scanMetric(row scanner) (*models.WorkflowMetric, error) {
	var metric models.WorkflowMetric

	err := row.Scan(&metric.ID, &metric.Name, &metric.Title, &metric.Description, &metric.Evaluator, &metric.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &metric, nil
}

func (r *MetricRepository) GetMetric(ctx context.Context, idOrName string) (*models.WorkflowMetric, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+metricColumns+` FROM workflow_metrics WHERE id = $1 OR name = $1 LIMIT 1`, idOrName)

	metric, err := scanMetric(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetMetric", "metric", idOrName, persistence.ErrMetricNotFound)
		}

		return nil, fmt.Errorf("failed to scan metric: %w", err)
	}

	return metric, nil
}

func (r *MetricRepository) ListMetrics(ctx context.Context) ([]*models.WorkflowMetric, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+metricColumns+` FROM workflow_metrics ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	metrics := make([]*models.WorkflowMetric, 0)

	for rows.Next() {
		metric, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}

		metrics = append(metrics, metric)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}

	return metrics, nil
}

func (r *MetricRepository) CreateMetric(ctx context.Context, metric *models.WorkflowMetric) error {
	if metric.ID == "" {
		id, err := newID("metric")
		if err != nil {
			return err
		}

		metric.ID = id
	}

	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workflow_metrics (`+metricColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		metric.ID, metric.Name, metric.Title, metric.Description, metric.Evaluator, metric.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewEntityError("CreateMetric", "metric", metric.Name, persistence.ErrMetricAlreadyExists)
		}

		return fmt.Errorf("failed to insert metric: %w", err)
	}

	return nil
}

// RuleRepository handles workflow rule database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const ruleColumns = `id, state_id, metric_id, body, created_at`

func scanRule(row scanner) (*models.WorkflowRule, error) {
	var (
		rule models.WorkflowRule
		body []byte
	)

	if err := row.Scan(&rule.ID, &rule.StateID, &rule.MetricID, &body, &rule.CreatedAt); err != nil {
		return nil, err
	}

	var err error

	rule.Body, err = unmarshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal body of rule %s: %w", rule.ID, err)
	}

	return &rule, nil
}

func (r *RuleRepository) GetRule(ctx context.Context, id string) (*models.WorkflowRule, error) {
	rule, err := scanRule(r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM workflow_rules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetRule", "rule", id, persistence.ErrRuleNotFound)
		}

		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	return rule, nil
}

// ListRules returns the rules of a state, or every rule when stateID is empty.
func (r *RuleRepository) ListRules(ctx context.Context, stateID string) ([]*models.WorkflowRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM workflow_rules WHERE $1 = '' OR state_id = $1 ORDER BY seq`, stateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	rules := make([]*models.WorkflowRule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) CreateRule(ctx context.Context, rule *models.WorkflowRule) error {
	if rule.ID == "" {
		id, err := newID("rule")
		if err != nil {
			return err
		}

		rule.ID = id
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	body, err := marshalJSON(rule.Body)
	if err != nil {
		return fmt.Errorf("failed to marshal rule body: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO workflow_rules (`+ruleColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		rule.ID, rule.StateID, rule.MetricID, body, rule.CreatedAt,
	)
	if err != nil {
		key := rule.StateID + "/" + rule.MetricID

		if isUniqueViolation(err) {
			return persistence.NewEntityError("CreateRule", "rule", key, persistence.ErrRuleAlreadyExists)
		}

		if isForeignKeyViolation(err) {
			return persistence.NewEntityError("CreateRule", "rule", key, persistence.ErrStateNotFound)
		}

		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) DeleteRule(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	return requireAffected(result, persistence.NewEntityError("DeleteRule", "rule", id, persistence.ErrRuleNotFound))
}

// StandardRepository handles metadata standard database operations.
type StandardRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const standardColumns = `id, name, version, schema, template, parent_id, created_at`

func scanStandard(row scanner) (*models.MetadataStandard, error) {
	var (
		standard models.MetadataStandard
		schema   []byte
		template []byte
		parentID sql.NullString
	)

	err := row.Scan(&standard.ID, &standard.Name, &standard.Version, &schema, &template, &parentID, &standard.CreatedAt)
	if err != nil {
		return nil, err
	}

	if standard.Schema, err = unmarshalJSON(schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema of standard %s: %w", standard.ID, err)
	}

	if standard.Template, err = unmarshalJSON(template); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template of standard %s: %w", standard.ID, err)
	}

	standard.ParentID = stringPtr(parentID)

	return &standard, nil
}

func (r *StandardRepository) getStandard(ctx context.Context, key, where string, args ...any) (*models.MetadataStandard, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+standardColumns+` FROM metadata_standards WHERE `+where, args...)

	standard, err := scanStandard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetStandard", "standard", key, persistence.ErrStandardNotFound)
		}

		return nil, fmt.Errorf("failed to scan standard: %w", err)
	}

	return standard, nil
}

func (r *StandardRepository) GetStandard(ctx context.Context, name, version string) (*models.MetadataStandard, error) {
	return r.getStandard(ctx, name+"@"+version, `name = $1 AND version = $2`, name, version)
}

func (r *StandardRepository) GetStandardByID(ctx context.Context, id string) (*models.MetadataStandard, error) {
	return r.getStandard(ctx, id, `id = $1`, id)
}

func (r *StandardRepository) ListStandards(ctx context.Context) ([]*models.MetadataStandard, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+standardColumns+` FROM metadata_standards ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query standards: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	standards := make([]*models.MetadataStandard, 0)

	for rows.Next() {
		standard, err := scanStandard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan standard: %w", err)
		}

		standards = append(standards, standard)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standards: %w", err)
	}

	return standards, nil
}

func (r *StandardRepository) CreateStandard(ctx context.Context, standard *models.MetadataStandard) error {
	if standard.ID == "" {
		id, err := newID("standard")
		if err != nil {
			return err
		}

		standard.ID = id
	}

	if standard.CreatedAt.IsZero() {
		standard.CreatedAt = time.Now().UTC()
	}

	schema, err := marshalJSON(standard.Schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	template, err := marshalJSON(standard.Template)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO metadata_standards (`+standardColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		standard.ID, standard.Name, standard.Version, schema, template, nullString(standard.ParentID), standard.CreatedAt,
	)
	if err != nil {
		key := standard.Name + "@" + standard.Version

		if isUniqueViolation(err) {
			return persistence.NewEntityError("CreateStandard", "standard", key, persistence.ErrStandardAlreadyExists)
		}

		if isForeignKeyViolation(err) {
			return persistence.NewEntityError("CreateStandard", "standard", key, persistence.ErrStandardNotFound)
		}

		return fmt.Errorf("failed to insert standard: %w", err)
	}

	return nil
}

func (r *StandardRepository) ListAttrMaps(ctx context.Context, standardID string) ([]*models.MetadataJSONAttrMap, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, standard_id, json_path, record_attr, is_key
		FROM metadata_json_attr_maps
		WHERE standard_id = $1
		ORDER BY seq
	`, standardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attribute maps: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	attrMaps := make([]*models.MetadataJSONAttrMap, 0)

	for rows.Next() {
		var attrMap models.MetadataJSONAttrMap

		err := rows.Scan(&attrMap.ID, &attrMap.StandardID, &attrMap.JSONPath, &attrMap.RecordAttr, &attrMap.IsKey)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attribute map: %w", err)
		}

		attrMaps = append(attrMaps, &attrMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attribute maps: %w", err)
	}

	return attrMaps, nil
}

// SaveAttrMap upserts on (standard, record attribute); the stored ID wins on conflict.
func (r *StandardRepository) SaveAttrMap(ctx context.Context, attrMap *models.MetadataJSONAttrMap) error {
	if attrMap.ID == "" {
		id, err := newID("attribute map")
		if err != nil {
			return err
		}

		attrMap.ID = id
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO metadata_json_attr_maps (id, standard_id, json_path, record_attr, is_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (standard_id, record_attr) DO UPDATE SET
			json_path = EXCLUDED.json_path
		  , is_key = EXCLUDED.is_key
		RETURNING id
	`, attrMap.ID, attrMap.StandardID, attrMap.JSONPath, attrMap.RecordAttr, attrMap.IsKey).Scan(&attrMap.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return persistence.NewEntityError("SaveAttrMap", "standard", attrMap.StandardID, persistence.ErrStandardNotFound)
		}

		return fmt.Errorf("failed to save attribute map: %w", err)
	}

	return nil
}

// VocabularyRepository stores vocabularies as text arrays.
type VocabularyRepository struct {
	db *sql.DB
}

func (r *VocabularyRepository) GetVocabulary(ctx context.Context, name string) (*models.Vocabulary, error) {
	vocabulary := models.Vocabulary{Name: name}

	err := r.db.QueryRowContext(ctx, `SELECT tags FROM vocabularies WHERE name = $1`, name).
		Scan(pq.Array(&vocabulary.Tags))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEntityError("GetVocabulary", "vocabulary", name, persistence.ErrVocabularyNotFound)
		}

		return nil, fmt.Errorf("failed to scan vocabulary: %w", err)
	}

	return &vocabulary, nil
}

func (r *VocabularyRepository) SaveVocabulary(ctx context.Context, vocabulary *models.Vocabulary) error {
	tags := vocabulary.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vocabularies (name, tags) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET tags = EXCLUDED.tags
	`, vocabulary.Name, pq.Array(tags))
	if err != nil {
		return fmt.Errorf("failed to save vocabulary: %w", err)
	}

	return nil
}
