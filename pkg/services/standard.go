package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/curator/pkg/events"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/otelhelper"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/schema"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonpointer"
	"go.opentelemetry.io/otel/attribute"
)

// Standard manages metadata standards and validates records against them.
type Standard struct {
	persistence persistence.Persistence
	engine      *schema.Engine
	validate    *validator.Validate
	opts        options
}

// NewStandard creates a standard service. Vocabularies come from the record store
// unless WithVocabularyProvider is given.
func NewStandard(persistence persistence.Persistence, opts ...Option) *Standard {
	o := newOptions("standard", opts)

	vocabularies := o.vocabularies
	if vocabularies == nil {
		vocabularies = persistence.VocabularyRepository()
	}

	return &Standard{
		persistence: persistence,
		engine: schema.NewEngine(
			schema.WithVocabularies(vocabularies),
			schema.WithLogger(o.baseLogger),
			schema.WithTracer(o.tracer),
		),
		validate: models.NewValidator(),
		opts:     o,
	}
}

// Engine returns the schema engine records are validated with.
func (s *Standard) Engine() *schema.Engine {
	return s.engine
}

// CreateStandard stores a standard after checking its schema is well formed.
func (s *Standard) CreateStandard(ctx context.Context, standard *models.MetadataStandard) (*models.MetadataStandard, error) {
	const op = "CreateStandard"

	if err := s.validate.Struct(standard); err != nil {
		return nil, structError(op, err)
	}

	if err := s.engine.CheckSchema(standard.Schema); err != nil {
		return nil, NewValidationError(op, "INVALID_SCHEMA", err.Error(), fmt.Errorf("%w: %w", ErrInvalidSchema, err))
	}

	repository := s.persistence.StandardRepository()

	if standard.ParentID != nil && *standard.ParentID != "" {
		if _, err := repository.GetStandardByID(ctx, *standard.ParentID); err != nil {
			if persistence.IsNotFound(err) {
				return nil, newNotFoundError(op, fmt.Sprintf("parent standard '%s' does not exist", *standard.ParentID), err)
			}

			return nil, fmt.Errorf("failed to get parent standard: %w", err)
		}
	}

	if err := repository.CreateStandard(ctx, standard); err != nil {
		if persistence.IsAlreadyExists(err) {
			return nil, newConflictError(op, "DUPLICATE_STANDARD",
				fmt.Sprintf("standard %s %s already exists", standard.Name, standard.Version), ErrDuplicateStandard)
		}

		return nil, fmt.Errorf("failed to create standard: %w", err)
	}

	s.opts.logger.InfoContext(ctx, "Metadata standard created",
		"standard_id", standard.ID,
		"name", standard.Name,
		"version", standard.Version,
	)
	s.opts.publish(ctx, standard.ID, events.NewStandardCreated(standard))

	return standard, nil
}

// GetStandard retrieves a standard by name and version.
func (s *Standard) GetStandard(ctx context.Context, name, version string) (*models.MetadataStandard, error) {
	return s.persistence.StandardRepository().GetStandard(ctx, name, version)
}

// ListStandards returns every stored standard.
func (s *Standard) ListStandards(ctx context.Context) ([]*models.MetadataStandard, error) {
	return s.persistence.StandardRepository().ListStandards(ctx)
}

// ValidateRecord validates document against the standard's schema. An empty tree
// means the document is valid.
func (s *Standard) ValidateRecord(ctx context.Context, name, version string, document any) (schema.ErrorTree, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.opts.tracer, "services.ValidateRecord",
		attribute.String(otelhelper.StandardNameKey, name),
		attribute.String(otelhelper.StandardVersionKey, version),
	)
	defer span.End()

	standard, err := s.GetStandard(ctx, name, version)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	compiled, err := s.engine.Compile(standard.Schema)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("stored schema of %s %s is malformed: %w", name, version, err)
	}

	tree, err := compiled.Validate(ctx, document)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return tree, nil
}

// SaveAttrMap inserts or replaces the mapping for (standard, record attribute).
func (s *Standard) SaveAttrMap(ctx context.Context, attrMap *models.MetadataJSONAttrMap) (*models.MetadataJSONAttrMap, error) {
	const op = "SaveAttrMap"

	if err := s.validate.Struct(attrMap); err != nil {
		return nil, structError(op, err)
	}

	if _, err := gojsonpointer.NewJsonPointer(attrMap.JSONPath); err != nil {
		return nil, NewValidationError(op, "INVALID_JSON_PATH", err.Error(), ErrInvalidRequest)
	}

	repository := s.persistence.StandardRepository()

	if _, err := repository.GetStandardByID(ctx, attrMap.StandardID); err != nil {
		if persistence.IsNotFound(err) {
			return nil, newNotFoundError(op, fmt.Sprintf("standard '%s' does not exist", attrMap.StandardID), err)
		}

		return nil, fmt.Errorf("failed to get standard: %w", err)
	}

	if err := repository.SaveAttrMap(ctx, attrMap); err != nil {
		return nil, fmt.Errorf("failed to save attribute map: %w", err)
	}

	return attrMap, nil
}

// ListAttrMaps returns the attribute mappings of a standard.
func (s *Standard) ListAttrMaps(ctx context.Context, standardID string) ([]*models.MetadataJSONAttrMap, error) {
	return s.persistence.StandardRepository().ListAttrMaps(ctx, standardID)
}

// ExtractAttributes flattens document into record attributes using the standard's
// mappings. Empty values count as absent, and an absent key field is an error.
func (s *Standard) ExtractAttributes(ctx context.Context, name, version string, document map[string]any) (map[string]any, error) {
	const op = "ExtractAttributes"

	standard, err := s.GetStandard(ctx, name, version)
	if err != nil {
		return nil, err
	}

	attrMaps, err := s.ListAttrMaps(ctx, standard.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attribute maps: %w", err)
	}

	normalized := schema.Normalize(document)
	attributes := make(map[string]any, len(attrMaps))
	missing := make([]string, 0)

	for _, attrMap := range attrMaps {
		pointer, err := gojsonpointer.NewJsonPointer(attrMap.JSONPath)
		if err != nil {
			return nil, fmt.Errorf("invalid mapping for attribute %s: %w", attrMap.RecordAttr, err)
		}

		value, _, err := pointer.Get(normalized)
		if err != nil {
			if attrMap.IsKey {
				missing = append(missing, attrMap.RecordAttr)
			}

			continue
		}

		attributes[attrMap.RecordAttr] = value
	}

	if len(missing) > 0 {
		return nil, NewValidationError(op, "MISSING_KEY_FIELD",
			fmt.Sprintf("missing key fields: %s", strings.Join(missing, ", ")), ErrMissingKeyField)
	}

	return attributes, nil
}
