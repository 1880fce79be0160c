// Package schema validates metadata documents against JSON Schema.
//
// An Engine holds its configuration, the format registry and the custom keywords, as
// immutable values assembled at construction. Nothing is registered globally, so engines
// with different configurations can be used side by side from concurrent goroutines.
//
// Standard keywords are evaluated by gojsonschema. Registered formats and custom keywords
// are evaluated by the engine itself over the same schema, following every subschema
// position and local $ref. The combinators anyOf, oneOf, not, contains and
// if/then/else are evaluated by the engine too, so that a branch only matches when both
// its standard and its custom checks pass.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/dukex/curator/pkg/formats"
	"github.com/dukex/curator/pkg/otelhelper"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dukex/curator/pkg/schema"

var dialects = map[string]gojsonschema.Draft{
	"json-schema.org/draft-04/schema": gojsonschema.Draft4,
	"json-schema.org/draft-06/schema": gojsonschema.Draft6,
	"json-schema.org/draft-07/schema": gojsonschema.Draft7,
}

// Engine compiles schemas and validates documents.
type Engine struct {
	formats  formatKeyword
	keywords map[string]Keyword
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithFormats replaces the default format registry.
func WithFormats(registry formats.Registry) Option {
	return func(e *Engine) {
		e.formats = formatKeyword{registry: maps.Clone(registry)}
	}
}

// WithVocabularies enables the "vocabulary" keyword backed by provider.
func WithVocabularies(provider VocabularyProvider) Option {
	return WithKeyword(NewVocabularyKeyword(provider))
}

// WithKeyword registers a custom keyword. Standard JSON Schema keyword names are ignored.
func WithKeyword(keyword Keyword) Option {
	return func(e *Engine) {
		if isReserved(keyword.Name()) {
			e.logger.Warn("Ignoring custom keyword shadowing a standard keyword", "keyword", keyword.Name())

			return
		}

		e.keywords[keyword.Name()] = keyword
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer sets the tracer used for validation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// NewEngine creates an engine with the default format registry and no custom keywords.
func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		formats:  formatKeyword{registry: formats.Default()},
		keywords: map[string]Keyword{},
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(engine)
	}

	engine.logger = engine.logger.With("module", "schema")

	return engine
}

// Schema is a compiled schema bound to the engine that compiled it.
type Schema struct {
	engine   *Engine
	root     map[string]any
	compiled *gojsonschema.Schema
	branches map[string]*gojsonschema.Schema
	deferred []string
	patterns map[string]*regexp.Regexp
	draft    gojsonschema.Draft
}

// CheckSchema verifies that document is a well-formed schema: a supported dialect, only
// local references, valid custom keyword arguments, and conformance to the dialect's
// metaschema.
func (e *Engine) CheckSchema(document map[string]any) error {
	_, err := e.Compile(document)

	return err
}

// MustCompile is like Compile but panics on a malformed schema.
func (e *Engine) MustCompile(document map[string]any) *Schema {
	schema, err := e.Compile(document)
	if err != nil {
		panic(err)
	}

	return schema
}

// Compile checks and compiles document. Errors match ErrMalformedSchema.
func (e *Engine) Compile(document map[string]any) (*Schema, error) {
	if document == nil {
		return nil, malformed("schema document is empty")
	}

	draft, err := dialect(document)
	if err != nil {
		return nil, err
	}

	problems := []string{}
	patterns := map[string]*regexp.Regexp{}

	var check func(node any)

	check = func(node any) {
		object, ok := node.(map[string]any)
		if !ok {
			return
		}

		if ref, isRef := object["$ref"].(string); isRef && !strings.HasPrefix(ref, "#") {
			problems = append(problems, fmt.Sprintf("reference %q is not local", ref))
		}

		for _, name := range sortedKeys(e.keywords) {
			if arg, present := object[name]; present {
				if err := e.keywords[name].CheckArg(arg); err != nil {
					problems = append(problems, fmt.Sprintf("keyword %s: %v", name, err))
				}
			}
		}

		if properties, isMap := object["patternProperties"].(map[string]any); isMap {
			for pattern := range properties {
				re, err := regexp.Compile(pattern)
				if err != nil {
					problems = append(problems, fmt.Sprintf("pattern %q: %v", pattern, err))

					continue
				}

				patterns[pattern] = re
			}
		}

		subschemas(object, func(_ string, child any) { check(child) })
	}

	check(document)

	if len(problems) > 0 {
		return nil, malformed(problems...)
	}

	checked, _ := e.strip(document, nil).(map[string]any)
	delete(checked, "$schema")

	metaschema := gojsonschema.NewSchemaLoader()
	metaschema.Validate = true
	metaschema.AutoDetect = false
	metaschema.Draft = draft

	if _, err := metaschema.Compile(gojsonschema.NewGoLoader(checked)); err != nil {
		return nil, malformed(strings.Split(strings.TrimSpace(err.Error()), "\n")...)
	}

	compiled, branchSchemas, err := e.compileDeferred(document, draft)
	if err != nil {
		return nil, malformed(err.Error())
	}

	return &Schema{
		engine:   e,
		root:     document,
		compiled: compiled,
		branches: branchSchemas,
		deferred: deferredKeywords(draft),
		patterns: patterns,
		draft:    draft,
	}, nil
}

// Validate compiles schema and validates instance against it. A malformed schema is
// returned as an error; data violations are returned in the ErrorTree.
func (e *Engine) Validate(ctx context.Context, instance any, schema map[string]any) (ErrorTree, error) {
	compiled, err := e.Compile(schema)
	if err != nil {
		return nil, err
	}

	return compiled.Validate(ctx, instance)
}

// Validate normalizes instance and collects every violation. The returned tree is empty
// when the instance is valid.
func (s *Schema) Validate(ctx context.Context, instance any) (ErrorTree, error) {
	ctx, span := s.engine.tracer.Start(ctx, "schema.Validate")
	defer span.End()

	normalized := Normalize(instance)
	tree := ErrorTree{}

	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(normalized))
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to validate document: %w", err)
	}

	for _, violation := range result.Errors() {
		tree.Add(violationPath(violation), violation.Description())
	}

	w := &walker{schema: s, tree: tree, refs: map[string]bool{}}
	if err := w.walk(withVocabularyCache(ctx), s.root, "", normalized, nil); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.Int(otelhelper.ValidationErrorsKey, len(tree.Flatten())))

	s.engine.logger.DebugContext(ctx, "Validated document", "valid", tree.Empty())

	return tree, nil
}

// dialect maps the declared $schema to a draft. An absent $schema means draft-07.
func dialect(document map[string]any) (gojsonschema.Draft, error) {
	declared, present := document["$schema"]
	if !present {
		return gojsonschema.Draft7, nil
	}

	uri, ok := declared.(string)
	if !ok {
		return 0, malformed("$schema must be a string")
	}

	normalized := strings.TrimSuffix(uri, "#")
	normalized = strings.TrimPrefix(strings.TrimPrefix(normalized, "http://"), "https://")

	draft, supported := dialects[normalized]
	if !supported {
		return 0, malformed(fmt.Sprintf("unsupported dialect %q", uri))
	}

	return draft, nil
}

// strip copies a schema without the keywords the engine evaluates itself, renaming the
// keywords listed in deferred with deferredPrefix. Only keyword positions are rewritten;
// data such as enum or default values is copied untouched.
func (e *Engine) strip(node any, deferred []string) any {
	object, ok := node.(map[string]any)
	if !ok {
		return node
	}

	out := make(map[string]any, len(object))

	for key, value := range object {
		name := key
		if slices.Contains(deferred, key) {
			name = deferredPrefix + key
		}

		switch {
		case key == "format" && e.formats.handles(value):
			continue
		case e.keywords[key] != nil:
			continue
		case slices.Contains(schemaValueKeywords, key):
			if list, isList := value.([]any); isList {
				items := make([]any, len(list))
				for i, item := range list {
					items[i] = e.strip(item, deferred)
				}

				out[name] = items

				continue
			}

			out[name] = e.strip(value, deferred)
		case slices.Contains(schemaMapKeywords, key):
			children, isMap := value.(map[string]any)
			if !isMap {
				out[name] = value

				continue
			}

			copied := make(map[string]any, len(children))
			for child, sub := range children {
				copied[child] = e.strip(sub, deferred)
			}

			out[name] = copied
		case slices.Contains(schemaArrayKeywords, key):
			children, isList := value.([]any)
			if !isList {
				out[name] = value

				continue
			}

			copied := make([]any, len(children))
			for i, child := range children {
				copied[i] = e.strip(child, deferred)
			}

			out[name] = copied
		default:
			out[name] = value
		}
	}

	return out
}

// violationPath turns a gojsonschema context into path segments. Missing required
// properties are filed under the property itself.
func violationPath(violation gojsonschema.ResultError) []string {
	const separator = "\x00"

	segments := strings.Split(violation.Context().String(separator), separator)[1:]

	if violation.Type() == "required" {
		if property, ok := violation.Details()["property"].(string); ok {
			segments = append(segments, property)
		}
	}

	return segments
}
