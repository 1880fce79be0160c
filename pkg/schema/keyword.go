package schema

import (
	"context"
	"fmt"
	"slices"

	"github.com/dukex/curator/pkg/formats"
)

// Keyword is a schema keyword evaluated in addition to the standard JSON Schema rules.
//
// Evaluate receives the keyword's value from the schema and the instance node it applies
// to. Violations are returned as messages; the error return is reserved for failures that
// prevent evaluation, such as an unreachable provider.
type Keyword interface {
	Name() string
	CheckArg(arg any) error
	Evaluate(ctx context.Context, arg, instance any) ([]string, error)
}

// Subschema positions, used to tell schema keywords apart from data such as enum values.
var (
	schemaValueKeywords = []string{
		"additionalItems", "additionalProperties", "contains", "else", "if", "items", "not",
		"propertyNames", "then",
	}
	schemaMapKeywords   = []string{"definitions", "dependencies", "patternProperties", "properties"}
	schemaArrayKeywords = []string{"allOf", "anyOf", "oneOf"}
)

// reservedKeywords cannot be taken over by a custom Keyword.
var reservedKeywords = []string{
	"$id", "$ref", "$schema", "additionalItems", "additionalProperties", "allOf", "anyOf", "const",
	"contains", "default", "definitions", "dependencies", "else", "enum", "exclusiveMaximum",
	"exclusiveMinimum", "format", "id", "if", "items", "maxItems", "maxLength", "maxProperties",
	"maximum", "minItems", "minLength", "minProperties", "minimum", "multipleOf", "not", "oneOf",
	"pattern", "patternProperties", "properties", "propertyNames", "required", "then", "type",
	"uniqueItems",
}

func isReserved(name string) bool {
	return slices.Contains(reservedKeywords, name)
}

// formatKeyword applies the engine's format registry.
type formatKeyword struct {
	registry formats.Registry
}

func (k formatKeyword) handles(arg any) bool {
	name, ok := arg.(string)

	return ok && k.registry.Has(name)
}

func (k formatKeyword) evaluate(arg, instance any) []string {
	name, _ := arg.(string)

	if k.registry.Check(name, instance) {
		return nil
	}

	return []string{fmt.Sprintf("Does not match format '%s'", name)}
}

// subschemas calls fn for every schema nested in a keyword position of node.
func subschemas(node map[string]any, fn func(keyword string, child any)) {
	for _, keyword := range schemaValueKeywords {
		child, ok := node[keyword]
		if !ok {
			continue
		}

		if list, isList := child.([]any); isList && keyword == "items" {
			for _, item := range list {
				fn(keyword, item)
			}

			continue
		}

		fn(keyword, child)
	}

	for _, keyword := range schemaMapKeywords {
		children, ok := node[keyword].(map[string]any)
		if !ok {
			continue
		}

		for _, name := range sortedKeys(children) {
			// dependencies may also hold property lists
			if _, isSchema := children[name].(map[string]any); isSchema {
				fn(keyword, children[name])
			}
		}
	}

	for _, keyword := range schemaArrayKeywords {
		children, ok := node[keyword].([]any)
		if !ok {
			continue
		}

		for _, child := range children {
			fn(keyword, child)
		}
	}
}
