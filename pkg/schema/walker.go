package schema

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonpointer"
	"github.com/xeipuuv/gojsonschema"
)

// walker evaluates registered formats, custom keywords and the deferred combinators
// over a normalized instance. Schema nodes are tracked by their JSON pointer so that
// combinator branches find their compiled standard checks.
type walker struct {
	schema *Schema
	tree   ErrorTree
	refs   map[string]bool
}

func (w *walker) walk(ctx context.Context, node any, pointer string, instance any, path []string) error {
	object, ok := node.(map[string]any)
	if !ok {
		return nil
	}

	if ref, isRef := object["$ref"].(string); isRef {
		return w.followRef(ctx, ref, instance, path)
	}

	if format, present := object["format"]; present && w.schema.engine.formats.handles(format) {
		for _, message := range w.schema.engine.formats.evaluate(format, instance) {
			w.tree.Add(path, message)
		}
	}

	for _, name := range sortedKeys(w.schema.engine.keywords) {
		arg, present := object[name]
		if !present {
			continue
		}

		messages, err := w.schema.engine.keywords[name].Evaluate(ctx, arg, instance)
		if err != nil {
			return err
		}

		for _, message := range messages {
			w.tree.Add(path, message)
		}
	}

	if all, isList := object["allOf"].([]any); isList {
		for i, child := range all {
			if err := w.walk(ctx, child, pointer+"/allOf/"+strconv.Itoa(i), instance, path); err != nil {
				return err
			}
		}
	}

	if err := w.walkCombinators(ctx, object, pointer, instance, path); err != nil {
		return err
	}

	switch value := instance.(type) {
	case map[string]any:
		return w.walkObject(ctx, object, pointer, value, path)
	case []any:
		return w.walkArray(ctx, object, pointer, value, path)
	}

	return nil
}

func (w *walker) walkObject(ctx context.Context, node map[string]any, pointer string, instance map[string]any, path []string) error {
	properties, _ := node["properties"].(map[string]any)
	patternProperties, _ := node["patternProperties"].(map[string]any)
	additional, hasAdditional := node["additionalProperties"].(map[string]any)
	dependencies, _ := node["dependencies"].(map[string]any)

	for _, key := range sortedKeys(instance) {
		child := appendPath(path, key)
		matched := false

		if sub, ok := properties[key]; ok {
			matched = true

			if err := w.walk(ctx, sub, pointer+"/properties/"+escapeToken(key), instance[key], child); err != nil {
				return err
			}
		}

		for _, pattern := range sortedKeys(patternProperties) {
			re := w.schema.patterns[pattern]
			if re == nil || !re.MatchString(key) {
				continue
			}

			matched = true

			at := pointer + "/patternProperties/" + escapeToken(pattern)
			if err := w.walk(ctx, patternProperties[pattern], at, instance[key], child); err != nil {
				return err
			}
		}

		if !matched && hasAdditional {
			if err := w.walk(ctx, additional, pointer+"/additionalProperties", instance[key], child); err != nil {
				return err
			}
		}

		// property lists are not schemas and walk skips them
		if dependency, ok := dependencies[key]; ok {
			if err := w.walk(ctx, dependency, pointer+"/dependencies/"+escapeToken(key), instance, path); err != nil {
				return err
			}
		}
	}

	if names, ok := node["propertyNames"]; ok && w.schema.draft >= gojsonschema.Draft6 {
		for _, key := range sortedKeys(instance) {
			if err := w.walk(ctx, names, pointer+"/propertyNames", key, path); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *walker) walkArray(ctx context.Context, node map[string]any, pointer string, instance []any, path []string) error {
	switch items := node["items"].(type) {
	case map[string]any:
		for i, element := range instance {
			if err := w.walk(ctx, items, pointer+"/items", element, appendPath(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
	case []any:
		for i, element := range instance {
			sub, at := node["additionalItems"], pointer+"/additionalItems"
			if i < len(items) {
				sub, at = items[i], pointer+"/items/"+strconv.Itoa(i)
			}

			if err := w.walk(ctx, sub, at, element, appendPath(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *walker) walkCombinators(ctx context.Context, node map[string]any, pointer string, instance any, path []string) error {
	for _, keyword := range w.schema.deferred {
		value, present := node[keyword]
		if !present {
			continue
		}

		var err error

		switch keyword {
		case "anyOf":
			err = w.anyOf(ctx, value, pointer+"/anyOf", instance, path)
		case "oneOf":
			err = w.oneOf(ctx, value, pointer+"/oneOf", instance, path)
		case "not":
			err = w.not(ctx, value, pointer+"/not", instance, path)
		case "contains":
			err = w.contains(ctx, value, pointer+"/contains", instance, path)
		case "if":
			err = w.condition(ctx, node, pointer, instance, path)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// anyOf files the anyOf failure and the errors of the closest branch when no branch matches.
func (w *walker) anyOf(ctx context.Context, value any, pointer string, instance any, path []string) error {
	list, _ := value.([]any)

	var closest ErrorTree

	for i, sub := range list {
		tree, err := w.evaluate(ctx, sub, pointer+"/"+strconv.Itoa(i), instance, path)
		if err != nil {
			return err
		}

		if tree.Empty() {
			return nil
		}

		if closest == nil || tree.size() < closest.size() {
			closest = tree
		}
	}

	w.tree.Add(path, anyOfMessage)
	w.tree.merge(closest)

	return nil
}

func (w *walker) oneOf(ctx context.Context, value any, pointer string, instance any, path []string) error {
	list, _ := value.([]any)

	matched := 0

	var closest ErrorTree

	for i, sub := range list {
		tree, err := w.evaluate(ctx, sub, pointer+"/"+strconv.Itoa(i), instance, path)
		if err != nil {
			return err
		}

		if tree.Empty() {
			matched++

			continue
		}

		if closest == nil || tree.size() < closest.size() {
			closest = tree
		}
	}

	if matched == 1 {
		return nil
	}

	w.tree.Add(path, oneOfMessage)

	if matched == 0 {
		w.tree.merge(closest)
	}

	return nil
}

func (w *walker) not(ctx context.Context, value any, pointer string, instance any, path []string) error {
	tree, err := w.evaluate(ctx, value, pointer, instance, path)
	if err != nil {
		return err
	}

	if tree.Empty() {
		w.tree.Add(path, notMessage)
	}

	return nil
}

// contains needs one matching element; non-arrays pass.
func (w *walker) contains(ctx context.Context, value any, pointer string, instance any, path []string) error {
	elements, isList := instance.([]any)
	if !isList {
		return nil
	}

	var closest ErrorTree

	for i, element := range elements {
		tree, err := w.evaluate(ctx, value, pointer, element, appendPath(path, strconv.Itoa(i)))
		if err != nil {
			return err
		}

		if tree.Empty() {
			return nil
		}

		if closest == nil || tree.size() < closest.size() {
			closest = tree
		}
	}

	w.tree.Add(path, containsMessage)
	w.tree.merge(closest)

	return nil
}

// condition applies then or else depending on whether the if branch matches.
func (w *walker) condition(ctx context.Context, node map[string]any, pointer string, instance any, path []string) error {
	tree, err := w.evaluate(ctx, node["if"], pointer+"/if", instance, path)
	if err != nil {
		return err
	}

	keyword, message := "then", thenMessage
	if !tree.Empty() {
		keyword, message = "else", elseMessage
	}

	sub, present := node[keyword]
	if !present {
		return nil
	}

	result, err := w.evaluate(ctx, sub, pointer+"/"+keyword, instance, path)
	if err != nil {
		return err
	}

	if !result.Empty() {
		w.tree.Add(path, message)
		w.tree.merge(result)
	}

	return nil
}

// evaluate runs the standard and custom checks of one branch into a scratch tree.
func (w *walker) evaluate(ctx context.Context, node any, pointer string, instance any, path []string) (ErrorTree, error) {
	tree := ErrorTree{}

	if compiled := w.schema.branches[pointer]; compiled != nil {
		result, err := compiled.Validate(gojsonschema.NewGoLoader(instance))
		if err != nil {
			return nil, fmt.Errorf("failed to validate %s: %w", pointer, err)
		}

		for _, violation := range result.Errors() {
			tree.Add(slices.Concat(path, violationPath(violation)), violation.Description())
		}
	}

	scratch := &walker{schema: w.schema, tree: tree, refs: w.refs}
	if err := scratch.walk(ctx, node, pointer, instance, path); err != nil {
		return nil, err
	}

	return tree, nil
}

// followRef resolves a local reference. Re-entering the same reference at the same
// instance path would not terminate, so it is skipped.
func (w *walker) followRef(ctx context.Context, ref string, instance any, path []string) error {
	key := ref + "\x00" + strings.Join(path, "\x00")
	if w.refs[key] {
		return nil
	}

	location, err := gojsonpointer.NewJsonPointer(strings.TrimPrefix(ref, "#"))
	if err != nil {
		return nil
	}

	target, _, err := location.Get(w.schema.root)
	if err != nil {
		return nil
	}

	w.refs[key] = true
	defer delete(w.refs, key)

	return w.walk(ctx, target, location.String(), instance, path)
}

func appendPath(path []string, segment string) []string {
	return append(slices.Clone(path), segment)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
