package schema

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Combinators decide whether a branch matches, and only the engine sees registered
// formats and custom keywords. The engine evaluates them itself: gojsonschema compiles
// every branch on its own and the walker combines its verdict with the custom checks.
//
// In the document handed to gojsonschema the combinators are renamed with
// deferredPrefix. gojsonschema ignores unknown keywords, while JSON pointers to the
// branches keep resolving inside that document.
const deferredPrefix = "x-curator-"

var documentURL = url.URL{Scheme: "http", Host: "curator.invalid", Path: "/schema.json"}

// Messages match gojsonschema's for the same failures.
const (
	anyOfMessage    = "Must validate at least one schema (anyOf)"
	oneOfMessage    = "Must validate one and only one schema (oneOf)"
	notMessage      = "Must not validate the schema (not)"
	thenMessage     = `Must validate "then" as "if" was valid`
	elseMessage     = `Must validate "else" as "if" was not valid`
	containsMessage = "At least one of the items must match"
)

// deferredKeywords lists the combinators the engine evaluates under draft.
func deferredKeywords(draft gojsonschema.Draft) []string {
	keywords := []string{"anyOf", "oneOf", "not"}

	if draft >= gojsonschema.Draft6 {
		keywords = append(keywords, "contains")
	}

	if draft >= gojsonschema.Draft7 {
		keywords = append(keywords, "if", "then", "else")
	}

	return keywords
}

// branch is a subschema under a deferred combinator. pointer addresses it in the
// original schema, pooled in the renamed document.
type branch struct {
	pointer string
	pooled  string
}

// branches returns every subschema position under a deferred combinator, nested ones
// included.
func branches(document map[string]any, deferred []string) []branch {
	var found []branch

	var visit func(node any, pointer, pooled string)

	enter := func(child any, keyword, pointer, pooled string) {
		if slices.Contains(deferred, keyword) {
			found = append(found, branch{pointer: pointer, pooled: pooled})
		}

		visit(child, pointer, pooled)
	}

	visit = func(node any, pointer, pooled string) {
		object, ok := node.(map[string]any)
		if !ok {
			return
		}

		for _, key := range sortedKeys(object) {
			renamed := key
			if slices.Contains(deferred, key) {
				renamed = deferredPrefix + key
			}

			at := pointer + "/" + escapeToken(key)
			pooledAt := pooled + "/" + escapeToken(renamed)

			switch {
			case slices.Contains(schemaValueKeywords, key):
				if list, isList := object[key].([]any); isList {
					for i, item := range list {
						index := "/" + strconv.Itoa(i)
						enter(item, key, at+index, pooledAt+index)
					}

					continue
				}

				enter(object[key], key, at, pooledAt)
			case slices.Contains(schemaMapKeywords, key):
				children, _ := object[key].(map[string]any)

				for _, name := range sortedKeys(children) {
					token := "/" + escapeToken(name)
					visit(children[name], at+token, pooledAt+token)
				}
			case slices.Contains(schemaArrayKeywords, key):
				children, _ := object[key].([]any)

				for i, child := range children {
					index := "/" + strconv.Itoa(i)
					enter(child, key, at+index, pooledAt+index)
				}
			}
		}
	}

	visit(document, "", "")

	return found
}

// compileDeferred compiles the document with its combinators renamed, and each
// combinator branch on its own. Branches are keyed by their pointer in the original
// schema.
func (e *Engine) compileDeferred(document map[string]any, draft gojsonschema.Draft) (*gojsonschema.Schema, map[string]*gojsonschema.Schema, error) {
	deferred := deferredKeywords(draft)

	pooled, _ := e.strip(document, deferred).(map[string]any)
	delete(pooled, "$schema")

	loader := gojsonschema.NewSchemaLoader()
	loader.AutoDetect = false
	loader.Draft = draft

	base := documentURL.String()

	if err := loader.AddSchema(base, gojsonschema.NewGoLoader(pooled)); err != nil {
		return nil, nil, err
	}

	root, err := loader.Compile(gojsonschema.NewReferenceLoader(base))
	if err != nil {
		return nil, nil, err
	}

	compiled := map[string]*gojsonschema.Schema{}

	for _, b := range branches(document, deferred) {
		ref := documentURL
		ref.Fragment = b.pooled

		schema, err := loader.Compile(gojsonschema.NewReferenceLoader(ref.String()))
		if err != nil {
			return nil, nil, fmt.Errorf("subschema %s: %w", b.pointer, err)
		}

		compiled[b.pointer] = schema
	}

	return root, compiled, nil
}

func escapeToken(token string) string {
	return strings.ReplaceAll(strings.ReplaceAll(token, "~", "~0"), "/", "~1")
}
