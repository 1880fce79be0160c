package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// GlobalKey files messages that do not belong to a single field. At the root it holds
// document-level errors; inside a nested tree it holds messages for that node itself.
// Metadata schemas never declare an empty property name, so the key cannot collide
// with a document field.
const GlobalKey = ""

// ErrorTree maps path segments to either a nested ErrorTree or a list of messages.
type ErrorTree map[string]any

// Add files message under path, creating intermediate nodes as needed.
func (t ErrorTree) Add(path []string, message string) {
	if len(path) == 0 {
		path = []string{GlobalKey}
	}

	node := t

	for _, segment := range path[:len(path)-1] {
		switch child := node[segment].(type) {
		case ErrorTree:
			node = child
		case []string:
			nested := ErrorTree{GlobalKey: child}
			node[segment] = nested
			node = nested
		default:
			nested := ErrorTree{}
			node[segment] = nested
			node = nested
		}
	}

	last := path[len(path)-1]

	switch child := node[last].(type) {
	case ErrorTree:
		child.Add([]string{GlobalKey}, message)
	case []string:
		node[last] = append(child, message)
	default:
		node[last] = []string{message}
	}
}

// Empty reports whether no violation was recorded.
func (t ErrorTree) Empty() bool {
	return len(t) == 0
}

// Messages returns the messages filed exactly at path.
func (t ErrorTree) Messages(path ...string) []string {
	var node any = t

	for _, segment := range path {
		tree, ok := node.(ErrorTree)
		if !ok {
			return nil
		}

		node = tree[segment]
	}

	switch value := node.(type) {
	case []string:
		return value
	case ErrorTree:
		messages, _ := value[GlobalKey].([]string)

		return messages
	}

	return nil
}

// Flatten returns messages keyed by a slash-joined path, for line-oriented output.
// Document-level messages use the empty key.
func (t ErrorTree) Flatten() map[string][]string {
	flat := map[string][]string{}

	t.each(nil, func(path []string, message string) {
		joined := strings.Join(path, "/")
		flat[joined] = append(flat[joined], message)
	})

	return flat
}

// each calls fn for every message with its full path, in key order.
func (t ErrorTree) each(prefix []string, fn func(path []string, message string)) {
	for _, key := range slices.Sorted(maps.Keys(t)) {
		switch value := t[key].(type) {
		case ErrorTree:
			value.each(append(slices.Clone(prefix), key), fn)
		case []string:
			path := prefix
			if key != GlobalKey {
				path = append(slices.Clone(prefix), key)
			}

			for _, message := range value {
				fn(path, message)
			}
		}
	}
}

// merge files every message of other into t.
func (t ErrorTree) merge(other ErrorTree) {
	other.each(nil, t.Add)
}

// size counts the messages in the tree.
func (t ErrorTree) size() int {
	count := 0

	t.each(nil, func([]string, string) { count++ })

	return count
}

// UnmarshalJSON restores a tree written by json.Marshal, turning nested objects back
// into trees and arrays into message lists.
func (t *ErrorTree) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	tree, err := fromRaw(raw)
	if err != nil {
		return err
	}

	*t = tree

	return nil
}

func fromRaw(raw map[string]any) (ErrorTree, error) {
	if raw == nil {
		return nil, nil
	}

	tree := make(ErrorTree, len(raw))

	for key, value := range raw {
		switch value := value.(type) {
		case map[string]any:
			nested, err := fromRaw(value)
			if err != nil {
				return nil, err
			}

			tree[key] = nested
		case []any:
			messages := make([]string, 0, len(value))

			for _, message := range value {
				text, ok := message.(string)
				if !ok {
					return nil, fmt.Errorf("error tree %s: message is %T, not a string", key, message)
				}

				messages = append(messages, text)
			}

			tree[key] = messages
		default:
			return nil, fmt.Errorf("error tree %s: unexpected %T", key, value)
		}
	}

	return tree, nil
}
