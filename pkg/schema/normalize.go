package schema

// Normalize returns a deep copy of instance with empty values removed. Nil values, empty
// strings, empty objects and empty arrays are dropped. Children are pruned first, so a
// container emptied by pruning is removed as well. The root itself is never removed: an
// object root stays an (possibly empty) object.
func Normalize(instance any) any {
	switch value := instance.(type) {
	case map[string]any:
		out, _ := prune(value)
		if out == nil {
			return map[string]any{}
		}

		return out
	case []any:
		out, _ := prune(value)
		if out == nil {
			return []any{}
		}

		return out
	default:
		return instance
	}
}

// prune returns the normalized value and whether it survives.
func prune(instance any) (any, bool) {
	switch value := instance.(type) {
	case nil:
		return nil, false
	case string:
		return value, value != ""
	case map[string]any:
		out := make(map[string]any, len(value))

		for key, child := range value {
			if pruned, keep := prune(child); keep {
				out[key] = pruned
			}
		}

		if len(out) == 0 {
			return nil, false
		}

		return out, true
	case []any:
		out := make([]any, 0, len(value))

		for _, child := range value {
			if pruned, keep := prune(child); keep {
				out = append(out, pruned)
			}
		}

		if len(out) == 0 {
			return nil, false
		}

		return out, true
	default:
		return value, true
	}
}
