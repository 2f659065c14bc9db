package datactx

import (
	"fmt"
	"strings"
)

// JSONPath evaluates a small JSON-path subset against a value: "$" for the
// root, dotted member access and bracketed list indexes ("$.items[0].id").
// Filters, wildcards and recursive descent are deliberately unsupported;
// extraction-only nodes do not need them.
func JSONPath(root any, path string) (any, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed[0] != '$' {
		return nil, fmt.Errorf("json path must start with $: %q", path)
	}
	rest := strings.TrimPrefix(trimmed, "$")
	rest = strings.TrimPrefix(rest, ".")
	if rest == "" {
		return root, nil
	}

	segments := splitPath(rest)
	if segments == nil {
		return nil, fmt.Errorf("malformed json path: %q", path)
	}

	current := root
	for _, seg := range segments {
		if idx, isIndex := seg.index(); isIndex {
			list, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("json path %q: index into non-array", path)
			}
			if idx < 0 || idx >= len(list) {
				return nil, fmt.Errorf("json path %q: index %d out of range", path, idx)
			}
			current = list[idx]
			continue
		}
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("json path %q: member access on non-object", path)
		}
		current, ok = m[seg.key]
		if !ok {
			return nil, fmt.Errorf("json path %q: key %q not found", path, seg.key)
		}
	}
	return current, nil
}
