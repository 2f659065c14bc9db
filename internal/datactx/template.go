package datactx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var mustacheRe = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Resolve substitutes every {{path}} reference in v against the context.
// Strings are interpolated; maps and slices are resolved recursively; other
// values pass through unchanged. A string consisting of a single expression
// resolves to the referenced value itself, preserving its type.
//
// Missing path segments resolve to an empty value rather than failing:
// required-field enforcement is the caller's concern.
func (c *Context) Resolve(v any) any {
	switch val := v.(type) {
	case string:
		return c.resolveString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = c.Resolve(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = c.Resolve(item)
		}
		return out
	default:
		return v
	}
}

// ResolveMap resolves every value of m. Node handlers use it on their raw
// Data configuration before reading typed fields out of it.
func (c *Context) ResolveMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = c.Resolve(v)
	}
	return out
}

func (c *Context) resolveString(s string) any {
	// Whole-string expression: return the raw value, preserving type.
	if m := mustacheRe.FindStringSubmatch(s); m != nil && m[0] == s {
		val, _ := c.Lookup(m[1])
		return val
	}
	return mustacheRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := mustacheRe.FindStringSubmatch(match)
		val, ok := c.Lookup(sub[1])
		if !ok || val == nil {
			return ""
		}
		return fmt.Sprintf("%v", val)
	})
}

// Lookup traverses a dotted/bracket path like "trigger.body.id" or
// "fetch.items[0].name" into the context. The first segment selects the
// source ("trigger" or a node id); the rest walks into that source's output.
// It returns (nil, false) when any segment is missing.
func (c *Context) Lookup(path string) (any, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}

	current, ok := c.values[segments[0].key]
	if !ok {
		// "vars.x" reaches the workflow's static variables.
		if segments[0].key == "vars" && c.vars != nil {
			current = map[string]any(c.vars)
		} else {
			return nil, false
		}
	}

	for _, seg := range segments[1:] {
		if idx, isIndex := seg.index(); isIndex {
			list, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(list) {
				return nil, false
			}
			current = list[idx]
			continue
		}
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg.key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

type pathSegment struct {
	key string
	idx int
	arr bool
}

func (s pathSegment) index() (int, bool) { return s.idx, s.arr }

// splitPath breaks "a.b[0].c" into [a b [0] c] segments. Bracket indexes
// become their own segments; malformed brackets yield no segments so the
// lookup falls back to "missing".
func splitPath(path string) []pathSegment {
	var segments []pathSegment
	for _, part := range strings.Split(path, ".") {
		for {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				if part != "" {
					segments = append(segments, pathSegment{key: part})
				}
				break
			}
			closing := strings.IndexByte(part, ']')
			if closing < open {
				return nil
			}
			if open > 0 {
				segments = append(segments, pathSegment{key: part[:open]})
			}
			idx, err := strconv.Atoi(part[open+1 : closing])
			if err != nil {
				return nil
			}
			segments = append(segments, pathSegment{idx: idx, arr: true})
			part = part[closing+1:]
			if part == "" {
				break
			}
		}
	}
	return segments
}
