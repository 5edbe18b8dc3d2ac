// Package dotted resolves dotted paths such as "data.items[0].id" inside
// decoded JSON/YAML values.
package dotted

import (
	"strconv"
	"strings"
)

// Get returns the value addressed by path inside root.
//
// Supported syntax:
// - a.b.c
// - $.a.b.c (the "$." prefix is optional)
// - items[0].x or items.0.x
// - items[*].x (fan-out, returns []any)
//
// An empty path returns root itself. Misses return (nil, false).
func Get(root any, path string) (any, bool) {
	p := strings.TrimSpace(path)
	p = strings.TrimPrefix(p, "$")
	p = strings.TrimPrefix(p, ".")
	if p == "" {
		return root, true
	}
	parts := strings.Split(p, ".")
	return walk(root, parts)
}

// Has reports whether path resolves inside root.
func Has(root any, path string) bool {
	_, ok := Get(root, path)
	return ok
}

func walk(cur any, parts []string) (any, bool) {
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		name, idx, hasIdx, isStar := splitIndex(part)
		if name != "" {
			next, ok := child(cur, name)
			if !ok {
				return nil, false
			}
			cur = next
		}
		if !hasIdx {
			continue
		}
		arr, ok := cur.([]any)
		if !ok {
			return nil, false
		}
		if isStar {
			rest := parts[i+1:]
			out := make([]any, 0, len(arr))
			for _, item := range arr {
				v, ok := walk(item, rest)
				if !ok {
					continue
				}
				out = append(out, v)
			}
			return out, true
		}
		if idx < 0 || idx >= len(arr) {
			return nil, false
		}
		cur = arr[idx]
	}
	return cur, true
}

func child(cur any, name string) (any, bool) {
	switch t := cur.(type) {
	case map[string]any:
		v, ok := t[name]
		return v, ok
	case map[any]any:
		v, ok := t[name]
		return v, ok
	case []any:
		n, err := strconv.Atoi(name)
		if err != nil || n < 0 || n >= len(t) {
			return nil, false
		}
		return t[n], true
	default:
		return nil, false
	}
}

func splitIndex(s string) (name string, idx int, hasIdx bool, isStar bool) {
	open := strings.IndexByte(s, '[')
	if open < 0 {
		return s, 0, false, false
	}
	close := strings.IndexByte(s, ']')
	if close < 0 || close < open {
		return s, 0, false, false
	}
	name = s[:open]
	inner := strings.TrimSpace(s[open+1 : close])
	if inner == "*" {
		return name, 0, true, true
	}
	n, err := strconv.Atoi(inner)
	if err != nil {
		return name, 0, false, false
	}
	return name, n, true, false
}
