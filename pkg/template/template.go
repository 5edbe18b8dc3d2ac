// Package template renders "{{ path }}" placeholders inside strings, maps and
// slices. Placeholder paths are resolved with package dotted.
package template

import (
	"regexp"
	"strings"

	"github.com/r9s-ai/fetch-resolver/pkg/dotted"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// Render substitutes placeholders in tpl with values from data.
//
// A string consisting of a single placeholder yields the resolved value with
// its original type; other strings get every placeholder replaced by its text
// form (missing values render empty). Maps and slices are rendered
// recursively and returned as new values. Anything else is returned unchanged.
func Render(tpl any, data any) any {
	switch t := tpl.(type) {
	case string:
		return renderString(t, data)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = Render(v, data)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[dotted.FormatScalar(k)] = Render(v, data)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = Render(v, data)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = renderString(v, data)
		}
		return out
	default:
		return tpl
	}
}

// RenderString renders tpl and always returns text.
func RenderString(tpl any, data any) string {
	return dotted.FormatScalar(Render(tpl, data))
}

// Placeholders lists the placeholder paths used in tpl, in order of appearance.
func Placeholders(tpl string) []string {
	matches := placeholderRe.FindAllStringSubmatch(tpl, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

func renderString(s string, data any) any {
	loc := placeholderRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	if loc[0] == 0 && loc[1] == len(s) {
		v, ok := dotted.Get(data, s[loc[2]:loc[3]])
		if !ok {
			return nil
		}
		return v
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		v, ok := dotted.Get(data, sub[1])
		if !ok {
			return ""
		}
		return dotted.FormatScalar(v)
	})
}
