package resolverrules

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/r9s-ai/fetch-resolver/pkg/dotted"
	"github.com/r9s-ai/fetch-resolver/pkg/template"
)

// Builtin matcher and applier names.
const (
	KindAll         = "all"
	KindStatus      = "status"
	KindStatusError = "statusError"

	KindText     = "text"
	KindJSON     = "json"
	KindThrow    = "throw"
	KindRes2JSON = "res2json"
	KindValue    = "value"
)

func builtinMatchers() map[string]MatcherFunc {
	return map[string]MatcherFunc{
		KindAll:         func(RuleContext) bool { return true },
		KindStatus:      matchStatus,
		KindStatusError: func(rc RuleContext) bool { return rc.Res.Status() >= 400 },
	}
}

func builtinAppliers() map[string]ApplierFunc {
	return map[string]ApplierFunc{
		KindText:        applyText,
		KindJSON:        applyJSON,
		KindThrow:       applyThrow,
		KindRes2JSON:    applyRes2JSON,
		KindStatusError: applyStatusError,
		KindValue:       applyValue,
	}
}

// matchStatus matches when the status is one of the codes in the first argument.
func matchStatus(rc RuleContext) bool {
	codes, _ := statusCodes(rc.Rule.Match.Arg(0))
	status := rc.Res.Status()
	for _, c := range codes {
		if c == status {
			return true
		}
	}
	return false
}

// statusCodes accepts a single code or a list of codes in any numeric form
// produced by YAML/JSON decoding. Entries without an integer value are
// skipped; the boolean is false when any entry was skipped.
func statusCodes(v any) ([]int, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []int:
		return t, true
	case []any:
		out := make([]int, 0, len(t))
		valid := true
		for _, item := range t {
			n, ok := dotted.CoerceInt(item)
			if !ok {
				valid = false
				continue
			}
			out = append(out, n)
		}
		return out, valid
	default:
		n, ok := dotted.CoerceInt(t)
		if !ok {
			return nil, false
		}
		return []int{n}, true
	}
}

func applyText(ctx context.Context, rc RuleContext) (any, error) {
	text, err := rc.Res.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("read response text: %w", err)
	}
	return text, nil
}

func applyJSON(ctx context.Context, rc RuleContext) (any, error) {
	data, err := rc.Res.JSON(ctx)
	if err != nil {
		return nil, fmt.Errorf("read response json: %w", err)
	}
	grab := dotted.CoerceString(rc.Rule.Apply.Arg(0))
	v, _ := dotted.Get(data, grab)
	if shape := rc.Rule.Apply.Arg(1); hasShape(shape) {
		return template.Render(shape, v), nil
	}
	return v, nil
}

// hasShape treats nil, "", false and numeric zero as "no shape".
func hasShape(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

func applyThrow(_ context.Context, rc RuleContext) (any, error) {
	msg := template.RenderString(rc.Rule.Apply.Arg(0), map[string]any{
		"res": ResponseInfo(rc.Res),
	})
	return nil, &RuleError{
		Kind:       KindThrow,
		Status:     rc.Res.Status(),
		StatusText: rc.Res.StatusText(),
		Message:    msg,
	}
}

// applyRes2JSON never fails: read and parse failures are collected into the
// "errors" list exposed to the template.
func applyRes2JSON(ctx context.Context, rc RuleContext) (any, error) {
	text := ""
	var body any = map[string]any{}
	errs := []any{}

	if t, err := rc.Res.Text(ctx); err != nil {
		errs = append(errs, map[string]any{"type": "text", "message": err.Error()})
	} else {
		text = t
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		errs = append(errs, map[string]any{"type": "body", "message": err.Error()})
	} else {
		body = parsed
	}

	return template.Render(rc.Rule.Apply.Arg(0), map[string]any{
		"res":    ResponseInfo(rc.Res),
		"text":   text,
		"body":   body,
		"errors": errs,
	}), nil
}

func applyStatusError(_ context.Context, rc RuleContext) (any, error) {
	status := rc.Res.Status()
	statusText := rc.Res.StatusText()
	return nil, &RuleError{
		Kind:       KindStatusError,
		Status:     status,
		StatusText: statusText,
		Message:    fmt.Sprintf("%d %s", status, statusText),
	}
}

func applyValue(_ context.Context, rc RuleContext) (any, error) {
	return rc.Rule.Apply.Arg(0), nil
}
