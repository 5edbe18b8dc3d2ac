package resolverrules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func jsonRes(status int, body string) *StaticResponse {
	return &StaticResponse{Code: status, Body: body}
}

func TestApplyRules_FallbackGrab(t *testing.T) {
	cfg := &Config{Grab: "data.id"}
	got, err := ApplyRules(context.Background(), cfg, jsonRes(200, `{"data":{"id":42}}`))
	require.NoError(t, err)
	require.Equal(t, float64(42), got)
}

func TestApplyRules_FallbackWholeBodyWithoutGrab(t *testing.T) {
	got, err := ApplyRules(context.Background(), nil, jsonRes(200, `{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": float64(1)}, got)
}

func TestApplyRules_FallbackShape(t *testing.T) {
	cfg := &Config{
		Grab:  "data.user",
		Shape: map[string]any{"id": "{{ id }}", "label": "user {{name}}"},
	}
	got, err := ApplyRules(context.Background(), cfg, jsonRes(200, `{"data":{"user":{"id":"u1","name":"Ann"}}}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": "u1", "label": "user Ann"}, got)
}

func TestApplyRules_ThrowOnStatus(t *testing.T) {
	cfg := &Config{
		Grab: "x",
		Rules: []Rule{
			{Match: MatchNamed(KindStatus, []any{404}), Apply: ApplyNamed(KindThrow, "not found: {{res.statusText}}")},
		},
	}
	_, err := ApplyRules(context.Background(), cfg, &StaticResponse{Code: 404, Reason: "Missing"})
	require.Error(t, err)
	require.Equal(t, "not found: Missing", err.Error())

	var re *RuleError
	require.True(t, errors.As(err, &re))
	require.Equal(t, KindThrow, re.Kind)
	require.Equal(t, 404, re.Status)
}

func TestApplyRules_StatusMatcherMembership(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{
			{Match: MatchNamed(KindStatus, []any{400, 404}), Apply: ApplyNamed(KindValue, "hit")},
		},
	}
	got, err := ApplyRules(context.Background(), cfg, jsonRes(404, `{}`))
	require.NoError(t, err)
	require.Equal(t, "hit", got)

	got, err = ApplyRules(context.Background(), cfg, jsonRes(401, `{"fallback":true}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"fallback": true}, got)
}

func TestApplyRules_StatusMatcherAcceptsDecodedNumbers(t *testing.T) {
	for _, codes := range []any{[]any{float64(503)}, []int{503}, 503, []any{"503"}} {
		cfg := &Config{Rules: []Rule{{Match: MatchNamed(KindStatus, codes), Apply: ApplyNamed(KindValue, 1)}}}
		got, err := ApplyRules(context.Background(), cfg, jsonRes(503, `{}`))
		require.NoError(t, err)
		require.Equal(t, 1, got, "codes=%#v", codes)
	}
}

func TestApplyRules_FirstMatchWins(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{
			{Match: MatchNamed(KindStatusError), Apply: ApplyNamed(KindValue, "generic")},
			{Match: MatchNamed(KindStatus, []any{404}), Apply: ApplyNamed(KindValue, "specific")},
		},
	}
	got, err := ApplyRules(context.Background(), cfg, jsonRes(404, `{}`))
	require.NoError(t, err)
	require.Equal(t, "generic", got)
}

func TestApplyRules_UnknownMatcherIsSkipped(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{
			{Match: MatchNamed("bogus"), Apply: ApplyNamed(KindValue, "never")},
		},
		Grab: "ok",
	}
	got, err := ApplyRules(context.Background(), cfg, jsonRes(200, `{"ok":true}`))
	require.NoError(t, err)
	require.Equal(t, true, got)
}

func TestApplyRules_UnknownApplier(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{{Match: MatchNamed(KindAll), Apply: ApplyNamed("bogus")}},
	}
	_, err := ApplyRules(context.Background(), cfg, jsonRes(200, `{}`))
	var ue *UnknownApplierError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, "bogus", ue.Apply)
	require.Equal(t, KindAll, ue.Match)
	require.Equal(t, `unexpected apply "bogus" for the rule "all"`, err.Error())
}

func TestApplyRules_StatusError(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{{Match: MatchNamed(KindStatusError), Apply: ApplyNamed(KindStatusError)}},
	}
	_, err := ApplyRules(context.Background(), cfg, &StaticResponse{Code: 502, Reason: "Bad Gateway"})
	require.EqualError(t, err, "502 Bad Gateway")

	got, err := ApplyRules(context.Background(), cfg, jsonRes(200, `"fine"`))
	require.NoError(t, err)
	require.Equal(t, "fine", got)
}

func TestApplyRules_Text(t *testing.T) {
	cfg := &Config{Rules: []Rule{{Match: MatchNamed(KindAll), Apply: ApplyNamed(KindText)}}}
	got, err := ApplyRules(context.Background(), cfg, jsonRes(200, "plain body"))
	require.NoError(t, err)
	require.Equal(t, "plain body", got)

	_, err = ApplyRules(context.Background(), cfg, &StaticResponse{Code: 200, ReadErr: errors.New("stream closed")})
	require.ErrorContains(t, err, "stream closed")
}

func TestApplyRules_ValueIsVerbatim(t *testing.T) {
	literal := map[string]any{"tpl": "{{ res.status }}"}
	cfg := &Config{Rules: []Rule{{Match: MatchNamed(KindAll), Apply: ApplyNamed(KindValue, literal)}}}
	got, err := ApplyRules(context.Background(), cfg, jsonRes(500, "ignored"))
	require.NoError(t, err)
	require.Equal(t, literal, got)
}

func TestApplyRules_JSONParseFailurePropagates(t *testing.T) {
	_, err := ApplyRules(context.Background(), &Config{Grab: "a"}, jsonRes(200, "not json"))
	require.ErrorContains(t, err, "read response json")
}

func TestApplyRules_JSONMissingPathReturnsNil(t *testing.T) {
	got, err := ApplyRules(context.Background(), &Config{Grab: "a.b"}, jsonRes(200, `{"a":{}}`))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestApplyRules_Res2JSONMalformedBody(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{{
			Match: MatchNamed(KindStatusError),
			Apply: ApplyNamed(KindRes2JSON, map[string]any{
				"err":    true,
				"status": "{{ res.status }}",
				"msg":    "{{ text }}",
				"body":   "{{ body }}",
				"errors": "{{ errors }}",
			}),
		}},
	}
	got, err := ApplyRules(context.Background(), cfg, &StaticResponse{Code: 500, Body: "not json"})
	require.NoError(t, err)
	out, ok := got.(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, out["err"])
	require.Equal(t, 500, out["status"])
	require.Equal(t, "not json", out["msg"])
	require.Equal(t, map[string]any{}, out["body"])
	errs, ok := out["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	require.Equal(t, "body", errs[0].(map[string]any)["type"])
}

func TestApplyRules_Res2JSONReadFailure(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{{
			Match: MatchNamed(KindAll),
			Apply: ApplyNamed(KindRes2JSON, map[string]any{"errors": "{{ errors }}", "first": "{{ errors.0.type }}"}),
		}},
	}
	got, err := ApplyRules(context.Background(), cfg, &StaticResponse{Code: 200, ReadErr: errors.New("boom")})
	require.NoError(t, err)
	out := got.(map[string]any)
	require.Equal(t, "text", out["first"])
	errs := out["errors"].([]any)
	require.Len(t, errs, 2)
	require.Equal(t, map[string]any{"type": "text", "message": "boom"}, errs[0])
	require.Equal(t, "body", errs[1].(map[string]any)["type"])
}

func TestApplyRules_Res2JSONParsedBody(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{{
			Match: MatchNamed(KindAll),
			Apply: ApplyNamed(KindRes2JSON, map[string]any{"code": "{{ body.error.code }}", "n": "{{ errors }}"}),
		}},
	}
	got, err := ApplyRules(context.Background(), cfg, jsonRes(400, `{"error":{"code":"E1"}}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"code": "E1", "n": []any{}}, got)
}

func TestApplyRules_DirectFuncs(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{{
			Match: MatchFunc(func(rc RuleContext) bool { return rc.Res.Status() == 418 }),
			Apply: ApplyFunc(func(ctx context.Context, rc RuleContext) (any, error) {
				return rc.Res.StatusText(), nil
			}),
		}},
	}
	got, err := ApplyRules(context.Background(), cfg, &StaticResponse{Code: 418})
	require.NoError(t, err)
	require.Equal(t, "I'm a teapot", got)
}

func TestApplyRules_NilResponse(t *testing.T) {
	_, err := ApplyRules(context.Background(), &Config{}, nil)
	require.ErrorIs(t, err, ErrNilResponse)
}

func TestApplyRules_ConfigReusable(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{{Match: MatchNamed(KindStatus, []any{204}), Apply: ApplyNamed(KindValue, nil)}},
		Grab:  "v",
	}
	for i := 0; i < 2; i++ {
		got, err := ApplyRules(context.Background(), cfg, jsonRes(200, `{"v":"x"}`))
		require.NoError(t, err)
		require.Equal(t, "x", got)
	}
	require.Len(t, cfg.Rules, 1)
}

func TestSelectRule_FallbackIndex(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{{Match: MatchNamed(KindStatusError), Apply: ApplyNamed(KindStatusError)}},
		Grab:  "g",
	}
	_, idx := SelectRule(cfg, jsonRes(200, ""))
	require.Equal(t, 1, idx)
	r, idx := SelectRule(cfg, jsonRes(500, ""))
	require.Equal(t, 0, idx)
	require.Equal(t, KindStatusError, r.Apply.Kind())

	fb := FallbackRule(cfg)
	require.Equal(t, KindAll, fb.Match.Kind())
	require.Equal(t, KindJSON, fb.Apply.Kind())
	require.Equal(t, "g", fb.Apply.Arg(0))
	require.Nil(t, fb.Apply.Arg(1))
}

func TestApplyRule_DoesNotReevaluateMatchers(t *testing.T) {
	calls := 0
	cfg := &Config{
		Rules: []Rule{{
			Match: MatchFunc(func(RuleContext) bool {
				calls++
				return calls == 1
			}),
			Apply: ApplyNamed(KindValue, "first"),
		}},
	}
	res := jsonRes(200, `{"a":1}`)

	rule, idx := SelectRule(cfg, res)
	require.Equal(t, 0, idx)
	got, err := ApplyRule(context.Background(), cfg, rule, res)
	require.NoError(t, err)
	require.Equal(t, "first", got)
	require.Equal(t, 1, calls)

	calls = 0
	got, err = ApplyRules(context.Background(), cfg, res)
	require.NoError(t, err)
	require.Equal(t, "first", got)
	require.Equal(t, 1, calls)
}

func TestApplyRules_FalsyShapeMeansNoShape(t *testing.T) {
	for _, shape := range []any{"", false, 0, float64(0)} {
		cfg := &Config{
			Rules: []Rule{{Match: MatchNamed(KindAll), Apply: ApplyNamed(KindJSON, "data", shape)}},
		}
		got, err := ApplyRules(context.Background(), cfg, jsonRes(200, `{"data":{"id":1}}`))
		require.NoError(t, err)
		require.Equal(t, map[string]any{"id": float64(1)}, got, "shape=%#v", shape)
	}
}

func TestApplyRules_StatusListSkipsInvalidEntries(t *testing.T) {
	cfg := &Config{
		Rules: []Rule{{Match: MatchNamed(KindStatus, []any{400, "x"}), Apply: ApplyNamed(KindValue, "bad request")}},
	}
	got, err := ApplyRules(context.Background(), cfg, jsonRes(400, `{}`))
	require.NoError(t, err)
	require.Equal(t, "bad request", got)

	_, err = ValidateConfig(cfg)
	require.ErrorContains(t, err, "rules[0]")
}
