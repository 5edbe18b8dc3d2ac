// Package resolverrules turns an HTTP response into a value by applying the
// first matching rule from a declarative rule list.
//
// A rule pairs a match spec with an apply spec:
//
//	rules:
//	  - match: [status, [200]]
//	    apply: [json, grab.from.json, {id: "{{ id }}"}]
//	  - match: [status, [400, 404]]
//	    apply: [throw, "custom error - {{ res.statusText }}"]
//	  - match: [statusError]
//	    apply: [res2json, {err: true, status: "{{ res.status }}", msg: "{{ text }}"}]
//
// A fallback rule {match: [all], apply: [json, grab, shape]} is always
// evaluated last, so every call selects exactly one rule.
package resolverrules

import "context"

// RuleContext is handed to every matcher and applier.
type RuleContext struct {
	Config *Config
	Rule   Rule
	Res    Response
}

// MatcherFunc decides whether a rule applies to the response.
type MatcherFunc func(rc RuleContext) bool

// ApplierFunc produces the rule result or fails the call.
type ApplierFunc func(ctx context.Context, rc RuleContext) (any, error)

// MatchSpec is either a direct matcher function or a named matcher with arguments.
type MatchSpec struct {
	fn   MatcherFunc
	kind string
	args []any
}

// MatchFunc wraps fn as a direct match spec.
func MatchFunc(fn MatcherFunc) MatchSpec { return MatchSpec{fn: fn} }

// MatchNamed references a registered matcher by kind.
func MatchNamed(kind string, args ...any) MatchSpec {
	return MatchSpec{kind: kind, args: append([]any(nil), args...)}
}

// Kind returns the matcher name; empty for direct specs.
func (m MatchSpec) Kind() string { return m.kind }

// IsDirect reports whether the spec wraps a function.
func (m MatchSpec) IsDirect() bool { return m.fn != nil }

// Arg returns the i-th argument after the kind, or nil.
func (m MatchSpec) Arg(i int) any { return argAt(m.args, i) }

// Args returns a copy of the arguments after the kind.
func (m MatchSpec) Args() []any { return append([]any(nil), m.args...) }

func (m MatchSpec) resolve() (MatcherFunc, bool) {
	if m.fn != nil {
		return m.fn, true
	}
	return lookupMatcher(m.kind)
}

func (m MatchSpec) label() string {
	if m.fn != nil {
		return "func"
	}
	return m.kind
}

// ApplySpec is either a direct applier function or a named applier with arguments.
type ApplySpec struct {
	fn   ApplierFunc
	kind string
	args []any
}

// ApplyFunc wraps fn as a direct apply spec.
func ApplyFunc(fn ApplierFunc) ApplySpec { return ApplySpec{fn: fn} }

// ApplyNamed references a registered applier by kind.
func ApplyNamed(kind string, args ...any) ApplySpec {
	return ApplySpec{kind: kind, args: append([]any(nil), args...)}
}

func (a ApplySpec) Kind() string { return a.kind }

func (a ApplySpec) IsDirect() bool { return a.fn != nil }

func (a ApplySpec) Arg(i int) any { return argAt(a.args, i) }

func (a ApplySpec) Args() []any { return append([]any(nil), a.args...) }

func (a ApplySpec) resolve() (ApplierFunc, bool) {
	if a.fn != nil {
		return a.fn, true
	}
	return lookupApplier(a.kind)
}

// Rule pairs a match spec with an apply spec.
type Rule struct {
	Match MatchSpec `yaml:"match" json:"match"`
	Apply ApplySpec `yaml:"apply" json:"apply"`
}

// Config drives ApplyRules. The zero value is usable: it returns the whole
// JSON body of every response.
type Config struct {
	// Rules are evaluated in order before the fallback rule.
	Rules []Rule `yaml:"rules" json:"rules"`
	// Grab is the dotted path used by the fallback json rule.
	Grab string `yaml:"grab" json:"grab"`
	// Shape is an optional template rendered against the grabbed value.
	Shape any `yaml:"shape" json:"shape"`
}

func argAt(args []any, i int) any {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}
