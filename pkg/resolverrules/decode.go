package resolverrules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes [kind, args...] or a bare kind string.
func (m *MatchSpec) UnmarshalYAML(node *yaml.Node) error {
	kind, args, err := decodeYAMLSpec(node)
	if err != nil {
		return fmt.Errorf("match: %w", err)
	}
	*m = MatchSpec{kind: kind, args: args}
	return nil
}

// UnmarshalYAML decodes [kind, args...] or a bare kind string.
func (a *ApplySpec) UnmarshalYAML(node *yaml.Node) error {
	kind, args, err := decodeYAMLSpec(node)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	*a = ApplySpec{kind: kind, args: args}
	return nil
}

func (m *MatchSpec) UnmarshalJSON(b []byte) error {
	kind, args, err := decodeJSONSpec(b)
	if err != nil {
		return fmt.Errorf("match: %w", err)
	}
	*m = MatchSpec{kind: kind, args: args}
	return nil
}

func (a *ApplySpec) UnmarshalJSON(b []byte) error {
	kind, args, err := decodeJSONSpec(b)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	*a = ApplySpec{kind: kind, args: args}
	return nil
}

// MarshalJSON encodes named specs back to [kind, args...].
func (m MatchSpec) MarshalJSON() ([]byte, error) {
	if m.fn != nil {
		return nil, errors.New("match: func spec cannot be encoded")
	}
	return json.Marshal(append([]any{m.kind}, m.args...))
}

// MarshalJSON encodes named specs back to [kind, args...].
func (a ApplySpec) MarshalJSON() ([]byte, error) {
	if a.fn != nil {
		return nil, errors.New("apply: func spec cannot be encoded")
	}
	return json.Marshal(append([]any{a.kind}, a.args...))
}

func decodeYAMLSpec(node *yaml.Node) (string, []any, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var kind string
		if err := node.Decode(&kind); err != nil {
			return "", nil, err
		}
		return checkKind(kind, nil)
	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return "", nil, fmt.Errorf("line %d: empty spec", node.Line)
		}
		var kind string
		if err := node.Content[0].Decode(&kind); err != nil {
			return "", nil, fmt.Errorf("line %d: kind must be a string", node.Line)
		}
		args := make([]any, 0, len(node.Content)-1)
		for _, n := range node.Content[1:] {
			var v any
			if err := n.Decode(&v); err != nil {
				return "", nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			args = append(args, v)
		}
		return checkKind(kind, args)
	default:
		return "", nil, fmt.Errorf("line %d: expected [kind, args...]", node.Line)
	}
}

func decodeJSONSpec(b []byte) (string, []any, error) {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return "", nil, err
	}
	switch t := raw.(type) {
	case string:
		return checkKind(t, nil)
	case []any:
		if len(t) == 0 {
			return "", nil, errors.New("empty spec")
		}
		kind, ok := t[0].(string)
		if !ok {
			return "", nil, errors.New("kind must be a string")
		}
		return checkKind(kind, t[1:])
	default:
		return "", nil, errors.New("expected [kind, args...]")
	}
}

func checkKind(kind string, args []any) (string, []any, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return "", nil, errors.New("kind is empty")
	}
	return kind, args, nil
}

// LoadConfigFile reads a rules file. Files ending in .json are decoded as
// JSON, everything else as YAML.
func LoadConfigFile(path string) (*Config, error) {
	// #nosec G304 -- path is provided by trusted config/flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b, strings.EqualFold(filepath.Ext(path), ".json"))
}

// ParseConfig decodes a rules document.
func ParseConfig(b []byte, isJSON bool) (*Config, error) {
	var cfg Config
	if isJSON {
		if err := json.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse rules json: %w", err)
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}
	return &cfg, nil
}

// ValidateConfig checks named kinds and builtin arguments.
//
// Unknown matchers only produce warnings because such rules are skipped at
// dispatch time; unknown appliers and malformed builtin arguments are errors.
func ValidateConfig(cfg *Config) (warnings []string, err error) {
	if cfg == nil {
		return nil, nil
	}
	var errs []error
	for i, r := range cfg.Rules {
		if !r.Match.IsDirect() {
			switch {
			case !HasMatcher(r.Match.Kind()):
				warnings = append(warnings, fmt.Sprintf("rules[%d]: unknown match %q, rule never matches", i, r.Match.Kind()))
			case r.Match.Kind() == KindStatus:
				if _, ok := statusCodes(r.Match.Arg(0)); !ok {
					errs = append(errs, fmt.Errorf("rules[%d]: status match requires a list of integer codes", i))
				}
			}
		}
		if r.Apply.IsDirect() {
			continue
		}
		switch kind := r.Apply.Kind(); {
		case !HasApplier(kind):
			errs = append(errs, fmt.Errorf("rules[%d]: %w", i, &UnknownApplierError{Apply: kind, Match: r.Match.label()}))
		case kind == KindJSON:
			if g := r.Apply.Arg(0); g != nil {
				if _, ok := g.(string); !ok {
					errs = append(errs, fmt.Errorf("rules[%d]: json grab must be a string", i))
				}
			}
		case kind == KindThrow:
			if r.Apply.Arg(0) == nil {
				warnings = append(warnings, fmt.Sprintf("rules[%d]: throw without message template", i))
			}
		}
	}
	return warnings, errors.Join(errs...)
}
