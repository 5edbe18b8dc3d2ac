package resolverrules

import "context"

// ApplyRules selects the first rule in cfg matching res and returns the
// result of its applier.
//
// Rules whose matcher cannot be resolved never match. A matched rule whose
// applier cannot be resolved fails with *UnknownApplierError.
func ApplyRules(ctx context.Context, cfg *Config, res Response) (any, error) {
	if res == nil {
		return nil, ErrNilResponse
	}
	if cfg == nil {
		cfg = &Config{}
	}
	rule, _ := SelectRule(cfg, res)
	return ApplyRule(ctx, cfg, rule, res)
}

// ApplyRule runs the applier of a rule already chosen by SelectRule.
// Matchers are not evaluated again.
func ApplyRule(ctx context.Context, cfg *Config, rule Rule, res Response) (any, error) {
	if res == nil {
		return nil, ErrNilResponse
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	apply, ok := rule.Apply.resolve()
	if !ok {
		return nil, &UnknownApplierError{Apply: rule.Apply.Kind(), Match: rule.Match.label()}
	}
	return apply(ctx, RuleContext{Config: cfg, Rule: rule, Res: res})
}

// SelectRule returns the rule ApplyRules would apply to res and its
// position; the fallback rule has index len(cfg.Rules).
func SelectRule(cfg *Config, res Response) (Rule, int) {
	if cfg == nil {
		cfg = &Config{}
	}
	for i, rule := range cfg.Rules {
		if matches(cfg, rule, res) {
			return rule, i
		}
	}
	return FallbackRule(cfg), len(cfg.Rules)
}

// FallbackRule is the rule evaluated after cfg.Rules: it always matches and
// returns the JSON body at cfg.Grab, rendered with cfg.Shape when set.
func FallbackRule(cfg *Config) Rule {
	return Rule{
		Match: MatchNamed(KindAll),
		Apply: ApplyNamed(KindJSON, cfg.Grab, cfg.Shape),
	}
}

func matches(cfg *Config, rule Rule, res Response) bool {
	match, ok := rule.Match.resolve()
	if !ok {
		return false
	}
	return match(RuleContext{Config: cfg, Rule: rule, Res: res})
}
