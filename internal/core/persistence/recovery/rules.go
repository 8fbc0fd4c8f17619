package recovery

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/zeusync/worldstore/internal/core/observability/log"
)

// Rule pairs a boolean expr-lang expression with the decision it selects.
// Expressions see: kind, category, typeName, reason, serial, typeRef, expected,
// consumed, diff and errorText (empty when absent).
type Rule struct {
	When     string
	Decision Decision
}

type compiledRule struct {
	source   string
	program  *vm.Program
	decision Decision
}

// Rules evaluates rules in order; the first match decides. Events matching
// no rule get the fallback. A rule whose evaluation fails is logged and
// treated as not matching.
type Rules struct {
	rules    []compiledRule
	fallback Decision
	logger   log.Log
}

func eventEnv(ev Event) map[string]any {
	errText := ""
	if ev.Err != nil {
		errText = ev.Err.Error()
	}
	return map[string]any{
		"kind":      ev.Kind.String(),
		"category":  ev.Category,
		"typeName":  ev.TypeName,
		"reason":    ev.Reason,
		"serial":    ev.Serial,
		"typeRef":   ev.TypeRef,
		"expected":  ev.Expected,
		"consumed":  ev.Consumed,
		"diff":      ev.Diff(),
		"errorText": errText,
	}
}

// NewRules compiles every rule up front so configuration errors surface at
// startup rather than in the middle of a load.
func NewRules(rules []Rule, fallback Decision, logger log.Log) (*Rules, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	out := &Rules{fallback: fallback, logger: logger}
	env := eventEnv(Event{})
	for i, r := range rules {
		program, err := expr.Compile(r.When, expr.Env(env), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("recovery rule %d %q: %w", i, r.When, err)
		}
		out.rules = append(out.rules, compiledRule{source: r.When, program: program, decision: r.Decision})
	}
	return out, nil
}

func (r *Rules) Decide(_ context.Context, ev Event) Decision {
	env := eventEnv(ev)
	for i, rule := range r.rules {
		result, err := expr.Run(rule.program, env)
		if err != nil {
			r.logger.Error("recovery rule failed",
				log.Int("rule", i),
				log.String("when", rule.source),
				log.String("kind", ev.Kind.String()),
				log.Category(ev.Category),
				log.Error(err),
			)
			continue
		}
		if matched, ok := result.(bool); ok && matched {
			return rule.decision
		}
	}
	return r.fallback
}
