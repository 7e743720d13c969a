// Package command mutates diagram graphs through reversible commands.
//
// Every command has two phases. Allow asks the rule manager whether the
// change is legal without touching the graph; Execute checks again and, unless
// the outcome is an error, applies the change. Undo reverts an executed
// command by running its inverse. Rule violations are returned inside a
// Result and are never Go errors: the caller decides whether to abort, warn
// or override.
//
// Commands assume a single writer per graph; History provides that
// serialization for callers that share a graph.
package command

import (
	"go.uber.org/zap"

	"github.com/meikuraledutech/diagram"
	"github.com/meikuraledutech/diagram/rule"
)

// Command is a single structural change to a graph.
type Command interface {
	Name() string
	Allow(ec *ExecutionContext) Result
	Execute(ec *ExecutionContext) Result
	Undo(ec *ExecutionContext) Result
}

// ExecutionContext carries what a command needs to run against one graph.
// Rules may be nil, in which case rule checks are skipped.
type ExecutionContext struct {
	Index   diagram.Index
	Rules   rule.Manager
	RuleSet *rule.Set
	Logger  *zap.Logger
}

// NewExecutionContext binds an index to a rule manager and rule-set.
func NewExecutionContext(idx diagram.Index, rules rule.Manager, set *rule.Set, log *zap.Logger) *ExecutionContext {
	return &ExecutionContext{Index: idx, Rules: rules, RuleSet: set, Logger: log}
}

func (ec *ExecutionContext) logger() *zap.Logger {
	if ec.Logger == nil {
		return zap.NewNop()
	}
	return ec.Logger
}

// evaluate runs one context through the rule manager.
func (ec *ExecutionContext) evaluate(ctx rule.Context) rule.Violations {
	vs := ec.Rules.Evaluate(ec.RuleSet, ctx)
	ec.logger().Debug("rules evaluated",
		zap.String("context", ctx.Name()),
		zap.Int("violations", len(vs)),
	)
	return vs
}
