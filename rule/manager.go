package rule

import (
	"go.uber.org/zap"
)

// DefaultManager runs every rule of a set that accepts the context and
// concatenates the violations in rule order.
type DefaultManager struct {
	log *zap.Logger
}

// NewManager returns a DefaultManager. A nil logger discards output.
func NewManager(log *zap.Logger) *DefaultManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &DefaultManager{log: log}
}

func (m *DefaultManager) Evaluate(set *Set, ctx Context) Violations {
	if set == nil {
		return nil
	}
	var out Violations
	for _, r := range set.Rules {
		if !r.Accepts(ctx) {
			continue
		}
		vs := r.Evaluate(ctx)
		if len(vs) > 0 {
			m.log.Debug("rule reported violations",
				zap.String("rule_set", set.Name),
				zap.String("rule", r.Name()),
				zap.String("context", ctx.Name()),
				zap.Int("count", len(vs)),
			)
		}
		out = append(out, vs...)
	}
	return out
}
