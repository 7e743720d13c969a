package server

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/meikuraledutech/diagram"
	"github.com/meikuraledutech/diagram/command"
)

// session is the in-memory working copy of one diagram. mu is held for a
// whole request so a command and its persistence are not interleaved.
type session struct {
	mu      sync.Mutex
	graph   *diagram.Graph
	index   *diagram.MapIndex
	history *command.History
}

type opener func(ctx context.Context, id string) (*session, error)

// sessions caches sessions by diagram id.
type sessions struct {
	mu   sync.Mutex
	open opener
	byID map[string]*session
}

func newSessions(open opener) *sessions {
	return &sessions{open: open, byID: make(map[string]*session)}
}

// get returns the cached session or opens one. A nil session means the
// diagram does not exist.
func (ss *sessions) get(ctx context.Context, id string) (*session, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if s, ok := ss.byID[id]; ok {
		return s, nil
	}
	s, err := ss.open(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	ss.byID[id] = s
	return s, nil
}

func (ss *sessions) forget(id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.byID, id)
}

func (ss *sessions) reset() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.byID = make(map[string]*session)
}

func (s *Server) openSession(ctx context.Context, id string) (*session, error) {
	g, err := s.cfg.Store.GetDiagram(ctx, id)
	if err != nil || g == nil {
		return nil, err
	}
	set := s.cfg.RuleSets[g.RuleSet]
	if g.RuleSet != "" && set == nil {
		s.log.Warn("unknown rule-set, rules disabled",
			zap.String("diagram", id),
			zap.String("rule_set", g.RuleSet),
		)
	}

	idx := diagram.NewIndex(g)
	opts := []command.HistoryOption{command.WithLimit(s.cfg.HistoryLimit)}
	if s.cfg.Metrics != nil {
		opts = append(opts, command.WithObserver(s.cfg.Metrics.ObserveCommand))
	}
	ec := command.NewExecutionContext(idx, s.rules, set, s.log.With(zap.String("diagram", id)))
	return &session{
		graph:   g,
		index:   idx,
		history: command.NewHistory(ec, opts...),
	}, nil
}
