package command

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrNothingToUndo is returned by History.Undo when no command is recorded.
var ErrNothingToUndo = errors.New("command: nothing to undo")

// Phase names passed to observers.
const (
	PhaseAllow   = "allow"
	PhaseExecute = "execute"
	PhaseUndo    = "undo"
)

// Observer is told about every phase a History runs.
type Observer func(command, phase string, res Result)

// History runs commands against one graph, one at a time, and keeps the
// executed ones for undo.
type History struct {
	mu        sync.Mutex
	ec        *ExecutionContext
	done      []Command
	limit     int
	observers []Observer
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithLimit caps the number of commands kept for undo. Zero keeps all.
func WithLimit(n int) HistoryOption {
	return func(h *History) { h.limit = n }
}

// WithObserver registers fn to be called after every phase.
func WithObserver(fn Observer) HistoryOption {
	return func(h *History) { h.observers = append(h.observers, fn) }
}

// NewHistory returns a History bound to ec.
func NewHistory(ec *ExecutionContext, opts ...HistoryOption) *History {
	h := &History{ec: ec}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Context returns the execution context commands run in.
func (h *History) Context() *ExecutionContext { return h.ec }

// Allow checks cmd without changing the graph.
func (h *History) Allow(cmd Command) Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	res := cmd.Allow(h.ec)
	h.notify(cmd.Name(), PhaseAllow, res)
	return res
}

// Execute runs cmd and records it for undo unless it was rejected.
func (h *History) Execute(cmd Command) Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	res := cmd.Execute(h.ec)
	if !res.IsError() {
		h.done = append(h.done, cmd)
		if h.limit > 0 && len(h.done) > h.limit {
			h.done = h.done[len(h.done)-h.limit:]
		}
	}
	h.notify(cmd.Name(), PhaseExecute, res)
	return res
}

// Undo reverts the most recent command. A rejected undo keeps the command
// on the stack.
func (h *History) Undo() (Command, Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.done) == 0 {
		return nil, Result{}, ErrNothingToUndo
	}
	cmd := h.done[len(h.done)-1]
	res := cmd.Undo(h.ec)
	if !res.IsError() {
		h.done = h.done[:len(h.done)-1]
	} else {
		h.ec.logger().Warn("undo rejected", zap.String("command", cmd.Name()))
	}
	h.notify(cmd.Name(), PhaseUndo, res)
	return cmd, res, nil
}

// Peek returns the command Undo would revert, or nil.
func (h *History) Peek() Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.done) == 0 {
		return nil
	}
	return h.done[len(h.done)-1]
}

// Len is the number of commands that can be undone.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.done)
}

// Do runs fn while holding the history lock, so graph reads inside fn do not
// interleave with commands.
func (h *History) Do(fn func(ec *ExecutionContext) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.ec)
}

func (h *History) notify(name, phase string, res Result) {
	for _, fn := range h.observers {
		fn(name, phase, res)
	}
}
