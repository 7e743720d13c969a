package command

import (
	"strings"

	"go.uber.org/zap"
)

// Composite runs several commands as one unit.
type Composite struct {
	commands []Command
	executed int
}

// NewComposite groups commands in execution order.
func NewComposite(cmds ...Command) *Composite {
	return &Composite{commands: cmds}
}

func (c *Composite) Name() string {
	names := make([]string, len(c.commands))
	for i, cmd := range c.commands {
		names[i] = cmd.Name()
	}
	return "composite(" + strings.Join(names, ",") + ")"
}

// Allow checks every child against the current graph and merges the results.
func (c *Composite) Allow(ec *ExecutionContext) Result {
	res := Success()
	for _, cmd := range c.commands {
		res = res.Merge(cmd.Allow(ec))
	}
	return res
}

// Execute runs the children in order. The first rejected child stops the
// run and the children already executed are undone in reverse order. The
// rollback results are merged into the returned result.
func (c *Composite) Execute(ec *ExecutionContext) Result {
	res := Success()
	for i, cmd := range c.commands {
		r := cmd.Execute(ec)
		res = res.Merge(r)
		if r.IsError() {
			res = res.Merge(c.rollback(ec, i))
			c.executed = 0
			return res
		}
	}
	c.executed = len(c.commands)
	return res
}

// Undo reverts the executed children in reverse order.
func (c *Composite) Undo(ec *ExecutionContext) Result {
	res := Success()
	for i := c.executed - 1; i >= 0; i-- {
		res = res.Merge(c.commands[i].Undo(ec))
	}
	c.executed = 0
	return res
}

func (c *Composite) rollback(ec *ExecutionContext, n int) Result {
	res := Success()
	for i := n - 1; i >= 0; i-- {
		r := c.commands[i].Undo(ec)
		if r.IsError() {
			ec.logger().Warn("rollback rejected",
				zap.String("composite", c.Name()),
				zap.String("command", c.commands[i].Name()),
				zap.Int("violations", len(r.Violations)),
			)
		}
		res = res.Merge(r)
	}
	return res
}
