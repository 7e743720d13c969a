package rule

import "fmt"

// Acyclic rejects connections that would close a cycle among edges labeled
// Edge. An empty Edge considers every edge. Self-loops are cycles.
type Acyclic struct {
	ID   string
	Edge string
}

func (r *Acyclic) Name() string { return r.ID }

func (r *Acyclic) Accepts(ctx Context) bool {
	c, ok := ctx.(*ConnectionContext)
	if !ok || c.Edge == nil || c.Source == nil || c.Target == nil {
		return false
	}
	return r.Edge == "" || c.Edge.HasLabel(r.Edge)
}

func (r *Acyclic) Evaluate(ctx Context) Violations {
	c := ctx.(*ConnectionContext)
	adj := make(map[string][]string)
	for _, e := range c.Graph().Edges {
		if e.ID == c.Edge.ID {
			continue
		}
		if r.Edge != "" && !e.HasLabel(r.Edge) {
			continue
		}
		if e.SourceID == "" || e.TargetID == "" {
			continue
		}
		adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
	}
	adj[c.Source.ID] = append(adj[c.Source.ID], c.Target.ID)

	if hasCycle(adj) {
		return Violations{{
			Type:    ViolationError,
			Rule:    r.ID,
			Element: c.Edge.ID,
			Message: fmt.Sprintf("connecting %s to %s creates a cycle", c.Source.ID, c.Target.ID),
		}}
	}
	return nil
}

// hasCycle runs a three-colour DFS over adj.
func hasCycle(adj map[string][]string) bool {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int)
	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for id := range adj {
		if state[id] == unvisited && dfs(id) {
			return true
		}
	}
	return false
}
