package diagram

// HasChildren reports whether n contains at least one child node.
func HasChildren(idx Index, n *Node) bool {
	return CountChildren(idx, n) > 0
}

// CountChildren counts the containment edges leaving n.
func CountChildren(idx Index, n *Node) int {
	count := 0
	for _, id := range n.OutEdges {
		e := idx.GetEdge(id)
		if e == nil {
			continue
		}
		if _, ok := e.Content.(*Child); ok {
			count++
		}
	}
	return count
}

// OutEdgesLabeled returns the edges leaving n that carry label.
// An empty label matches every edge.
func OutEdgesLabeled(idx Index, n *Node, label string) []*Edge {
	return edgesLabeled(idx, n.OutEdges, label)
}

// InEdgesLabeled returns the edges entering n that carry label.
// An empty label matches every edge.
func InEdgesLabeled(idx Index, n *Node, label string) []*Edge {
	return edgesLabeled(idx, n.InEdges, label)
}

func edgesLabeled(idx Index, ids []string, label string) []*Edge {
	var out []*Edge
	for _, id := range ids {
		e := idx.GetEdge(id)
		if e == nil {
			continue
		}
		if label == "" || e.HasLabel(label) {
			out = append(out, e)
		}
	}
	return out
}
