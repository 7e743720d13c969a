package diagram

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"
)

// Graph is a diagram's directed graph. Nodes and Edges keep insertion order.
// RuleSet names the rule-set bound to the diagram when it was created.
type Graph struct {
	ID      string  `json:"id"`
	RuleSet string  `json:"rule_set,omitempty"`
	Nodes   []*Node `json:"nodes"`
	Edges   []*Edge `json:"edges"`
}

// Node is a vertex of the diagram.
// OutEdges and InEdges hold edge ids in connection order.
type Node struct {
	ID       string          `json:"id"`
	Labels   []string        `json:"labels,omitempty"`
	OutEdges []string        `json:"out_edges,omitempty"`
	InEdges  []string        `json:"in_edges,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Edge is a directed connection. An empty SourceID or TargetID means the
// endpoint is not connected.
type Edge struct {
	ID       string   `json:"id"`
	Labels   []string `json:"labels,omitempty"`
	SourceID string   `json:"source_id,omitempty"`
	TargetID string   `json:"target_id,omitempty"`
	Content  Content  `json:"-"`
}

// NewID returns a fresh identifier for a graph element.
func NewID() string {
	return uuid.NewString()
}

// HasLabel reports whether the node carries the given role label.
func (n *Node) HasLabel(label string) bool {
	return slices.Contains(n.Labels, label)
}

// HasLabel reports whether the edge carries the given role label.
func (e *Edge) HasLabel(label string) bool {
	return slices.Contains(e.Labels, label)
}

// addEdgeID appends id to list unless it is already present.
func addEdgeID(list []string, id string) []string {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}

// removeEdgeID drops the first occurrence of id from list.
func removeEdgeID(list []string, id string) []string {
	if i := slices.Index(list, id); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}

// AddOutEdge records e as leaving n.
func (n *Node) AddOutEdge(e *Edge) { n.OutEdges = addEdgeID(n.OutEdges, e.ID) }

// RemoveOutEdge forgets e as leaving n.
func (n *Node) RemoveOutEdge(e *Edge) { n.OutEdges = removeEdgeID(n.OutEdges, e.ID) }

// AddInEdge records e as entering n.
func (n *Node) AddInEdge(e *Edge) { n.InEdges = addEdgeID(n.InEdges, e.ID) }

// RemoveInEdge forgets e as entering n.
func (n *Node) RemoveInEdge(e *Edge) { n.InEdges = removeEdgeID(n.InEdges, e.ID) }

// edgeJSON is the wire form of an Edge with its content tagged by kind.
type edgeJSON struct {
	ID          string          `json:"id"`
	Labels      []string        `json:"labels,omitempty"`
	SourceID    string          `json:"source_id,omitempty"`
	TargetID    string          `json:"target_id,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
}

// MarshalJSON encodes the edge together with its content kind.
func (e *Edge) MarshalJSON() ([]byte, error) {
	out := edgeJSON{
		ID:       e.ID,
		Labels:   e.Labels,
		SourceID: e.SourceID,
		TargetID: e.TargetID,
	}
	kind, raw, err := EncodeContent(e.Content)
	if err != nil {
		return nil, err
	}
	out.ContentType, out.Content = kind, raw
	return json.Marshal(out)
}

// UnmarshalJSON decodes an edge written by MarshalJSON.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var in edgeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	content, err := DecodeContent(in.ContentType, in.Content)
	if err != nil {
		return err
	}
	*e = Edge{
		ID:       in.ID,
		Labels:   in.Labels,
		SourceID: in.SourceID,
		TargetID: in.TargetID,
		Content:  content,
	}
	return nil
}
