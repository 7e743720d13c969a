package diagram

import (
	"encoding/json"
	"fmt"
)

// Content kinds as written to the wire and to storage.
const (
	ContentView  = "view"
	ContentChild = "child"
)

// Content is the payload carried by an edge.
type Content interface {
	Kind() string
}

// Magnet is the point on a node's boundary an edge end attaches to.
// A nil *Magnet means "not set", which is different from (0, 0).
type Magnet struct {
	x, y float64
}

// NewMagnet returns a magnet at (x, y).
func NewMagnet(x, y float64) *Magnet {
	return &Magnet{x: x, y: y}
}

func (m *Magnet) X() float64 { return m.x }
func (m *Magnet) Y() float64 { return m.y }

func (m *Magnet) String() string {
	if m == nil {
		return "<unset>"
	}
	return fmt.Sprintf("(%g, %g)", m.x, m.y)
}

type magnetJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (m *Magnet) MarshalJSON() ([]byte, error) {
	return json.Marshal(magnetJSON{X: m.x, Y: m.y})
}

func (m *Magnet) UnmarshalJSON(data []byte) error {
	var in magnetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.x, m.y = in.X, in.Y
	return nil
}

// ViewConnector is the content of an edge drawn on the canvas.
type ViewConnector struct {
	SourceMagnet *Magnet         `json:"source_magnet,omitempty"`
	TargetMagnet *Magnet         `json:"target_magnet,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

func (*ViewConnector) Kind() string { return ContentView }

// Child marks a parent to child containment edge.
type Child struct{}

func (*Child) Kind() string { return ContentChild }

// EncodeContent returns the kind and JSON form of c. Nil content yields an
// empty kind and nil JSON.
func EncodeContent(c Content) (string, json.RawMessage, error) {
	if c == nil {
		return "", nil, nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", nil, fmt.Errorf("diagram: encode %s content: %w", c.Kind(), err)
	}
	return c.Kind(), raw, nil
}

// DecodeContent rebuilds edge content from its kind and JSON form.
// An empty kind yields nil content.
func DecodeContent(kind string, raw json.RawMessage) (Content, error) {
	switch kind {
	case "":
		return nil, nil
	case ContentView:
		vc := &ViewConnector{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, vc); err != nil {
				return nil, fmt.Errorf("diagram: decode view connector: %w", err)
			}
		}
		return vc, nil
	case ContentChild:
		return &Child{}, nil
	default:
		return nil, fmt.Errorf("diagram: unknown content type %q", kind)
	}
}
