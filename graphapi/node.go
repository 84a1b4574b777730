package graphapi

import (
	"encoding/json"
	"sort"
)

// GraphNode represents the encapsulation of an individual functionality within a Graph
type GraphNode struct {
	ID              int            `json:"id"`
	Type            string         `json:"type"`
	Position        Pos            `json:"pos"`
	Size            Size           `json:"size"`
	Order           int            `json:"order"`
	Mode            int            `json:"mode"`
	Title           string         `json:"title"`
	Color           string         `json:"color"`
	BGColor         string         `json:"bgcolor"`
	Inputs          []Slot         `json:"inputs,omitempty"`
	Outputs         []Slot         `json:"outputs,omitempty"`
	WidgetValues    []any          `json:"-"`
	WidgetValueMap  map[string]any `json:"-"`
	RawWidgetValues json.RawMessage `json:"widgets_values,omitempty"`
	Graph           *Graph         `json:"-"`
}

func (n *GraphNode) UnmarshalJSON(b []byte) error {
	type Alias GraphNode

	alias := &Alias{}
	if err := json.Unmarshal(b, alias); err != nil {
		return err
	}
	*n = GraphNode(*alias)

	// widgets_values is almost always an array, but a handful of custom
	// node packs serialize it as an object keyed by widget name
	if len(n.RawWidgetValues) > 0 {
		var arr []any
		if err := json.Unmarshal(n.RawWidgetValues, &arr); err == nil {
			n.WidgetValues = arr
			return nil
		}
		var m map[string]any
		if err := json.Unmarshal(n.RawWidgetValues, &m); err == nil {
			n.WidgetValueMap = m
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				n.WidgetValues = append(n.WidgetValues, m[k])
			}
		}
	}
	return nil
}

// GetInputWithName returns the input slot with the given name, or nil.
func (n *GraphNode) GetInputWithName(name string) *Slot {
	for i, s := range n.Inputs {
		if s.Name == name {
			return &n.Inputs[i]
		}
	}
	return nil
}

// GetNodeForInput returns the node connected to the named input, resolved
// by scanning output slots for the input's link id.
func (n *GraphNode) GetNodeForInput(name string) *GraphNode {
	slot := n.GetInputWithName(name)
	if slot == nil || slot.Link == nil || n.Graph == nil {
		return nil
	}
	return n.Graph.SourceOfLink(*slot.Link)
}

// StringWidget returns widget value i if it is a string.
func (n *GraphNode) StringWidget(i int) (string, bool) {
	if i < 0 || i >= len(n.WidgetValues) {
		return "", false
	}
	s, ok := n.WidgetValues[i].(string)
	return s, ok
}

// DisplayWidget renders widget value i as a display string.
func (n *GraphNode) DisplayWidget(i int) (string, bool) {
	if i < 0 || i >= len(n.WidgetValues) {
		return "", false
	}
	return DisplayString(n.WidgetValues[i])
}
