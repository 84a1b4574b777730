package graphapi

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
)

// PromptGraph is the flattened execution form of a workflow: a mapping of
// node id to node, as submitted to the ComfyUI /prompt endpoint and embedded
// in generated PNG files under the "prompt" keyword.
type PromptGraph map[string]*PromptNode

// PromptNode is a single node in a PromptGraph.
//
// Inputs values can be one of:
//   - a literal (string, float64, bool)
//   - an object with a "content" field holding a literal
//   - a reference []interface{} where [0] is the origin node id and
//     [1] is the origin output slot
type PromptNode struct {
	ClassType string          `json:"class_type"`
	Inputs    map[string]any  `json:"inputs"`
	Meta      *PromptNodeMeta `json:"_meta,omitempty"`
}

// PromptNodeMeta carries frontend-only annotations, currently just the
// user-assigned node title.
type PromptNodeMeta struct {
	Title string `json:"title"`
}

// Title returns the user-assigned title of the node, or "" if none was set.
func (n *PromptNode) Title() string {
	if n == nil || n.Meta == nil {
		return ""
	}
	return n.Meta.Title
}

// Node returns the node with the given id, or nil. References to missing
// nodes are expected in partially malformed graphs and are not an error.
func (t PromptGraph) Node(id string) *PromptNode {
	if t == nil {
		return nil
	}
	return t[id]
}

// NodeIDs returns all node ids in deterministic scan order: numeric ids in
// ascending numeric order before non-numeric ids in lexicographic order.
// Go map iteration is randomized, so every whole-graph scan in the engine
// goes through this to keep "first encountered" stable.
func (t PromptGraph) NodeIDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	SortNodeIDs(ids)
	return ids
}

// SortNodeIDs orders ids numerically where possible, lexicographically
// otherwise, with numeric ids first.
func SortNodeIDs(ids []string) {
	numeric := func(s string) (int64, bool) {
		v, err := strconv.ParseInt(s, 10, 64)
		return v, err == nil
	}
	less := func(a, b string) bool {
		av, aok := numeric(a)
		bv, bok := numeric(b)
		switch {
		case aok && bok:
			return av < bv
		case aok:
			return true
		case bok:
			return false
		default:
			return a < b
		}
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && less(ids[j], ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

// Reference decomposes a [nodeId, outputSlot] input value. The node id may
// be serialized as either a string or a number depending on which frontend
// wrote the graph; both normalize to a string id.
func Reference(v any) (id string, slot int, ok bool) {
	arr, isArr := v.([]any)
	if !isArr || len(arr) != 2 {
		return "", 0, false
	}
	switch t := arr[0].(type) {
	case string:
		id = t
	case float64:
		id = strconv.FormatInt(int64(t), 10)
	case json.Number:
		id = t.String()
	default:
		return "", 0, false
	}
	if id == "" {
		return "", 0, false
	}
	switch s := arr[1].(type) {
	case float64:
		slot = int(s)
	case json.Number:
		if v, err := s.Int64(); err == nil {
			slot = int(v)
		}
	}
	return id, slot, true
}

// LiteralString unwraps an input value to a string literal if it is one,
// directly or behind a {content: ...} wrapper. Returns ok=false for
// references, numbers and anything else.
func LiteralString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any:
		if c, exists := t["content"]; exists {
			if s, isStr := c.(string); isStr {
				return s, true
			}
		}
	}
	return "", false
}

// DisplayString renders a literal input value the way the UI would show it:
// numbers without a trailing ".0", booleans as true/false, strings verbatim.
// Returns ok=false for references and unrecognized shapes.
func DisplayString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		// integer tokens pass through exactly (64-bit seeds); fractional
		// tokens render like float64 so "7.0" shows as "7"
		if _, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return t.String(), true
		}
		if f, err := t.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case map[string]any:
		if c, exists := t["content"]; exists {
			return DisplayString(c)
		}
	}
	return "", false
}

// NewPromptFromJSONReader deserializes a prompt graph. The input is treated
// as untrusted; node ids map to nodes and anything unexpected inside a node
// decodes as far as the shapes allow. Numbers decode as json.Number so
// 64-bit seeds survive without float rounding.
func NewPromptFromJSONReader(r io.Reader) (PromptGraph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	graph := PromptGraph{}
	if err := dec.Decode(&graph); err != nil {
		return nil, err
	}
	return graph, nil
}

func NewPromptFromJSONFile(path string) (PromptGraph, error) {
	freader, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer freader.Close()

	return NewPromptFromJSONReader(freader)
}

func NewPromptFromJSONString(data string) (PromptGraph, error) {
	return NewPromptFromJSONReader(strings.NewReader(data))
}
