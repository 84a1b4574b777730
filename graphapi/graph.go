package graphapi

import (
	"encoding/json"
	"io"
	"os"
	"strings"
)

// Graph is the layout form of a workflow as saved by the ComfyUI frontend
// and embedded in generated PNG files under the "workflow" keyword. Nodes
// carry positional widget values; edges exist only as numeric link ids
// referenced from input and output slots.
type Graph struct {
	Nodes      []*GraphNode       `json:"nodes"`
	Links      []*Link            `json:"links"`
	LastNodeID int                `json:"last_node_id"`
	LastLinkID int                `json:"last_link_id"`
	Version    float32            `json:"version"`
	NodesByID  map[int]*GraphNode `json:"-"`
}

func (t *Graph) UnmarshalJSON(b []byte) error {
	// Alias type avoids a recursive call to UnmarshalJSON
	type Alias Graph

	alias := &Alias{}
	if err := json.Unmarshal(b, alias); err != nil {
		return err
	}

	t.LastNodeID = alias.LastNodeID
	t.LastLinkID = alias.LastLinkID
	t.Version = alias.Version
	t.NodesByID = make(map[int]*GraphNode)

	// null entries appear in hand-edited and truncated exports; drop them
	// so every later walk can deref without checking
	t.Nodes = make([]*GraphNode, 0, len(alias.Nodes))
	for _, node := range alias.Nodes {
		if node == nil {
			continue
		}
		t.NodesByID[node.ID] = node
		node.Graph = t
		t.Nodes = append(t.Nodes, node)
	}

	t.Links = make([]*Link, 0, len(alias.Links))
	for _, link := range alias.Links {
		if link != nil {
			t.Links = append(t.Links, link)
		}
	}

	return nil
}

func (t *Graph) GetNodeById(id int) *GraphNode {
	val, ok := t.NodesByID[id]
	if ok {
		return val
	}
	return nil
}

// SourceOfLink returns the node whose output carries the given link id.
// The link table in the serialized graph is not trusted to be present or
// complete, so resolution scans every node's output slots for containment.
func (t *Graph) SourceOfLink(linkID int) *GraphNode {
	for _, n := range t.Nodes {
		for _, out := range n.Outputs {
			if out.Links == nil {
				continue
			}
			for _, l := range *out.Links {
				if l == linkID {
					return n
				}
			}
		}
	}
	return nil
}

// GetNodesWithTitle retrieves nodes from the graph based on a given title.
func (t *Graph) GetNodesWithTitle(title string) []*GraphNode {
	retv := make([]*GraphNode, 0)
	for _, n := range t.Nodes {
		if n.Title == title {
			retv = append(retv, n)
		}
	}
	return retv
}

// GetNodesWithType retrieves all nodes in the graph that match a specified type.
func (t *Graph) GetNodesWithType(nodeType string) []*GraphNode {
	retv := make([]*GraphNode, 0)
	for _, n := range t.Nodes {
		if n.Type == nodeType {
			retv = append(retv, n)
		}
	}
	return retv
}

func NewGraphFromJsonReader(r io.Reader) (*Graph, error) {
	fileContent, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	graph := &Graph{}
	err = json.Unmarshal(fileContent, &graph)
	if err != nil {
		return nil, err
	}
	return graph, nil
}

func NewGraphFromJsonFile(path string) (*Graph, error) {
	freader, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer freader.Close()

	return NewGraphFromJsonReader(freader)
}

func NewGraphFromJsonString(data string) (*Graph, error) {
	return NewGraphFromJsonReader(strings.NewReader(data))
}
