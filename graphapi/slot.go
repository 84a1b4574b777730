package graphapi

// Slot represents a connection point within a GraphNode. Input slots carry
// at most one link id; output slots carry a list of link ids. A nil Link
// means the input is unconnected and the value, if any, lives in the node's
// widgets_values.
type Slot struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Link      *int   `json:"link,omitempty"`
	Links     *[]int `json:"links,omitempty"`
	SlotIndex *int   `json:"slot_index,omitempty"`
}
