package graphapi

import (
	"encoding/json"
	"reflect"
	"testing"
)

const simplePrompt = `{
	"4": {
		"class_type": "CheckpointLoaderSimple",
		"inputs": {"ckpt_name": "sd_xl_base_1.0.safetensors"}
	},
	"6": {
		"class_type": "CLIPTextEncode",
		"inputs": {"text": "a cat on a mat", "clip": ["4", 1]},
		"_meta": {"title": "Positive Prompt"}
	},
	"3": {
		"class_type": "KSampler",
		"inputs": {
			"seed": 42,
			"steps": 20,
			"cfg": 7.0,
			"sampler_name": "euler",
			"positive": ["6", 0],
			"model": ["4", 0]
		}
	}
}`

func TestNewPromptFromJSONString(t *testing.T) {
	g, err := NewPromptFromJSONString(simplePrompt)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(g) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(g))
	}

	enc := g.Node("6")
	if enc == nil {
		t.Fatal("node 6 missing")
	}
	if enc.ClassType != "CLIPTextEncode" {
		t.Errorf("class_type = %q", enc.ClassType)
	}
	if enc.Title() != "Positive Prompt" {
		t.Errorf("title = %q", enc.Title())
	}
	if g.Node("4").Title() != "" {
		t.Errorf("untitled node should have empty title")
	}
	if g.Node("99") != nil {
		t.Error("missing node should be nil")
	}
}

func TestNodeIDsOrder(t *testing.T) {
	g, err := NewPromptFromJSONString(simplePrompt)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := []string{"3", "4", "6"}
	if got := g.NodeIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("NodeIDs() = %v, want %v", got, want)
	}
}

func TestSortNodeIDs(t *testing.T) {
	ids := []string{"b", "10", "2", "a", "1"}
	SortNodeIDs(ids)
	want := []string{"1", "2", "10", "a", "b"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("SortNodeIDs = %v, want %v", ids, want)
	}
}

func TestReference(t *testing.T) {
	id, slot, ok := Reference([]any{"6", float64(1)})
	if !ok || id != "6" || slot != 1 {
		t.Errorf("string-id reference: got (%q, %d, %v)", id, slot, ok)
	}

	// some frontends serialize the node id as a number
	id, _, ok = Reference([]any{float64(12), float64(0)})
	if !ok || id != "12" {
		t.Errorf("numeric-id reference: got (%q, %v)", id, ok)
	}

	if _, _, ok := Reference("not a ref"); ok {
		t.Error("string should not be a reference")
	}
	if _, _, ok := Reference([]any{"6"}); ok {
		t.Error("1-element array should not be a reference")
	}
	if _, _, ok := Reference([]any{true, float64(0)}); ok {
		t.Error("bool id should not be a reference")
	}
}

func TestLiteralString(t *testing.T) {
	if s, ok := LiteralString("hello"); !ok || s != "hello" {
		t.Errorf("plain string: got (%q, %v)", s, ok)
	}
	if s, ok := LiteralString(map[string]any{"content": "wrapped"}); !ok || s != "wrapped" {
		t.Errorf("content wrapper: got (%q, %v)", s, ok)
	}
	if _, ok := LiteralString(float64(3)); ok {
		t.Error("number is not a string literal")
	}
	if _, ok := LiteralString([]any{"6", float64(0)}); ok {
		t.Error("reference is not a string literal")
	}
	if _, ok := LiteralString(map[string]any{"other": "x"}); ok {
		t.Error("wrapper without content is not a string literal")
	}
}

func TestPromptNumbersDecodeExact(t *testing.T) {
	// seeds routinely exceed 2^53; the decoded graph must preserve them
	g, err := NewPromptFromJSONString(`{
		"3": {"class_type": "KSampler", "inputs": {
			"seed": 912345678901234567,
			"cfg": 7.0,
			"positive": ["6", 1]
		}}
	}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	node := g.Node("3")

	if s, ok := DisplayString(node.Inputs["seed"]); !ok || s != "912345678901234567" {
		t.Errorf("seed = (%q, %v)", s, ok)
	}
	if s, ok := DisplayString(node.Inputs["cfg"]); !ok || s != "7" {
		t.Errorf("cfg = (%q, %v)", s, ok)
	}
	id, slot, ok := Reference(node.Inputs["positive"])
	if !ok || id != "6" || slot != 1 {
		t.Errorf("reference = (%q, %d, %v)", id, slot, ok)
	}
}

func TestDisplayString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"euler", "euler"},
		{float64(20), "20"},
		{float64(7.5), "7.5"},
		{true, "true"},
		{map[string]any{"content": float64(42)}, "42"},
		{json.Number("912345678901234567"), "912345678901234567"},
		{json.Number("7.0"), "7"},
		{json.Number("8.5"), "8.5"},
	}
	for _, c := range cases {
		got, ok := DisplayString(c.in)
		if !ok || got != c.want {
			t.Errorf("DisplayString(%v) = (%q, %v), want %q", c.in, got, ok, c.want)
		}
	}
	if _, ok := DisplayString([]any{"6", float64(0)}); ok {
		t.Error("reference has no display string")
	}
}
