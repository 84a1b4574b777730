package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/comfygallery/comfymeta/graphapi"
)

func mustPrompt(t *testing.T, data string) graphapi.PromptGraph {
	t.Helper()
	g, err := graphapi.NewPromptFromJSONString(data)
	if err != nil {
		t.Fatalf("prompt fixture did not parse: %v", err)
	}
	return g
}

func TestResolveTextLiteral(t *testing.T) {
	e := New()
	g := graphapi.PromptGraph{}

	if got := e.resolveText(g, "a cat on a mat", visitSet{}, 0); got != "a cat on a mat" {
		t.Errorf("literal: got %q", got)
	}
	if got := e.resolveText(g, "  padded  ", visitSet{}, 0); got != "padded" {
		t.Errorf("literal should be trimmed: got %q", got)
	}
	if got := e.resolveText(g, map[string]any{"content": "wrapped"}, visitSet{}, 0); got != "wrapped" {
		t.Errorf("content wrapper: got %q", got)
	}
	if got := e.resolveText(g, float64(7), visitSet{}, 0); got != "" {
		t.Errorf("number: got %q", got)
	}
	if got := e.resolveText(g, `{"not": "prose"}`, visitSet{}, 0); got != "" {
		t.Errorf("serialized object: got %q", got)
	}
}

func TestResolveTextDanglingReference(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{"1": {"class_type": "CLIPTextEncode", "inputs": {"text": "hello world"}}}`)

	if got := e.resolveText(g, []any{"99", float64(0)}, visitSet{}, 0); got != "" {
		t.Errorf("dangling reference should resolve empty, got %q", got)
	}
}

func TestResolveTextThroughEncoder(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "Text Literal", "inputs": {"text": "an orange grove"}},
		"2": {"class_type": "CLIPTextEncode", "inputs": {"text": ["1", 0], "clip": ["9", 1]}}
	}`)

	if got := e.resolveText(g, []any{"2", float64(0)}, visitSet{}, 0); got != "an orange grove" {
		t.Errorf("encoder hop: got %q", got)
	}
}

func TestResolveTextSelfLoop(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "CLIPTextEncode", "inputs": {"text": ["1", 0]}}
	}`)

	if got := e.resolveText(g, []any{"1", float64(0)}, visitSet{}, 0); got != "" {
		t.Errorf("self-loop should terminate empty, got %q", got)
	}
}

func TestResolveTextTwoNodeCycle(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "CLIPTextEncode", "inputs": {"text": ["2", 0]}},
		"2": {"class_type": "Text Literal", "inputs": {"text": ["1", 0]}}
	}`)

	if got := e.resolveText(g, []any{"1", float64(0)}, visitSet{}, 0); got != "" {
		t.Errorf("cycle should terminate empty, got %q", got)
	}
}

func TestResolveTextDepthBound(t *testing.T) {
	// a linear reference chain longer than the depth bound
	var sb strings.Builder
	sb.WriteString("{")
	for i := 1; i <= 60; i++ {
		if i > 1 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `"%d": {"class_type": "Text Literal", "inputs": {"text": ["%d", 0]}}`, i, i+1)
	}
	sb.WriteString(`,"61": {"class_type": "Text Literal", "inputs": {"text": "the far end"}}}`)

	e := New()
	g := mustPrompt(t, sb.String())
	if got := e.resolveText(g, []any{"1", float64(0)}, visitSet{}, 0); got != "" {
		t.Errorf("chain past the depth bound should resolve empty, got %q", got)
	}

	deep := New(WithMaxDepth(100))
	if got := deep.resolveText(g, []any{"1", float64(0)}, visitSet{}, 0); got != "the far end" {
		t.Errorf("raised bound should reach the literal, got %q", got)
	}
}

func TestResolveWildcardPrecedence(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "ImpactWildcardProcessor", "inputs": {
			"wildcard_text": "__animal__ in a field",
			"populated_text": "red fox in a field"
		}}
	}`)

	if got := e.resolveText(g, []any{"1", float64(0)}, visitSet{}, 0); got != "red fox in a field" {
		t.Errorf("populated text should win, got %q", got)
	}

	g2 := mustPrompt(t, `{
		"1": {"class_type": "ImpactWildcardProcessor", "inputs": {
			"wildcard_text": "__animal__ in a field",
			"populated_text": ""
		}}
	}`)
	if got := e.resolveText(g2, []any{"1", float64(0)}, visitSet{}, 0); got != "__animal__ in a field" {
		t.Errorf("empty populated text should fall back to the template, got %q", got)
	}
}

func TestResolveConcatOrderAndSeparator(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "Text Literal", "inputs": {"text": "first half"}},
		"2": {"class_type": "Text Literal", "inputs": {"text": "second half"}},
		"3": {"class_type": "Text Concatenate", "inputs": {
			"text_1": ["2", 0],
			"text_0": ["1", 0],
			"delimiter": ", "
		}}
	}`)

	if got := e.resolveText(g, []any{"3", float64(0)}, visitSet{}, 0); got != "first half, second half" {
		t.Errorf("concat: got %q", got)
	}
}

func TestResolveConcatBareTextSortsFirst(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"3": {"class_type": "Text Concatenate", "inputs": {
			"text_0": "trailing part",
			"text": "leading part"
		}}
	}`)

	if got := e.resolveText(g, []any{"3", float64(0)}, visitSet{}, 0); got != "leading part trailing part" {
		t.Errorf("bare text should order before text_0, got %q", got)
	}
}

func TestResolveConcatSharedUpstream(t *testing.T) {
	// both branches reach the same literal: legitimate reuse, not a cycle
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "Text Literal", "inputs": {"text": "shared text"}},
		"3": {"class_type": "Text Concatenate", "inputs": {
			"text_0": ["1", 0],
			"text_1": ["1", 0]
		}}
	}`)

	if got := e.resolveText(g, []any{"3", float64(0)}, visitSet{}, 0); got != "shared text shared text" {
		t.Errorf("fan-out to a shared upstream: got %q", got)
	}
}

func TestResolveDisplayNodeIsAuthoritative(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "ShowText|pysssss", "inputs": {
			"text_0": "the final resolved prompt",
			"text": ["2", 0]
		}},
		"2": {"class_type": "Text Literal", "inputs": {"text": "an upstream template"}}
	}`)

	if got := e.resolveText(g, []any{"1", float64(0)}, visitSet{}, 0); got != "the final resolved prompt" {
		t.Errorf("display node literal should win without re-tracing, got %q", got)
	}
}

func TestResolveLastResortInputScan(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "SomeUnknownNode", "inputs": {
			"a_number": 3,
			"b_short": "tiny",
			"c_long": "a string long enough to count as text"
		}}
	}`)

	if got := e.resolveText(g, []any{"1", float64(0)}, visitSet{}, 0); got != "a string long enough to count as text" {
		t.Errorf("last-resort scan: got %q", got)
	}
}
