package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/comfygallery/comfymeta/graphapi"
)

// layoutVisit tracks layout-graph node ids, the structural analogue of
// visitSet with the same copy-at-fanout / share-in-chain semantics.
type layoutVisit map[int]struct{}

func (v layoutVisit) seen(id int) bool {
	_, ok := v[id]
	return ok
}

func (v layoutVisit) enter(id int) {
	v[id] = struct{}{}
}

func (v layoutVisit) clone() layoutVisit {
	c := make(layoutVisit, len(v))
	for k := range v {
		c[k] = struct{}{}
	}
	return c
}

// control_after_generate is a frontend-only widget injected after every
// seed/noise_seed INT widget; it shifts all later positional values by one
// and must be skipped when decoding widgets_values.
var controlWidgetValues = map[string]struct{}{
	"fixed":     {},
	"increment": {},
	"decrement": {},
	"randomize": {},
}

func isControlWidget(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, found := controlWidgetValues[s]
	return found
}

// firstPlausibleWidget returns the first string widget that passes the
// prompt-text classifier and is non-empty.
func firstPlausibleWidget(node *graphapi.GraphNode) string {
	for _, w := range node.WidgetValues {
		s, ok := w.(string)
		if !ok {
			continue
		}
		t := strings.TrimSpace(s)
		if t != "" && IsPlausiblePromptText(s) {
			return t
		}
	}
	return ""
}

// resolveLayoutText resolves the text a layout node produces. Named inputs
// only exist as link slots here; everything a user typed lives in the
// positional widgets_values.
func (e *Extractor) resolveLayoutText(node *graphapi.GraphNode, visited layoutVisit, depth int) string {
	if node == nil {
		return ""
	}
	if depth >= e.maxDepth {
		return ""
	}
	if visited.seen(node.ID) {
		return ""
	}
	visited.enter(node.ID)

	switch {
	case e.types.DisplayText.Has(node.Type):
		return firstPlausibleWidget(node)

	case e.types.WildcardProcessors.Has(node.Type):
		// widget order is template first, populated second
		if s, ok := node.StringWidget(1); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		if s, ok := node.StringWidget(0); ok {
			return strings.TrimSpace(s)
		}
		return ""

	case e.types.TextConcat.Has(node.Type):
		return e.resolveLayoutConcat(node, visited, depth)

	case e.types.TextLiterals.Has(node.Type):
		if txt := firstPlausibleWidget(node); txt != "" {
			return txt
		}

	case e.types.TextEncoders.Has(node.Type):
		if src := node.GetNodeForInput("text"); src != nil {
			if txt := e.resolveLayoutText(src, visited, depth+1); txt != "" {
				return txt
			}
		}
		if txt := firstPlausibleWidget(node); txt != "" {
			return txt
		}

	case hasTextHint(node.Type) || e.types.GenericText.Has(node.Type):
		if txt := firstPlausibleWidget(node); txt != "" {
			return txt
		}
	}

	return e.resolveAnyLayoutInput(node, visited, depth)
}

// resolveLayoutConcat joins the linked text/text_<n> inputs of a
// concatenation node, each branch against its own copy of the visited set.
func (e *Extractor) resolveLayoutConcat(node *graphapi.GraphNode, visited layoutVisit, depth int) string {
	var parts []string
	for _, in := range node.Inputs {
		if !concatInputPattern.MatchString(in.Name) || in.Link == nil || node.Graph == nil {
			continue
		}
		src := node.Graph.SourceOfLink(*in.Link)
		if src == nil {
			continue
		}
		if r := e.resolveLayoutText(src, visited.clone(), depth+1); r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, e.layoutSeparator(node, visited, depth))
}

// layoutSeparator finds the join separator of a concat node: an explicit
// separator input link wins, else a short leading string widget (delimiter
// widgets are things like ", "), else a single space.
func (e *Extractor) layoutSeparator(node *graphapi.GraphNode, visited layoutVisit, depth int) string {
	if src := node.GetNodeForInput("separator"); src != nil {
		if s := e.resolveLayoutText(src, visited.clone(), depth+1); s != "" {
			return s
		}
	}
	for _, w := range node.WidgetValues {
		if s, ok := w.(string); ok {
			if s != "" && utf8.RuneCountInString(s) <= 4 {
				return s
			}
			break
		}
	}
	return " "
}

// resolveAnyLayoutInput is the structural last resort: any long plausible
// string widget, then one more hop through any linked input.
func (e *Extractor) resolveAnyLayoutInput(node *graphapi.GraphNode, visited layoutVisit, depth int) string {
	for _, w := range node.WidgetValues {
		s, ok := w.(string)
		if !ok {
			continue
		}
		t := strings.TrimSpace(s)
		if len(t) >= minIncidentalLength && IsPlausiblePromptText(s) {
			return t
		}
	}
	for _, in := range node.Inputs {
		if in.Link == nil || node.Graph == nil {
			continue
		}
		src := node.Graph.SourceOfLink(*in.Link)
		if src == nil || visited.seen(src.ID) {
			continue
		}
		if r := e.resolveLayoutText(src, visited, depth+1); len(r) >= minIncidentalLength {
			return r
		}
	}
	return ""
}

// findLayoutAnchor returns the first sampler-type node in list order.
func (e *Extractor) findLayoutAnchor(g *graphapi.Graph) *graphapi.GraphNode {
	for _, n := range g.Nodes {
		if e.types.Samplers.Has(n.Type) {
			return n
		}
	}
	return nil
}

// traceLayoutFromAnchor is the layout analogue of traceFromAnchor.
func (e *Extractor) traceLayoutFromAnchor(g *graphapi.Graph, anchor *graphapi.GraphNode, polarity Polarity) []string {
	start := anchor.GetNodeForInput(polarityInput(polarity))
	if start == nil {
		start = anchor.GetNodeForInput("guider")
	}
	if start == nil {
		return nil
	}

	var out []string
	visited := layoutVisit{anchor.ID: {}}
	e.traceLayoutConditioning(start, polarity, visited, 0, &out)
	return out
}

// traceLayoutConditioning walks backward through the layout graph's
// conditioning links. One shared visited set per top-level trace.
func (e *Extractor) traceLayoutConditioning(node *graphapi.GraphNode, polarity Polarity, visited layoutVisit, depth int, out *[]string) {
	if node == nil {
		return
	}
	if depth >= e.maxDepth {
		return
	}
	if visited.seen(node.ID) {
		return
	}
	visited.enter(node.ID)

	switch {
	case e.types.CondCombiners.Has(node.Type):
		e.traceLayoutCombiner(node, polarity, visited, depth, out)

	case e.types.WildcardProcessors.Has(node.Type), e.types.TextEncoders.Has(node.Type):
		// text resolution runs against its own fresh visited set;
		// conditioning cycles and text cycles are independent
		appendText(out, e.resolveLayoutText(node, layoutVisit{}, 0))

	case e.types.Guiders.Has(node.Type):
		e.traceLayoutConditioning(node.GetNodeForInput(polarityInput(polarity)), polarity, visited, depth+1, out)

	default:
		e.traceLayoutGeneric(node, polarity, visited, depth, out)
	}
}

func (e *Extractor) traceLayoutCombiner(node *graphapi.GraphNode, polarity Polarity, visited layoutVisit, depth int, out *[]string) {
	// slot order in the layout form is already the author's branch order;
	// conditioning_to still ranks before conditioning_from
	ordered := make([]graphapi.Slot, 0, len(node.Inputs))
	for _, in := range node.Inputs {
		if in.Name == "conditioning_to" {
			ordered = append(ordered, in)
		}
	}
	for _, in := range node.Inputs {
		if in.Name == "conditioning_from" {
			ordered = append(ordered, in)
		}
	}
	for _, in := range node.Inputs {
		if in.Name == "conditioning_to" || in.Name == "conditioning_from" {
			continue
		}
		if strings.HasPrefix(in.Name, "conditioning") || strings.HasPrefix(in.Name, "cond") {
			ordered = append(ordered, in)
		}
	}
	for _, in := range ordered {
		if in.Link == nil || node.Graph == nil {
			continue
		}
		e.traceLayoutConditioning(node.Graph.SourceOfLink(*in.Link), polarity, visited, depth+1, out)
	}
}

func (e *Extractor) traceLayoutGeneric(node *graphapi.GraphNode, polarity Polarity, visited layoutVisit, depth int, out *[]string) {
	before := len(*out)
	for _, name := range condVocabulary {
		if src := node.GetNodeForInput(name); src != nil {
			e.traceLayoutConditioning(src, polarity, visited, depth+1, out)
		}
	}
	if len(*out) > before {
		return
	}
	for _, in := range node.Inputs {
		if in.Link == nil || node.Graph == nil {
			continue
		}
		src := node.Graph.SourceOfLink(*in.Link)
		if src == nil {
			continue
		}
		if strings.Contains(src.Type, "Conditioning") || strings.Contains(src.Type, "CLIP") {
			e.traceLayoutConditioning(src, polarity, visited, depth+1, out)
		}
	}
}

// layoutNegativeShortcut mirrors negativeShortcut over node titles in the
// layout form.
func (e *Extractor) layoutNegativeShortcut(g *graphapi.Graph) string {
	for _, node := range g.Nodes {
		if e.types.DisplayText.Has(node.Type) && combinedNegativeTitle.MatchString(node.Title) {
			if txt := firstPlausibleWidget(node); txt != "" {
				return txt
			}
		}
	}
	for _, node := range g.Nodes {
		if e.types.TextLiterals.Has(node.Type) && negativePromptTitle.MatchString(node.Title) {
			if txt := firstPlausibleWidget(node); txt != "" {
				return txt
			}
		}
	}
	return ""
}
