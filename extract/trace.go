package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/comfygallery/comfymeta/graphapi"
)

// Input names that carry conditioning references on nodes we have no
// explicit category for.
var condVocabulary = []string{
	"conditioning",
	"cond",
	"cond_single",
	"positive",
	"pos",
	"negative",
	"neg",
}

var (
	combinedNegativeTitle = regexp.MustCompile(`(?i)combined.*negative`)
	negativePromptTitle   = regexp.MustCompile(`(?i)negative\s*prompt`)
)

// polarityInput maps a polarity to the anchor/guider input that carries it.
func polarityInput(p Polarity) string {
	if p == PolarityNegative {
		return "negative"
	}
	return "positive"
}

// findAnchor returns the first sampler-type node in scan order, the point
// backward tracing starts from.
func (e *Extractor) findAnchor(g graphapi.PromptGraph) *graphapi.PromptNode {
	for _, id := range g.NodeIDs() {
		if node := g[id]; node != nil && e.types.Samplers.Has(node.ClassType) {
			return node
		}
	}
	return nil
}

// traceFromAnchor collects every text source contributing to the anchor's
// conditioning of the requested polarity. Custom samplers route their
// conditioning through a guider node; when the anchor has no direct
// positive/negative input the trace enters through the guider reference.
func (e *Extractor) traceFromAnchor(g graphapi.PromptGraph, anchor *graphapi.PromptNode, polarity Polarity) []string {
	start, ok := anchor.Inputs[polarityInput(polarity)]
	if !ok {
		start, ok = anchor.Inputs["guider"]
		if !ok {
			return nil
		}
	}

	var out []string
	visited := visitSet{}
	e.traceConditioning(g, start, polarity, visited, 0, &out)
	return out
}

// traceConditioning walks backward through conditioning edges, fanning out
// at combine/concat nodes and resolving text at encoder nodes. The visited
// set is shared across the whole fan-out of one trace: a node reachable via
// two branches still contributes exactly once.
func (e *Extractor) traceConditioning(g graphapi.PromptGraph, v any, polarity Polarity, visited visitSet, depth int, out *[]string) {
	id, _, ok := graphapi.Reference(v)
	if !ok {
		return
	}
	if depth >= e.maxDepth {
		return
	}
	if visited.seen(id) {
		return
	}
	visited.enter(id)

	node := g.Node(id)
	if node == nil {
		return
	}

	switch {
	case e.types.CondCombiners.Has(node.ClassType):
		for _, name := range combinerInputs(node) {
			e.traceConditioning(g, node.Inputs[name], polarity, visited, depth+1, out)
		}

	case e.types.WildcardProcessors.Has(node.ClassType):
		appendText(out, e.resolveWildcard(g, node, visitSet{}, 0))

	case e.types.TextEncoders.Has(node.ClassType):
		// the resolver runs with its own fresh visited set; text resolution
		// cycles are independent of conditioning cycles
		for _, f := range []string{"text", "text_g", "text_l"} {
			if txt := e.resolveField(g, node, f, visitSet{}, 0); txt != "" {
				appendText(out, txt)
				break
			}
		}

	case e.types.Guiders.Has(node.ClassType):
		e.traceConditioning(g, node.Inputs[polarityInput(polarity)], polarity, visited, depth+1, out)

	default:
		e.traceGeneric(g, node, polarity, visited, depth, out)
	}
}

// combinerInputs lists the contributing inputs of a combine/concat node in
// deterministic order: conditioning_to before conditioning_from, then every
// cond/conditioning-prefixed input sorted by name.
func combinerInputs(node *graphapi.PromptNode) []string {
	names := make([]string, 0, len(node.Inputs))
	for name := range node.Inputs {
		switch {
		case name == "conditioning_to" || name == "conditioning_from":
			names = append(names, name)
		case strings.HasPrefix(name, "conditioning") || strings.HasPrefix(name, "cond"):
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		rank := func(s string) int {
			switch s {
			case "conditioning_to":
				return 0
			case "conditioning_from":
				return 1
			}
			return 2
		}
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	return names
}

// traceGeneric handles conditioning-shaped nodes outside every known
// category: follow vocabulary-named inputs first, then any reference whose
// target looks conditioning-related by type name.
func (e *Extractor) traceGeneric(g graphapi.PromptGraph, node *graphapi.PromptNode, polarity Polarity, visited visitSet, depth int, out *[]string) {
	before := len(*out)
	for _, name := range condVocabulary {
		if v, ok := node.Inputs[name]; ok {
			e.traceConditioning(g, v, polarity, visited, depth+1, out)
		}
	}
	if len(*out) > before {
		return
	}

	names := make([]string, 0, len(node.Inputs))
	for name := range node.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		refID, _, ok := graphapi.Reference(node.Inputs[name])
		if !ok {
			continue
		}
		target := g.Node(refID)
		if target == nil {
			continue
		}
		if strings.Contains(target.ClassType, "Conditioning") || strings.Contains(target.ClassType, "CLIP") {
			e.traceConditioning(g, node.Inputs[name], polarity, visited, depth+1, out)
		}
	}
}

// appendText appends a non-empty text to the collection unless an exact
// duplicate was already collected.
func appendText(out *[]string, txt string) {
	if txt == "" {
		return
	}
	for _, existing := range *out {
		if existing == txt {
			return
		}
	}
	*out = append(*out, txt)
}

// negativeShortcut checks the two labels some community packs attach to a
// pre-computed combined negative prompt. Trusting the label is cheaper and
// more accurate than re-tracing the conditioning chain.
func (e *Extractor) negativeShortcut(g graphapi.PromptGraph) string {
	for _, id := range g.NodeIDs() {
		node := g[id]
		if node == nil {
			continue
		}
		if e.types.DisplayText.Has(node.ClassType) && combinedNegativeTitle.MatchString(node.Title()) {
			if txt := literalField(node, displayFields...); txt != "" {
				return txt
			}
		}
	}
	for _, id := range g.NodeIDs() {
		node := g[id]
		if node == nil {
			continue
		}
		if e.types.TextLiterals.Has(node.ClassType) && negativePromptTitle.MatchString(node.Title()) {
			if txt := literalField(node, "text", "value"); txt != "" {
				return txt
			}
		}
	}
	return ""
}
