package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/comfygallery/comfymeta/graphapi"
)

// visitSet tracks prompt-graph node ids entered on the current call chain.
// It is threaded explicitly through every recursive call: shared down a
// linear chain (revisiting there is a cycle), copied at fan-out points so
// sibling branches cannot poison each other's cycle detection.
type visitSet map[string]struct{}

func (v visitSet) seen(id string) bool {
	_, ok := v[id]
	return ok
}

func (v visitSet) enter(id string) {
	v[id] = struct{}{}
}

func (v visitSet) clone() visitSet {
	c := make(visitSet, len(v))
	for k := range v {
		c[k] = struct{}{}
	}
	return c
}

// Ordered field lists used during resolution. Display nodes hold a final
// value in one of displayFields; generic text-shaped nodes are scanned over
// genericFields.
var (
	displayFields = []string{"text_0", "text_1", "text_2", "value", "text"}
	genericFields = []string{"text", "prompt", "string", "value", "text_output", "output", "result"}

	concatInputPattern = regexp.MustCompile(`^text(_(\d+))?$`)
)

// minIncidentalLength is the acceptance threshold for the last-resort input
// scan: shorter strings are almost always filenames, sampler names or enum
// values rather than prompt text.
const minIncidentalLength = 10

// resolveText resolves a prompt-graph input value to prompt text. The value
// may be a literal, a {content: ...} wrapper, or a [nodeId, slot] reference;
// references dispatch on the referenced node's class type. Failure of any
// kind resolves to "".
func (e *Extractor) resolveText(g graphapi.PromptGraph, v any, visited visitSet, depth int) string {
	if s, ok := graphapi.LiteralString(v); ok {
		if IsPlausiblePromptText(s) {
			return strings.TrimSpace(s)
		}
		return ""
	}

	id, _, ok := graphapi.Reference(v)
	if !ok {
		return ""
	}
	if depth >= e.maxDepth {
		return ""
	}
	if visited.seen(id) {
		return ""
	}
	visited.enter(id)

	node := g.Node(id)
	if node == nil {
		return ""
	}

	switch {
	case e.types.DisplayText.Has(node.ClassType):
		// holds an already-resolved final value; never re-trace
		return literalField(node, displayFields...)

	case e.types.WildcardProcessors.Has(node.ClassType):
		return e.resolveWildcard(g, node, visited, depth)

	case e.types.TextConcat.Has(node.ClassType):
		return e.resolveConcat(g, node, visited, depth)

	case e.types.TextLiterals.Has(node.ClassType):
		for _, f := range []string{"text", "value"} {
			if r := e.resolveField(g, node, f, visited, depth); r != "" {
				return r
			}
		}

	case e.types.TextEncoders.Has(node.ClassType):
		for _, f := range []string{"text", "text_g", "text_l"} {
			if r := e.resolveField(g, node, f, visited, depth); r != "" {
				return r
			}
		}

	case hasTextHint(node.ClassType) || e.types.GenericText.Has(node.ClassType):
		for _, f := range genericFields {
			if r := e.resolveField(g, node, f, visited, depth); r != "" {
				return r
			}
		}
	}

	return e.resolveAnyInput(g, node, visited, depth)
}

// resolveWildcard prefers the populated (resolved) text of a wildcard
// processor over the raw template. Resolution is authoritative here: an
// empty result stays empty rather than falling through to generic probing.
func (e *Extractor) resolveWildcard(g graphapi.PromptGraph, node *graphapi.PromptNode, visited visitSet, depth int) string {
	if r := e.resolveField(g, node, "populated_text", visited, depth); r != "" {
		return r
	}
	return e.resolveField(g, node, "wildcard_text", visited, depth)
}

// resolveConcat joins every text/text_<n> input of a concatenation node.
// Each branch resolves against its own copy of the visited set: two
// branches legitimately reaching the same upstream literal is not a cycle.
func (e *Extractor) resolveConcat(g graphapi.PromptGraph, node *graphapi.PromptNode, visited visitSet, depth int) string {
	type branch struct {
		name string
		ord  int
	}
	branches := make([]branch, 0, len(node.Inputs))
	for name := range node.Inputs {
		m := concatInputPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		ord := -1 // bare "text" sorts before text_0
		if m[2] != "" {
			ord, _ = strconv.Atoi(m[2])
		}
		branches = append(branches, branch{name: name, ord: ord})
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].ord < branches[j].ord })

	parts := make([]string, 0, len(branches))
	for _, b := range branches {
		if r := e.resolveField(g, node, b.name, visited.clone(), depth); r != "" {
			parts = append(parts, r)
		}
	}

	sep := " "
	for _, f := range []string{"separator", "delimiter"} {
		if s, ok := graphapi.LiteralString(node.Inputs[f]); ok && s != "" {
			sep = s
			break
		}
	}
	return strings.Join(parts, sep)
}

// resolveField resolves one named input of a node: literal in place, or a
// recursive hop when the input is a reference.
func (e *Extractor) resolveField(g graphapi.PromptGraph, node *graphapi.PromptNode, field string, visited visitSet, depth int) string {
	v, ok := node.Inputs[field]
	if !ok {
		return ""
	}
	if s, isLit := graphapi.LiteralString(v); isLit {
		if IsPlausiblePromptText(s) {
			return strings.TrimSpace(s)
		}
		return ""
	}
	if _, _, isRef := graphapi.Reference(v); isRef {
		return e.resolveText(g, v, visited, depth+1)
	}
	return ""
}

// resolveAnyInput is the last resort: scan every input of the node and
// accept any sufficiently long literal, or the result of chasing any
// unvisited reference one level further.
func (e *Extractor) resolveAnyInput(g graphapi.PromptGraph, node *graphapi.PromptNode, visited visitSet, depth int) string {
	names := make([]string, 0, len(node.Inputs))
	for name := range node.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := node.Inputs[name]
		if s, ok := graphapi.LiteralString(v); ok {
			t := strings.TrimSpace(s)
			if len(t) >= minIncidentalLength && IsPlausiblePromptText(s) {
				return t
			}
			continue
		}
		if refID, _, ok := graphapi.Reference(v); ok && !visited.seen(refID) {
			if r := e.resolveText(g, v, visited, depth+1); len(r) >= minIncidentalLength {
				return r
			}
		}
	}
	return ""
}

// literalField returns the first non-empty plausible literal among the
// given fields, without following references.
func literalField(node *graphapi.PromptNode, fields ...string) string {
	for _, f := range fields {
		if s, ok := graphapi.LiteralString(node.Inputs[f]); ok {
			t := strings.TrimSpace(s)
			if t != "" && IsPlausiblePromptText(s) {
				return t
			}
		}
	}
	return ""
}
