package extract

import (
	"strings"

	"github.com/comfygallery/comfymeta/graphapi"
)

// Candidate priorities for the whole-graph fallback scan. An explicit
// positive/negative title is the strongest signal a community graph offers;
// known prompt-bearing node types beat generically text-shaped ones.
const (
	priTitled       = 3
	priPromptNode   = 2
	priGenericText  = 1
	priOther        = 0
	priUnset        = -1
	heuristicFields = 4
)

var heuristicFieldList = [heuristicFields]string{"text", "prompt", "string", "value"}

// heuristicScan is the fallback when structural tracing from an anchor
// yields nothing: score every textual candidate in the graph and keep the
// single best per polarity. Ties keep the first encountered, which is
// stable because ids are scanned in sorted order.
func (e *Extractor) heuristicScan(g graphapi.PromptGraph) (positive, negative string) {
	posPri, negPri := priUnset, priUnset

	consider := func(txt string, pri int, pol Polarity) {
		if txt == "" {
			return
		}
		if pol == PolarityNegative {
			if pri > negPri {
				negative, negPri = txt, pri
			}
			return
		}
		if pri > posPri {
			positive, posPri = txt, pri
		}
	}

	for _, id := range g.NodeIDs() {
		node := g[id]
		if node == nil {
			continue
		}
		title := strings.ToLower(node.Title())

		// wildcard processors carry their resolved text in a known field;
		// the generic field list would pick the raw template instead
		if e.types.WildcardProcessors.Has(node.ClassType) {
			txt := literalField(node, "populated_text", "wildcard_text")
			consider(txt, priPromptNode, e.titledPolarity(title, txt))
			continue
		}

		for _, f := range heuristicFieldList {
			s, ok := graphapi.LiteralString(node.Inputs[f])
			if !ok {
				continue
			}
			txt := strings.TrimSpace(s)
			if txt == "" || !IsPlausiblePromptText(s) {
				continue
			}

			pri := priOther
			switch {
			case strings.Contains(title, "positive") || strings.Contains(title, "negative"):
				pri = priTitled
			case e.types.TextEncoders.Has(node.ClassType) || e.types.TextLiterals.Has(node.ClassType):
				pri = priPromptNode
			case hasTextHint(node.ClassType) || e.types.GenericText.Has(node.ClassType):
				pri = priGenericText
			}

			consider(txt, pri, e.titledPolarity(title, txt))
		}
	}
	return positive, negative
}

// titledPolarity prefers the node title's own word over keyword scoring;
// cue-free ambiguous text defaults to the positive bucket, since untagged
// prose is overwhelmingly the subject prompt.
func (e *Extractor) titledPolarity(lowerTitle, txt string) Polarity {
	if strings.Contains(lowerTitle, "negative") {
		return PolarityNegative
	}
	if strings.Contains(lowerTitle, "positive") {
		return PolarityPositive
	}
	if ClassifyPolarity(txt) == PolarityNegative {
		return PolarityNegative
	}
	return PolarityPositive
}
