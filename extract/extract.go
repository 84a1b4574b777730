// Package extract infers generation parameters from ComfyUI graph metadata.
//
// Neither graph representation labels which node holds "the prompt"; the
// engine traces data-flow edges backward from recognizable sampler/guider
// anchors through an open-ended set of intermediate node types, falling
// back to a prioritized whole-graph scan when structural tracing fails.
// All traversal is cycle-safe and depth-bounded: malformed or adversarial
// graphs terminate with absent fields, never an error.
package extract

import (
	"log/slog"
	"strings"

	"github.com/comfygallery/comfymeta/graphapi"
)

// Field names in the extracted result.
const (
	FieldPositive  = "positive"
	FieldNegative  = "negative"
	FieldModel     = "model"
	FieldSampler   = "sampler"
	FieldScheduler = "scheduler"
	FieldSteps     = "steps"
	FieldCFGScale  = "cfg_scale"
	FieldSeed      = "seed"
	FieldLoras     = "loras"
)

// Fields is the flat field-name to display-string result of one
// extraction. A missing key means the field could not be extracted;
// callers render those as blank. Callers must not mutate a Fields value
// returned through the cache.
type Fields map[string]string

func (f Fields) setIfEmpty(key, value string) {
	if value == "" {
		return
	}
	if _, ok := f[key]; !ok {
		f[key] = value
	}
}

// Get returns the field value, or "" when absent.
func (f Fields) Get(key string) string {
	return f[key]
}

// DefaultMaxDepth bounds reference-chain recursion. Real graphs stay far
// below this; the bound exists so self-loops and adversarial chains
// terminate.
const DefaultMaxDepth = 50

// Extractor is the extraction engine. It is stateless apart from its
// configuration: every call allocates its own traversal state, so a single
// Extractor is safe for concurrent use.
type Extractor struct {
	types    *TypeSets
	maxDepth int
	log      *slog.Logger
}

type Option func(*Extractor)

// WithTypeSets replaces the built-in node-type vocabulary.
func WithTypeSets(ts *TypeSets) Option {
	return func(e *Extractor) {
		if ts != nil {
			e.types = ts
		}
	}
}

// WithMaxDepth overrides the recursion bound.
func WithMaxDepth(depth int) Option {
	return func(e *Extractor) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(log *slog.Logger) Option {
	return func(e *Extractor) {
		if log != nil {
			e.log = log
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		types:    DefaultTypeSets(),
		maxDepth: DefaultMaxDepth,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TypeSets exposes the extractor's node-type vocabulary, the only
// configuration surface of the engine.
func (e *Extractor) TypeSets() *TypeSets {
	return e.types
}

// FromPrompt extracts fields from the execution-record form. Prompts come
// from anchor tracing first and the heuristic scan second; the remaining
// parameters come from a single deterministic pass. The graph is treated
// as a read-only snapshot and is never mutated.
func (e *Extractor) FromPrompt(g graphapi.PromptGraph) Fields {
	fields := Fields{}
	if len(g) == 0 {
		return fields
	}

	anchor := e.findAnchor(g)

	if anchor != nil {
		fields.setIfEmpty(FieldPositive, joinTexts(e.traceFromAnchor(g, anchor, PolarityPositive)))
	}

	// labeled combined-negative nodes beat re-tracing when present
	fields.setIfEmpty(FieldNegative, e.negativeShortcut(g))
	if anchor != nil {
		fields.setIfEmpty(FieldNegative, joinTexts(e.traceFromAnchor(g, anchor, PolarityNegative)))
	}

	if fields.Get(FieldPositive) == "" || fields.Get(FieldNegative) == "" {
		pos, neg := e.heuristicScan(g)
		fields.setIfEmpty(FieldPositive, pos)
		fields.setIfEmpty(FieldNegative, neg)
	}

	e.extractPromptParams(g, fields)
	return fields
}

// FromWorkflow extracts fields from the layout form. This path has no
// heuristic fallback layer; instead, when both polarities trace to the
// identical string the polarity classifier decides which side keeps it.
func (e *Extractor) FromWorkflow(g *graphapi.Graph) Fields {
	fields := Fields{}
	if g == nil || len(g.Nodes) == 0 {
		return fields
	}

	anchor := e.findLayoutAnchor(g)
	if anchor != nil {
		fields.setIfEmpty(FieldPositive, joinTexts(e.traceLayoutFromAnchor(g, anchor, PolarityPositive)))
	}
	fields.setIfEmpty(FieldNegative, e.layoutNegativeShortcut(g))
	if anchor != nil {
		fields.setIfEmpty(FieldNegative, joinTexts(e.traceLayoutFromAnchor(g, anchor, PolarityNegative)))
	}

	e.dedupIdenticalPrompts(fields)
	e.extractLayoutParams(g, fields)
	return fields
}

// dedupIdenticalPrompts resolves the case where positive and negative
// trace to the same text: negative-reading text clears the positive side,
// positive-reading text clears the negative side, ambiguous text clears
// the negative side.
func (e *Extractor) dedupIdenticalPrompts(fields Fields) {
	pos, neg := fields.Get(FieldPositive), fields.Get(FieldNegative)
	if pos == "" || pos != neg {
		return
	}
	if ClassifyPolarity(pos) == PolarityNegative {
		delete(fields, FieldPositive)
		return
	}
	delete(fields, FieldNegative)
}

// FromRaw picks a representation from raw metadata blobs and extracts.
// The execution-record form takes precedence when both parse.
func (e *Extractor) FromRaw(promptJSON, workflowJSON []byte) Fields {
	if len(promptJSON) > 0 {
		g, err := graphapi.NewPromptFromJSONString(string(promptJSON))
		if err == nil && len(g) > 0 {
			return e.FromPrompt(g)
		}
		if err != nil {
			e.log.Debug("prompt metadata did not parse", "error", err)
		}
	}
	if len(workflowJSON) > 0 {
		g, err := graphapi.NewGraphFromJsonString(string(workflowJSON))
		if err == nil {
			return e.FromWorkflow(g)
		}
		e.log.Debug("workflow metadata did not parse", "error", err)
	}
	return Fields{}
}

// joinTexts renders a collected text list for display.
func joinTexts(texts []string) string {
	return strings.Join(texts, ", ")
}
