package extract

import (
	"strings"

	"github.com/comfygallery/comfymeta/graphapi"
)

// Positional widget layouts for anchor node types. Types not listed use
// the stock KSampler order. The control_after_generate widget is filtered
// out before assignment, so the orders below never mention it.
var samplerWidgetOrders = map[string][]string{
	"KSamplerAdvanced": {
		"add_noise", "noise_seed", "steps", "cfg", "sampler_name",
		"scheduler", "start_at_step", "end_at_step", "return_with_leftover_noise",
	},
	"KSampler Adv. (Efficient)": {
		"add_noise", "noise_seed", "steps", "cfg", "sampler_name",
		"scheduler", "start_at_step", "end_at_step", "return_with_leftover_noise",
	},
	"SamplerCustom": {"add_noise", "noise_seed", "cfg"},
}

var defaultSamplerWidgetOrder = []string{
	"seed", "steps", "cfg", "sampler_name", "scheduler", "denoise",
}

var layoutWidgetFieldMap = map[string]string{
	"seed":         FieldSeed,
	"noise_seed":   FieldSeed,
	"steps":        FieldSteps,
	"cfg":          FieldCFGScale,
	"sampler_name": FieldSampler,
	"scheduler":    FieldScheduler,
}

// decodeSamplerWidgets maps a sampler node's positional widget values onto
// named settings, skipping the injected control_after_generate value.
func decodeSamplerWidgets(node *graphapi.GraphNode, order []string) map[string]string {
	decoded := make(map[string]string, len(order))
	i := 0
	for _, w := range node.WidgetValues {
		if isControlWidget(w) {
			continue
		}
		if i >= len(order) {
			break
		}
		if s, ok := graphapi.DisplayString(w); ok {
			decoded[order[i]] = s
		}
		i++
	}
	return decoded
}

// extractLayoutParams is the layout-form parameter pass: anchor widgets
// first, helper nodes for custom-sampler pipelines, then loaders and LoRAs.
func (e *Extractor) extractLayoutParams(g *graphapi.Graph, fields Fields) {
	if anchor := e.findLayoutAnchor(g); anchor != nil {
		order, ok := samplerWidgetOrders[anchor.Type]
		if !ok {
			order = defaultSamplerWidgetOrder
		}
		for name, value := range decodeSamplerWidgets(anchor, order) {
			if field, mapped := layoutWidgetFieldMap[name]; mapped {
				fields.setIfEmpty(field, value)
			}
		}
	}

	for _, node := range g.Nodes {
		switch node.Type {
		case "KSamplerSelect":
			if s, ok := node.DisplayWidget(0); ok {
				fields.setIfEmpty(FieldSampler, s)
			}
		case "BasicScheduler":
			if s, ok := node.DisplayWidget(0); ok {
				fields.setIfEmpty(FieldScheduler, s)
			}
			if s, ok := node.DisplayWidget(1); ok {
				fields.setIfEmpty(FieldSteps, s)
			}
		case "RandomNoise":
			if s, ok := node.DisplayWidget(0); ok {
				fields.setIfEmpty(FieldSeed, s)
			}
		}
	}

	for _, node := range g.Nodes {
		if !e.types.Loaders.Has(node.Type) {
			continue
		}
		if s, ok := node.StringWidget(0); ok && strings.TrimSpace(s) != "" {
			fields.setIfEmpty(FieldModel, strings.TrimSpace(s))
			break
		}
	}

	if loras := e.collectLayoutLoras(g); len(loras) > 0 {
		fields.setIfEmpty(FieldLoras, FormatLoras(loras))
	}
}

// collectLayoutLoras gathers LoRA records from single-slot loader widgets
// and from stacker nodes whose widgets_values serialize as an object of
// lora_<n> slot records.
func (e *Extractor) collectLayoutLoras(g *graphapi.Graph) []LoraEntry {
	var entries []LoraEntry
	for _, node := range g.Nodes {
		if len(node.WidgetValueMap) > 0 {
			entries = append(entries, stackerSlots(node.WidgetValueMap)...)
		}

		if !e.types.LoraLoaders.Has(node.Type) {
			continue
		}
		name, ok := node.StringWidget(0)
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		entry := LoraEntry{Name: strings.TrimSpace(name), ModelStrength: "1", ClipStrength: "1"}
		if s, ok := node.DisplayWidget(1); ok {
			entry.ModelStrength = s
		}
		if s, ok := node.DisplayWidget(2); ok {
			entry.ClipStrength = s
		}
		entries = append(entries, entry)
	}
	return entries
}
