package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/comfygallery/comfymeta/graphapi"
)

// LoraEntry is one LoRA applied during generation.
type LoraEntry struct {
	Name          string
	ModelStrength string
	ClipStrength  string
}

// FormatLoras renders entries the way the gallery displays them.
func FormatLoras(entries []LoraEntry) string {
	parts := make([]string, 0, len(entries))
	for _, l := range entries {
		parts = append(parts, l.Name+" (Model: "+l.ModelStrength+", Clip: "+l.ClipStrength+")")
	}
	return strings.Join(parts, ", ")
}

var loraSlotPattern = regexp.MustCompile(`^lora_(\d+)$`)

// samplerFieldMap maps anchor-node input names to result fields.
var samplerFieldMap = map[string]string{
	"steps":        FieldSteps,
	"cfg":          FieldCFGScale,
	"sampler_name": FieldSampler,
	"scheduler":    FieldScheduler,
}

// extractPromptParams fills model, sampler, scheduler, steps, cfg_scale,
// seed and loras from a single deterministic pass over the prompt graph.
// These fields live directly on the anchor or on loader nodes — no tracing,
// no fallback layer.
func (e *Extractor) extractPromptParams(g graphapi.PromptGraph, fields Fields) {
	ids := g.NodeIDs()

	// first sampler-type node supplies the sampling settings
	for _, id := range ids {
		node := g[id]
		if node == nil || !e.types.Samplers.Has(node.ClassType) {
			continue
		}
		for input, field := range samplerFieldMap {
			if s, ok := graphapi.DisplayString(node.Inputs[input]); ok {
				fields.setIfEmpty(field, s)
			}
		}
		if s, ok := graphapi.DisplayString(node.Inputs["seed"]); ok {
			fields.setIfEmpty(FieldSeed, s)
		} else if s, ok := graphapi.DisplayString(node.Inputs["noise_seed"]); ok {
			fields.setIfEmpty(FieldSeed, s)
		}
		break
	}

	// custom-sampler pipelines split the settings over helper nodes
	e.fillFromHelpers(g, ids, fields)

	// first loader-type node supplies the model filename
	for _, id := range ids {
		node := g[id]
		if node == nil || !e.types.Loaders.Has(node.ClassType) {
			continue
		}
		for _, f := range []string{"ckpt_name", "unet_name", "model_name"} {
			if s, ok := graphapi.LiteralString(node.Inputs[f]); ok && s != "" {
				fields.setIfEmpty(FieldModel, strings.TrimSpace(s))
				break
			}
		}
		if _, ok := fields[FieldModel]; ok {
			break
		}
	}

	if loras := e.collectPromptLoras(g, ids); len(loras) > 0 {
		fields.setIfEmpty(FieldLoras, FormatLoras(loras))
	}
}

// fillFromHelpers covers SamplerCustom-style graphs where steps, scheduler,
// sampler and seed live on dedicated helper nodes instead of the anchor.
func (e *Extractor) fillFromHelpers(g graphapi.PromptGraph, ids []string, fields Fields) {
	helperFields := map[string][][2]string{
		"BasicScheduler": {{"steps", FieldSteps}, {"scheduler", FieldScheduler}},
		"KSamplerSelect": {{"sampler_name", FieldSampler}},
		"RandomNoise":    {{"noise_seed", FieldSeed}},
		"CFGGuider":      {{"cfg", FieldCFGScale}},
		"DualCFGGuider":  {{"cfg", FieldCFGScale}},
	}
	for _, id := range ids {
		node := g[id]
		if node == nil {
			continue
		}
		pairs, ok := helperFields[node.ClassType]
		if !ok {
			continue
		}
		for _, p := range pairs {
			if s, ok := graphapi.DisplayString(node.Inputs[p[0]]); ok {
				fields.setIfEmpty(p[1], s)
			}
		}
	}
}

// collectPromptLoras gathers LoRA records in scan order. Two conventions
// exist: multi-slot stackers with lora_<n> inputs holding {on, lora,
// strength, strengthTwo} objects, and single-slot loaders with lora_name /
// strength_model / strength_clip inputs.
func (e *Extractor) collectPromptLoras(g graphapi.PromptGraph, ids []string) []LoraEntry {
	var entries []LoraEntry
	for _, id := range ids {
		node := g[id]
		if node == nil {
			continue
		}

		entries = append(entries, stackerSlots(node.Inputs)...)

		if e.types.LoraLoaders.Has(node.ClassType) {
			name, ok := graphapi.LiteralString(node.Inputs["lora_name"])
			if !ok || name == "" {
				continue
			}
			entry := LoraEntry{Name: strings.TrimSpace(name), ModelStrength: "1", ClipStrength: "1"}
			if s, ok := graphapi.DisplayString(node.Inputs["strength_model"]); ok {
				entry.ModelStrength = s
			}
			if s, ok := graphapi.DisplayString(node.Inputs["strength_clip"]); ok {
				entry.ClipStrength = s
			}
			entries = append(entries, entry)
		}
	}
	return entries
}

// stackerSlots extracts lora_<n> slot records from any node carrying them,
// sorted by slot number. Slots switched off are skipped.
func stackerSlots(inputs map[string]any) []LoraEntry {
	type slot struct {
		ord int
		m   map[string]any
	}
	var slots []slot
	for name, v := range inputs {
		m := loraSlotPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if _, hasLora := obj["lora"]; !hasLora {
			continue
		}
		ord, _ := strconv.Atoi(m[1])
		slots = append(slots, slot{ord: ord, m: obj})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].ord < slots[j].ord })

	var entries []LoraEntry
	for _, s := range slots {
		if on, ok := s.m["on"].(bool); ok && !on {
			continue
		}
		name, _ := s.m["lora"].(string)
		if name == "" {
			continue
		}
		entry := LoraEntry{Name: name, ModelStrength: "1", ClipStrength: "1"}
		if ms, ok := graphapi.DisplayString(s.m["strength"]); ok {
			entry.ModelStrength = ms
			entry.ClipStrength = ms
		}
		if cs, ok := graphapi.DisplayString(s.m["strengthTwo"]); ok {
			entry.ClipStrength = cs
		}
		entries = append(entries, entry)
	}
	return entries
}
