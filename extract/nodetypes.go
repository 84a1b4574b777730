package extract

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TypeSet is a set of node class-type names. Membership, not logic, decides
// how a node is handled: supporting a new community node pack means adding
// its type strings to the relevant set.
type TypeSet map[string]struct{}

func NewTypeSet(names ...string) TypeSet {
	s := make(TypeSet, len(names))
	s.Add(names...)
	return s
}

func (s TypeSet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

func (s TypeSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// TypeSets groups every node-type category the engine dispatches on.
type TypeSets struct {
	// Samplers are the anchor nodes that backward tracing starts from.
	Samplers TypeSet `yaml:"samplers"`
	// Guiders sit between custom samplers and their conditioning inputs.
	Guiders TypeSet `yaml:"guiders"`
	// TextEncoders turn prompt text into conditioning.
	TextEncoders TypeSet `yaml:"text_encoders"`
	// CondCombiners merge two or more conditioning streams; every branch
	// is a real contributing prompt.
	CondCombiners TypeSet `yaml:"cond_combiners"`
	// TextConcat nodes join multiple text inputs with a separator.
	TextConcat TypeSet `yaml:"text_concat"`
	// DisplayText nodes show an already-resolved final value and are never
	// re-traced.
	DisplayText TypeSet `yaml:"display_text"`
	// TextLiterals hold their text directly in a text/value input.
	TextLiterals TypeSet `yaml:"text_literals"`
	// WildcardProcessors resolve wildcard templates; the populated output
	// is authoritative over the raw template.
	WildcardProcessors TypeSet `yaml:"wildcard_processors"`
	// Loaders supply the checkpoint/model filename.
	Loaders TypeSet `yaml:"loaders"`
	// LoraLoaders are single-slot loaders with lora_name/strength inputs.
	LoraLoaders TypeSet `yaml:"lora_loaders"`
	// LoraStackers expose multiple lora_<n> slots holding {on, lora,
	// strength, strengthTwo} records.
	LoraStackers TypeSet `yaml:"lora_stackers"`
	// GenericText nodes get the generic ordered-field resolution even when
	// their type name carries no text-like substring.
	GenericText TypeSet `yaml:"generic_text"`
}

// DefaultTypeSets returns the built-in node-type vocabulary. It covers stock
// ComfyUI nodes plus the community packs commonly seen in gallery metadata
// (Impact, Efficiency, rgthree, pysssss, Comfyroll, WAS, Derfuu).
func DefaultTypeSets() *TypeSets {
	return &TypeSets{
		Samplers: NewTypeSet(
			"KSampler",
			"KSamplerAdvanced",
			"KSampler (Efficient)",
			"KSampler Adv. (Efficient)",
			"KSampler SDXL (Eff.)",
			"SamplerCustom",
			"SamplerCustomAdvanced",
			"FaceDetailer",
			"Tiled KSampler",
			"UltimateSDUpscale",
		),
		Guiders: NewTypeSet(
			"BasicGuider",
			"CFGGuider",
			"DualCFGGuider",
			"PerpNegGuider",
		),
		TextEncoders: NewTypeSet(
			"CLIPTextEncode",
			"CLIPTextEncodeSDXL",
			"CLIPTextEncodeSDXLRefiner",
			"CLIPTextEncodeFlux",
			"BNK_CLIPTextEncodeAdvanced",
			"smZ CLIPTextEncode",
			"CLIP Text Encode (Positive Prompt)",
			"CLIP Text Encode (Negative Prompt)",
		),
		CondCombiners: NewTypeSet(
			"ConditioningCombine",
			"ConditioningConcat",
			"ConditioningAverage",
			"ImpactCombineConditionings",
			"CR Conditioning Mixer",
			"ConditioningZeroOut",
		),
		TextConcat: NewTypeSet(
			"Text Concatenate",
			"StringConcatenate",
			"CR Text Concatenate",
			"Text Concatenate (JPS)",
			"JoinStrings",
			"Text String Truncate",
			"Concat Text_O",
		),
		DisplayText: NewTypeSet(
			"ShowText|pysssss",
			"DisplayText",
			"Display Text (mtb)",
			"PreviewTextNode",
			"Display Any (rgthree)",
			"Text to Console",
		),
		TextLiterals: NewTypeSet(
			"Text Literal",
			"String Literal",
			"CR Text",
			"Simple String",
			"String",
			"Text Multiline",
			"Text box",
			"ttN text",
			"Text _O",
			"DF_Text_Box",
		),
		WildcardProcessors: NewTypeSet(
			"ImpactWildcardProcessor",
			"ImpactWildcardEncode",
		),
		Loaders: NewTypeSet(
			"CheckpointLoaderSimple",
			"CheckpointLoader",
			"unCLIPCheckpointLoader",
			"Checkpoint Loader (Simple)",
			"Efficient Loader",
			"Eff. Loader SDXL",
			"UNETLoader",
			"UnetLoaderGGUF",
			"ImageOnlyCheckpointLoader",
		),
		LoraLoaders: NewTypeSet(
			"LoraLoader",
			"LoraLoaderModelOnly",
			"LoRA Loader",
			"CR Load LoRA",
		),
		LoraStackers: NewTypeSet(
			"Power Lora Loader (rgthree)",
		),
		GenericText: NewTypeSet(
			"PrimitiveNode",
			"PrimitiveString",
			"PrimitiveStringMultiline",
		),
	}
}

// typeSetsFile mirrors TypeSets with plain string slices for YAML overlays.
type typeSetsFile struct {
	Samplers           []string `yaml:"samplers"`
	Guiders            []string `yaml:"guiders"`
	TextEncoders       []string `yaml:"text_encoders"`
	CondCombiners      []string `yaml:"cond_combiners"`
	TextConcat         []string `yaml:"text_concat"`
	DisplayText        []string `yaml:"display_text"`
	TextLiterals       []string `yaml:"text_literals"`
	WildcardProcessors []string `yaml:"wildcard_processors"`
	Loaders            []string `yaml:"loaders"`
	LoraLoaders        []string `yaml:"lora_loaders"`
	LoraStackers       []string `yaml:"lora_stackers"`
	GenericText        []string `yaml:"generic_text"`
}

// LoadTypeSets reads a YAML overlay and merges its names on top of the
// defaults. Unknown keys are rejected so typos in category names surface
// instead of silently doing nothing.
func LoadTypeSets(path string) (*TypeSets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return MergeTypeSets(data)
}

// MergeTypeSets merges a YAML overlay document on top of DefaultTypeSets.
func MergeTypeSets(data []byte) (*TypeSets, error) {
	var file typeSetsFile
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("node type overlay: %w", err)
	}

	ts := DefaultTypeSets()
	ts.Samplers.Add(file.Samplers...)
	ts.Guiders.Add(file.Guiders...)
	ts.TextEncoders.Add(file.TextEncoders...)
	ts.CondCombiners.Add(file.CondCombiners...)
	ts.TextConcat.Add(file.TextConcat...)
	ts.DisplayText.Add(file.DisplayText...)
	ts.TextLiterals.Add(file.TextLiterals...)
	ts.WildcardProcessors.Add(file.WildcardProcessors...)
	ts.Loaders.Add(file.Loaders...)
	ts.LoraLoaders.Add(file.LoraLoaders...)
	ts.LoraStackers.Add(file.LoraStackers...)
	ts.GenericText.Add(file.GenericText...)
	return ts, nil
}

// hasTextHint reports whether a type name looks text-bearing by substring,
// the generic escape hatch for node packs we have no explicit entry for.
func hasTextHint(classType string) bool {
	lower := strings.ToLower(classType)
	for _, hint := range []string{"text", "string", "prompt"} {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
