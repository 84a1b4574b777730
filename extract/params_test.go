package extract

import (
	"testing"
)

func TestExtractPromptParamsKSampler(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"3": {"class_type": "KSampler", "inputs": {
			"seed": 42,
			"steps": 20,
			"cfg": 7.0,
			"sampler_name": "euler",
			"scheduler": "normal"
		}},
		"4": {"class_type": "CheckpointLoaderSimple", "inputs": {
			"ckpt_name": "sd_xl_base_1.0.safetensors"
		}}
	}`)

	fields := Fields{}
	e.extractPromptParams(g, fields)

	want := map[string]string{
		FieldSeed:      "42",
		FieldSteps:     "20",
		FieldCFGScale:  "7",
		FieldSampler:   "euler",
		FieldScheduler: "normal",
		FieldModel:     "sd_xl_base_1.0.safetensors",
	}
	for k, v := range want {
		if got := fields.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestExtractPromptParams64BitSeed(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"3": {"class_type": "KSampler", "inputs": {"seed": 1099511627776556677}}
	}`)

	fields := Fields{}
	e.extractPromptParams(g, fields)
	if got := fields.Get(FieldSeed); got != "1099511627776556677" {
		t.Errorf("seed lost precision: %q", got)
	}
}

func TestExtractPromptParamsNoiseSeedFallback(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"3": {"class_type": "KSamplerAdvanced", "inputs": {
			"noise_seed": 123456,
			"steps": 30,
			"cfg": 8.5
		}}
	}`)

	fields := Fields{}
	e.extractPromptParams(g, fields)
	if got := fields.Get(FieldSeed); got != "123456" {
		t.Errorf("seed = %q", got)
	}
	if got := fields.Get(FieldCFGScale); got != "8.5" {
		t.Errorf("cfg_scale = %q", got)
	}
}

func TestExtractPromptParamsHelperNodes(t *testing.T) {
	// SamplerCustomAdvanced pipelines spread settings over helper nodes
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "SamplerCustomAdvanced", "inputs": {"guider": ["5", 0]}},
		"2": {"class_type": "BasicScheduler", "inputs": {"steps": 28, "scheduler": "sgm_uniform"}},
		"3": {"class_type": "KSamplerSelect", "inputs": {"sampler_name": "dpmpp_2m"}},
		"4": {"class_type": "RandomNoise", "inputs": {"noise_seed": 99}},
		"5": {"class_type": "CFGGuider", "inputs": {"cfg": 4.5}}
	}`)

	fields := Fields{}
	e.extractPromptParams(g, fields)

	want := map[string]string{
		FieldSteps:     "28",
		FieldScheduler: "sgm_uniform",
		FieldSampler:   "dpmpp_2m",
		FieldSeed:      "99",
		FieldCFGScale:  "4.5",
	}
	for k, v := range want {
		if got := fields.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestExtractPromptParamsFirstSamplerWins(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"2": {"class_type": "KSampler", "inputs": {"seed": 1, "steps": 10}},
		"9": {"class_type": "KSampler", "inputs": {"seed": 2, "steps": 99}}
	}`)

	fields := Fields{}
	e.extractPromptParams(g, fields)
	if got := fields.Get(FieldSeed); got != "1" {
		t.Errorf("first sampler in id order should win, seed = %q", got)
	}
}

func TestExtractPromptParamsUNETLoader(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "UNETLoader", "inputs": {"unet_name": "flux1-dev.safetensors"}}
	}`)

	fields := Fields{}
	e.extractPromptParams(g, fields)
	if got := fields.Get(FieldModel); got != "flux1-dev.safetensors" {
		t.Errorf("model = %q", got)
	}
}

func TestCollectPromptLorasLoader(t *testing.T) {
	e := New()
	g := mustPrompt(t, `{
		"1": {"class_type": "LoraLoader", "inputs": {
			"lora_name": "detail.safetensors",
			"strength_model": 0.8,
			"strength_clip": 0.6
		}},
		"2": {"class_type": "LoraLoaderModelOnly", "inputs": {
			"lora_name": "style.safetensors"
		}}
	}`)

	entries := e.collectPromptLoras(g, g.NodeIDs())
	if len(entries) != 2 {
		t.Fatalf("entries = %v", entries)
	}
	if entries[0].Name != "detail.safetensors" || entries[0].ModelStrength != "0.8" || entries[0].ClipStrength != "0.6" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	// missing strengths default to 1
	if entries[1].ModelStrength != "1" || entries[1].ClipStrength != "1" {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestStackerSlots(t *testing.T) {
	inputs := map[string]any{
		"model": []any{"4", float64(0)},
		"lora_2": map[string]any{
			"on": true, "lora": "second.safetensors", "strength": 0.5,
		},
		"lora_1": map[string]any{
			"on": true, "lora": "first.safetensors", "strength": 1.0, "strengthTwo": 0.7,
		},
		"lora_3": map[string]any{
			"on": false, "lora": "disabled.safetensors", "strength": 1.0,
		},
		"lora_4": map[string]any{
			"strength": 1.0,
		},
	}

	entries := stackerSlots(inputs)
	if len(entries) != 2 {
		t.Fatalf("entries = %v", entries)
	}
	if entries[0].Name != "first.safetensors" || entries[0].ModelStrength != "1" || entries[0].ClipStrength != "0.7" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	// single strength applies to both
	if entries[1].Name != "second.safetensors" || entries[1].ModelStrength != "0.5" || entries[1].ClipStrength != "0.5" {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestFormatLoras(t *testing.T) {
	got := FormatLoras([]LoraEntry{
		{Name: "a.safetensors", ModelStrength: "1", ClipStrength: "1"},
		{Name: "b.safetensors", ModelStrength: "0.5", ClipStrength: "0.7"},
	})
	want := "a.safetensors (Model: 1, Clip: 1), b.safetensors (Model: 0.5, Clip: 0.7)"
	if got != want {
		t.Errorf("FormatLoras = %q", got)
	}
	if FormatLoras(nil) != "" {
		t.Error("empty list should format empty")
	}
}
