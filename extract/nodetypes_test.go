package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTypeSets(t *testing.T) {
	ts := DefaultTypeSets()
	if !ts.Samplers.Has("KSampler") {
		t.Error("KSampler should be a sampler")
	}
	if !ts.TextEncoders.Has("CLIPTextEncode") {
		t.Error("CLIPTextEncode should be an encoder")
	}
	if ts.Samplers.Has("CLIPTextEncode") {
		t.Error("encoder should not be a sampler")
	}
}

func TestMergeTypeSets(t *testing.T) {
	ts, err := MergeTypeSets([]byte(`
samplers:
  - MyCustomSampler
text_encoders:
  - MyCustomEncoder
`))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !ts.Samplers.Has("MyCustomSampler") {
		t.Error("overlay sampler missing")
	}
	if !ts.TextEncoders.Has("MyCustomEncoder") {
		t.Error("overlay encoder missing")
	}
	// defaults survive the merge
	if !ts.Samplers.Has("KSampler") {
		t.Error("default sampler lost")
	}
}

func TestMergeTypeSetsRejectsUnknownKeys(t *testing.T) {
	if _, err := MergeTypeSets([]byte("samplerz:\n  - Oops\n")); err == nil {
		t.Error("typoed category should be rejected")
	}
}

func TestLoadTypeSets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	if err := os.WriteFile(path, []byte("loaders:\n  - MyLoader\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ts, err := LoadTypeSets(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !ts.Loaders.Has("MyLoader") {
		t.Error("overlay loader missing")
	}

	if _, err := LoadTypeSets(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestHasTextHint(t *testing.T) {
	for _, name := range []string{"ttN text", "String Function", "PromptComposer"} {
		if !hasTextHint(name) {
			t.Errorf("%q should hint text", name)
		}
	}
	if hasTextHint("KSampler") {
		t.Error("KSampler should not hint text")
	}
}

func TestOverlayChangesDispatch(t *testing.T) {
	ts, err := MergeTypeSets([]byte("samplers:\n  - MySampler\n"))
	if err != nil {
		t.Fatal(err)
	}
	e := New(WithTypeSets(ts))
	g := mustPrompt(t, `{
		"1": {"class_type": "CLIPTextEncode", "inputs": {"text": "overlay subject"}},
		"2": {"class_type": "MySampler", "inputs": {"positive": ["1", 0], "seed": 5}}
	}`)

	fields := e.FromPrompt(g)
	if got := fields.Get(FieldPositive); got != "overlay subject" {
		t.Errorf("positive = %q", got)
	}
	if got := fields.Get(FieldSeed); got != "5" {
		t.Errorf("seed = %q", got)
	}
}
