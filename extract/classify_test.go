package extract

import (
	"strings"
	"testing"
)

func TestIsPlausiblePromptText(t *testing.T) {
	if !IsPlausiblePromptText("a cat on a mat, masterpiece") {
		t.Error("ordinary prompt text should be plausible")
	}
	if !IsPlausiblePromptText("  padded text  ") {
		t.Error("whitespace padding should not matter")
	}
	if IsPlausiblePromptText(float64(42)) {
		t.Error("non-string should be rejected")
	}
	if IsPlausiblePromptText(`{"seed": 1}`) {
		t.Error("serialized object should be rejected")
	}
	if IsPlausiblePromptText(` ["a", "b"] `) {
		t.Error("serialized array should be rejected after trimming")
	}
}

func TestIsPlausiblePromptTextSegmentBound(t *testing.T) {
	// a huge comma-heavy blob reads as a serialized list, not prose
	blob := strings.Repeat(strings.Repeat("x", 20)+",", 150)
	if len(blob) <= maxProseLength {
		t.Fatalf("fixture too small: %d", len(blob))
	}
	if IsPlausiblePromptText(blob) {
		t.Error("oversized comma-separated blob should be rejected")
	}

	// over the length bound alone is still fine
	long := strings.Repeat("a detailed description ", 100)
	if !IsPlausiblePromptText(long) {
		t.Error("long prose with few commas should be accepted")
	}

	// plenty of commas but short is still fine
	if !IsPlausiblePromptText("a, b, c, d, e, f") {
		t.Error("short comma-separated prompt should be accepted")
	}
}

func TestClassifyPolarity(t *testing.T) {
	cases := []struct {
		text string
		want Polarity
	}{
		{"worst quality, low quality, blurry, watermark", PolarityNegative},
		{"masterpiece, best quality, highly detailed", PolarityPositive},
		{"a cat on a mat", PolarityAmbiguous},
		{"", PolarityAmbiguous},
		{"masterpiece but blurry", PolarityAmbiguous},
		{"MASTERPIECE, BEST QUALITY", PolarityPositive},
	}
	for _, c := range cases {
		if got := ClassifyPolarity(c.text); got != c.want {
			t.Errorf("ClassifyPolarity(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestPolarityString(t *testing.T) {
	if PolarityPositive.String() != "positive" ||
		PolarityNegative.String() != "negative" ||
		PolarityAmbiguous.String() != "ambiguous" {
		t.Error("polarity names changed")
	}
}
