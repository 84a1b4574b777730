package extract

import (
	"strings"
)

// maxProseLength and maxProseSegments bound what still counts as prose: a
// huge comma-heavy blob is a serialized list (sampler previews, batch seeds)
// rather than a prompt.
const (
	maxProseLength   = 2000
	maxProseSegments = 100
)

// IsPlausiblePromptText reports whether a candidate value could be prompt
// text typed by a user. It rejects non-strings, whole-string JSON objects
// and arrays, and oversized comma-separated blobs. Total function: any
// input shape yields a verdict, never an error.
func IsPlausiblePromptText(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
		return false
	}
	if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
		return false
	}
	if len(t) > maxProseLength && len(strings.Split(t, ",")) > maxProseSegments {
		return false
	}
	return true
}

// Polarity is the judged reading of a prompt blob.
type Polarity int

const (
	PolarityAmbiguous Polarity = iota
	PolarityPositive
	PolarityNegative
)

func (p Polarity) String() string {
	switch p {
	case PolarityPositive:
		return "positive"
	case PolarityNegative:
		return "negative"
	}
	return "ambiguous"
}

// Vocabulary that skews a blob toward one polarity. The negative side is
// dominated by the quality-exclusion boilerplate negative prompts are made
// of; the positive side by quality-boosting boilerplate.
var negativeCues = []string{
	"worst quality",
	"low quality",
	"lowres",
	"bad anatomy",
	"bad hands",
	"bad fingers",
	"extra limbs",
	"extra fingers",
	"missing fingers",
	"jpeg artifacts",
	"watermark",
	"signature",
	"blurry",
	"deformed",
	"disfigured",
	"mutated",
	"mutation",
	"ugly",
	"nsfw",
	"easynegative",
	"negative_hand",
	"out of frame",
	"cropped",
}

var positiveCues = []string{
	"masterpiece",
	"best quality",
	"highly detailed",
	"ultra detailed",
	"extremely detailed",
	"high resolution",
	"absurdres",
	"photorealistic",
	"cinematic",
	"intricate",
	"8k",
	"4k",
	"award winning",
	"beautiful",
}

// ClassifyPolarity decides whether a text blob reads as a positive or a
// negative prompt. Pure keyword scoring; ties and cue-free text come back
// ambiguous.
func ClassifyPolarity(text string) Polarity {
	lower := strings.ToLower(text)
	neg, pos := 0, 0
	for _, cue := range negativeCues {
		if strings.Contains(lower, cue) {
			neg++
		}
	}
	for _, cue := range positiveCues {
		if strings.Contains(lower, cue) {
			pos++
		}
	}
	switch {
	case neg > pos:
		return PolarityNegative
	case pos > neg:
		return PolarityPositive
	default:
		return PolarityAmbiguous
	}
}
