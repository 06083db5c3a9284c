package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

// CleanJSON returns the first JSON object or array embedded in a model
// response. Markdown code fences and surrounding prose are stripped; if
// no JSON snippet is found the trimmed input is returned unchanged so
// the schema validator can reject it with a useful message.
func CleanJSON(text string) string {
	if text == "" {
		return ""
	}
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	objIdx := strings.Index(text, "{")
	arrIdx := strings.Index(text, "[")
	start := objIdx
	if objIdx == -1 || (arrIdx != -1 && arrIdx < objIdx) {
		start = arrIdx
	}
	if start == -1 {
		return strings.TrimSpace(text)
	}

	sub := text[start:]
	dec := json.NewDecoder(strings.NewReader(sub))
	var v any
	if err := dec.Decode(&v); err == nil {
		return sub[:dec.InputOffset()]
	}
	return strings.TrimSpace(sub)
}
