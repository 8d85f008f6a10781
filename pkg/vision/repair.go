package vision

import (
	"encoding/json"
	"regexp"

	"github.com/rotisserie/eris"
)

// Models wrap JSON in prose or code fences often enough that a repair pass
// pays for itself. outerObject grabs the outermost brace-delimited span.
var outerObject = regexp.MustCompile(`(?s)\{.*\}`)

// RepairJSON returns a parseable JSON object extracted from model output.
// If the text is already valid JSON it is returned as is.
func RepairJSON(text string) (string, error) {
	if json.Valid([]byte(text)) {
		return text, nil
	}
	candidate := outerObject.FindString(text)
	if candidate == "" {
		return "", eris.New("vision: no JSON object in model output")
	}
	if !json.Valid([]byte(candidate)) {
		return "", eris.New("vision: extracted JSON candidate is malformed")
	}
	return candidate, nil
}

// DecodeJSON unmarshals model output into v, repairing wrapped JSON first.
func DecodeJSON(text string, v any) error {
	repaired, err := RepairJSON(text)
	if err != nil {
		return err
	}
	return eris.Wrap(json.Unmarshal([]byte(repaired), v), "vision: decode model output")
}
