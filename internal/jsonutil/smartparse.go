// Package jsonutil parses JSON out of LLM completions, which routinely come
// back wrapped in markdown fences, missing quotes, or with trailing commas.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// stripFences removes a single leading/trailing markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// SmartParse tries, in order: plain JSON, json-repair, then Hjson, against
// the supplied input. It unmarshals into target on the first strategy that
// succeeds and returns nil; it does not report which strategy worked.
func SmartParse(input string, target interface{}) error {
	input = stripFences(input)

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	if repaired, err := jsonrepair.RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return nil
		}
	}

	var generic interface{}
	if err := hjson.Unmarshal([]byte(input), &generic); err == nil {
		reJSON, err := json.Marshal(generic)
		if err == nil {
			if err := json.Unmarshal(reJSON, target); err == nil {
				return nil
			}
		}
	}

	return fmt.Errorf("smart parse: all strategies failed for input of length %d", len(input))
}

// MustRepair returns best-effort repaired JSON text, or "{}" on failure. Used
// where a caller needs a guaranteed-parseable placeholder rather than an error.
func MustRepair(input string) string {
	repaired, err := jsonrepair.RepairJSON(stripFences(input))
	if err != nil {
		return "{}"
	}
	return repaired
}
