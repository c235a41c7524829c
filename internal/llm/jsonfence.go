package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

var (
	openingFence = regexp.MustCompile("^```[A-Za-z0-9_-]*")
	fencedBlock  = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*\\s*(.*?)\\s*```")
)

// ExtractJSON pulls the JSON payload out of a model reply. Replies are often
// wrapped in one or more Markdown code fences or surrounded by prose.
func ExtractJSON(text string) string {
	s := stripFences(text)
	if json.Valid([]byte(s)) {
		return s
	}

	// Prose around a fenced block: prefer the first block that parses.
	if blocks := fencedBlock.FindAllStringSubmatch(text, -1); len(blocks) > 0 {
		for _, b := range blocks {
			candidate := stripFences(b[1])
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}

	if candidate, ok := jsonBounds(s); ok {
		return candidate
	}
	return s
}

// DecodeJSON extracts JSON from a model reply and unmarshals it into v.
func DecodeJSON(text string, v interface{}) error {
	payload := ExtractJSON(text)
	if payload == "" {
		return domain.ResponseParseError("gateway returned an empty response", nil)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return domain.ResponseParseError("gateway response is not valid JSON", err)
	}
	return nil
}

// stripFences removes any number of leading and trailing fence markers.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	for {
		before := s
		if strings.HasPrefix(s, "```") {
			s = strings.TrimSpace(openingFence.ReplaceAllString(s, ""))
		}
		if strings.HasSuffix(s, "```") {
			s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
		}
		if s == before {
			return s
		}
	}
}

// jsonBounds finds the outermost object or array in s.
func jsonBounds(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return "", false
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end <= start {
		return "", false
	}
	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}
