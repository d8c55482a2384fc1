package llm

import (
	"errors"
	"strings"
)

// ErrNoJSON reports a model reply with no JSON object to scrape.
var ErrNoJSON = errors.New("no structured data found")

// ExtractJSON pulls the greedy {...} span out of a free-text model reply,
// from the first '{' to the last '}'. Anything before or after is dropped;
// callers treat any failure here as "no plan".
func ExtractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}
