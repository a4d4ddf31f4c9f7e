package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parsed is the outcome of decoding untrusted model text. Exactly one of
// Value (when Err is nil) or Err is meaningful; Raw is always the input.
type Parsed[T any] struct {
	Value T
	Raw   string
	Err   error
}

func (p Parsed[T]) OK() bool { return p.Err == nil }

// Parse decodes a single JSON value from raw after removing one surrounding
// code fence. Trailing content after the value is a parse failure.
func Parse[T any](raw string) Parsed[T] {
	result := Parsed[T]{Raw: raw}
	body := StripFences(raw)
	if body == "" {
		result.Err = errors.New("empty completion")
		return result
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := decoder.Decode(&result.Value); err != nil {
		result.Err = fmt.Errorf("decode json: %w", err)
		return result
	}
	var extra json.RawMessage
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		result.Err = errors.New("unexpected content after json value")
	}
	return result
}

var fenceLanguages = []string{"json", "sql", "tsql"}

// StripFences trims value and removes a surrounding markdown code fence
// (``` or ```json / ```sql / ```tsql) when present.
func StripFences(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	lower := strings.ToLower(trimmed)
	for _, lang := range fenceLanguages {
		if strings.HasPrefix(lower, lang) {
			rest := trimmed[len(lang):]
			if rest == "" || strings.ContainsAny(rest[:1], " \t\r\n{[") {
				trimmed = rest
				break
			}
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
