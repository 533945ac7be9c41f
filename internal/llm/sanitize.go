package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var markup = strings.NewReplacer(
	"[PYTHON]", "",
	"[/PYTHON]", "",
	"```json", "",
	"```JSON", "",
	"`", "",
)

// Sanitize strips the markup models wrap around JSON replies: [PYTHON]
// tags, code fences, backticks and a stray leading "json" token. It then
// returns the outermost JSON object or array in what remains. A reply
// holding no valid JSON returns a *GenerationError.
func Sanitize(text string) (string, error) {
	s := strings.TrimSpace(markup.Replace(text))
	if rest, ok := cutPrefixFold(s, "json"); ok {
		s = strings.TrimSpace(rest)
	}

	if json.Valid([]byte(s)) && (strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")) {
		return s, nil
	}

	if v, ok := outermost(s); ok {
		return v, nil
	}
	return "", &GenerationError{Stage: StageSanitize, Err: errors.New("reply contains no JSON document")}
}

// outermost tries every object or array start, earliest first, against the
// last matching close so that surrounding prose is dropped.
func outermost(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		var closer byte
		switch s[start] {
		case '{':
			closer = '}'
		case '[':
			closer = ']'
		default:
			continue
		}
		for end := strings.LastIndexByte(s, closer); end > start; end = strings.LastIndexByte(s[:end], closer) {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
	}
	return "", false
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
