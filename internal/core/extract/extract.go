// Package extract pulls a single JSON object out of free-form model output.
//
// Models are told to answer with bare JSON but routinely wrap it in prose or
// markdown fences, or answer with Python-style True/False. The extractor takes
// the span from the first '{' to the last '}', rewrites those literals, and
// decodes it. Braces inside surrounding prose are not disambiguated.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrMalformed = errors.New("malformed output")

// MissingKeysError lists required keys absent from an otherwise valid object.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("missing required keys: %s", strings.Join(e.Keys, ", "))
}

func (e *MissingKeysError) Unwrap() error { return ErrMalformed }

// Span returns the text between the first '{' and the last '}' inclusive.
func Span(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// FixBooleans rewrites Python boolean literals (True, False, None) as JSON
// literals. Text inside string literals is left alone.
func FixBooleans(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if word, repl, ok := literalAt(s, i); ok {
			b.WriteString(repl)
			i += len(word) - 1
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

var pythonLiterals = [...][2]string{{"True", "true"}, {"False", "false"}, {"None", "null"}}

func literalAt(s string, i int) (string, string, bool) {
	if i > 0 && isIdent(s[i-1]) {
		return "", "", false
	}
	for _, l := range pythonLiterals {
		word := l[0]
		if !strings.HasPrefix(s[i:], word) {
			continue
		}
		if end := i + len(word); end < len(s) && isIdent(s[end]) {
			continue
		}
		return word, l[1], true
	}
	return "", "", false
}

func isIdent(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// Normalize returns the boolean-normalized JSON span of text when one exists
// and parses.
func Normalize(text string) (string, bool) {
	span, ok := Span(text)
	if !ok {
		return "", false
	}
	span = FixBooleans(span)
	if !json.Valid([]byte(span)) {
		return "", false
	}
	return span, true
}

// maxReplyProse is how many words of prose a reply may wrap around its JSON
// object and still be read as that object.
const maxReplyProse = 20

// Reply is Normalize for model replies: the JSON span counts only when the
// text around it is empty, a markdown fence, or a short preamble. Longer
// surrounding text is a document that merely contains JSON.
func Reply(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	rest := text[:start] + " " + text[end+1:]
	rest = strings.ReplaceAll(rest, "```json", " ")
	rest = strings.ReplaceAll(rest, "```", " ")
	if len(strings.Fields(rest)) > maxReplyProse {
		return "", false
	}
	return Normalize(text)
}

// Object extracts a JSON object and checks that every required key is
// present. Numbers decode as json.Number.
func Object(text string, required ...string) (map[string]any, error) {
	span, ok := Span(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found in response (missing '{' or '}')", ErrMalformed)
	}
	span = FixBooleans(span)
	if !json.Valid([]byte(span)) {
		return nil, fmt.Errorf("%w: span is not a single JSON value\nData: %s", ErrMalformed, span)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(span)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal JSON: %v\nData: %s", ErrMalformed, err, span)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON object\nData: %s", ErrMalformed, span)
	}

	if err := checkKeys(obj, required); err != nil {
		return nil, err
	}
	return obj, nil
}

// Into extracts a JSON object into T. T is one of the per-prompt result
// variants; required lists the keys the prompt schema demands.
func Into[T any](text string, required ...string) (T, error) {
	var zero T

	obj, err := Object(text, required...)
	if err != nil {
		return zero, err
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return zero, fmt.Errorf("%w: failed to unmarshal JSON: %v\nData: %s", ErrMalformed, err, raw)
	}
	return result, nil
}

func checkKeys(obj map[string]any, required []string) error {
	var missing []string
	for _, k := range required {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingKeysError{Keys: missing}
}
