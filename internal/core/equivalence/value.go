package equivalence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"

	"github.com/agenthands/equivalence/internal/core/extract"
	"github.com/agenthands/equivalence/internal/core/model"
)

// Candidate is one validator's contribution to a comparison. Kind says where
// Output came from; fetched pages are always compared as text.
type Candidate struct {
	ValidatorID string         `json:"validator_id"`
	Output      string         `json:"output"`
	Kind        model.CallKind `json:"kind,omitempty"`
}

// parsed is a candidate decoded into comparable form: a JSON value when the
// output is a JSON reply, otherwise whitespace-folded text. text is what gets
// committed: the normalized JSON, or the whole trimmed output.
type parsed struct {
	value  any
	isJSON bool
	text   string // committed form
}

func parse(raw string, kind model.CallKind) parsed {
	trimmed := strings.TrimSpace(raw)
	if kind == model.KindWebFetch {
		return parsed{value: fold(trimmed), text: trimmed}
	}

	if span, ok := extract.Reply(raw); ok {
		if v, err := decodeJSON(span); err == nil {
			return parsed{value: v, isJSON: true, text: span}
		}
	}

	fixed := extract.FixBooleans(trimmed)
	if fixed != "" && json.Valid([]byte(fixed)) {
		if v, err := decodeJSON(fixed); err == nil {
			return parsed{value: v, isJSON: true, text: fixed}
		}
	}
	return parsed{value: fold(trimmed), text: trimmed}
}

func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data")
	}
	return v, nil
}

// fold collapses runs of whitespace.
func fold(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// canonical renders v per RFC 8785 so structurally equal values compare
// byte-equal. Strings inside JSON are compared as-is.
func canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

func sameCanonical(a, b any) (bool, error) {
	ca, err := canonical(a)
	if err != nil {
		return false, err
	}
	cb, err := canonical(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}
