package equivalence

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// similarity is the Jaccard overlap of lower-cased word tokens.
func similarity(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}

	inter := 0
	for t := range ta {
		if tb[t] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[f] = true
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// polarity holds words that flip the meaning of otherwise similar text.
var polarity = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true, "not": true, "never": true,
	"none": true, "null": true, "on": true, "off": true, "t": true, "without": true,
	"delayed": true, "late": true, "early": true, "time": true, "schedule": true,
	"cancelled": true, "canceled": true, "diverted": true, "landed": true,
	"accepted": true, "rejected": true, "approved": true, "denied": true,
	"merged": true, "closed": true, "open": true, "passed": true, "failed": true,
	"valid": true, "invalid": true, "success": true, "error": true,
}

// contradiction reports a difference that token overlap must not paper over:
// a polarity word present in only one text, or a number in one text with no
// counterpart within tolerance in the other.
func contradiction(a, b string, tolerance float64) string {
	ta, tb := tokens(a), tokens(b)
	onlyA, onlyB := difference(ta, tb), difference(tb, ta)

	for _, t := range append(append([]string(nil), onlyA...), onlyB...) {
		if polarity[t] {
			return fmt.Sprintf("%q appears in only one text", t)
		}
	}
	if n, ok := unmatchedNumber(onlyA, onlyB, tolerance); ok {
		return fmt.Sprintf("number %s has no counterpart within %v", n, tolerance)
	}
	if n, ok := unmatchedNumber(onlyB, onlyA, tolerance); ok {
		return fmt.Sprintf("number %s has no counterpart within %v", n, tolerance)
	}
	return ""
}

func difference(a, b map[string]bool) []string {
	var out []string
	for t := range a {
		if !b[t] {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func unmatchedNumber(from, in []string, tolerance float64) (string, bool) {
	for _, t := range from {
		x, err := strconv.ParseFloat(t, 64)
		if err != nil {
			continue
		}
		matched := false
		for _, u := range in {
			if y, err := strconv.ParseFloat(u, 64); err == nil && math.Abs(x-y) <= tolerance+1e-9 {
				matched = true
				break
			}
		}
		if !matched {
			return t, true
		}
	}
	return "", false
}
