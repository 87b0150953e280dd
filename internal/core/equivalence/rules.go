package equivalence

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Rules is the machine-checkable part of a natural-language principle.
type Rules struct {
	// Tolerance is the allowed absolute difference between numbers.
	Tolerance float64
	// Fields restricts comparison to these top-level keys. Empty means all.
	Fields []string
	// Strict requires free text to match after whitespace folding.
	Strict bool
}

var (
	toleranceRe = regexp.MustCompile(`(?i)(?:±|\+/-|\+-|plus or minus|within)\s*(\d+(?:\.\d+)?)`)
	strictRe    = regexp.MustCompile(`(?i)\b(exactly|identical|the same)\b`)
)

// CompileRules derives Rules from a principle. sample is the leader's decoded
// output; its top-level keys are the candidate field names.
func CompileRules(principle string, sample any) Rules {
	var r Rules

	if m := toleranceRe.FindStringSubmatch(principle); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.Tolerance = v
		}
	}
	r.Strict = strictRe.MatchString(principle)

	if obj, ok := sample.(map[string]any); ok {
		lower := strings.ToLower(principle)
		for key := range obj {
			if mentions(lower, strings.ToLower(key)) {
				r.Fields = append(r.Fields, key)
			}
		}
		sort.Strings(r.Fields)
	}
	return r
}

// mentions reports whether principle names key, either verbatim, as
// result['key'], or with underscores read as spaces.
func mentions(principle, key string) bool {
	if key == "" {
		return false
	}
	if strings.Contains(principle, "['"+key+"']") || strings.Contains(principle, `["`+key+`"]`) {
		return true
	}
	for _, form := range []string{key, strings.ReplaceAll(key, "_", " ")} {
		if containsWord(principle, form) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(word)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
