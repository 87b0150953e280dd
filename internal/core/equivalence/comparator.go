package equivalence

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decision is a certified agreement. Output is the leader's normalized
// candidate: the first validator's value is committed whenever the others
// agree with it, so the same inputs always commit the same value.
type Decision struct {
	Output string
	Leader string
	Rules  Rules
	Judged int // text comparisons settled by the judge
}

// DefaultSimilarityThreshold is used when no comparator is configured.
const DefaultSimilarityThreshold = 0.6

type Comparator struct {
	// SimilarityThreshold is the minimum token overlap for two free-text
	// values to be consistent without consulting the judge. Zero or less
	// means free text must match after folding or be accepted by the judge.
	SimilarityThreshold float64
	// Judge settles free-text disagreements in comparative mode. Nil means
	// such disagreements are divergence.
	Judge Judge
}

func NewComparator(threshold float64, judge Judge) *Comparator {
	return &Comparator{SimilarityThreshold: threshold, Judge: judge}
}

// Compare certifies agreement among candidates or explains why there is
// none. The leader is candidates[0].
func (c *Comparator) Compare(ctx context.Context, principle string, comparative bool, candidates []Candidate) (Decision, error) {
	if len(candidates) == 0 {
		return Decision{}, ErrNoResults
	}

	values := make([]parsed, len(candidates))
	for i, cand := range candidates {
		values[i] = parse(cand.Output, cand.Kind)
	}
	leader := values[0]

	if !comparative {
		return c.exact(principle, candidates, values)
	}

	rules := CompileRules(principle, leader.value)
	decision := Decision{Output: leader.text, Leader: candidates[0].ValidatorID, Rules: rules}

	var divergent []Candidate
	var reasons []string
	var pending []textPair
	for i := 1; i < len(values); i++ {
		m := matcher{rules: rules, threshold: c.SimilarityThreshold}
		m.compareRoot(leader.value, values[i].value)
		if m.mismatch != "" {
			divergent = append(divergent, candidates[i])
			reasons = append(reasons, candidates[i].ValidatorID+": "+m.mismatch)
			continue
		}
		for _, p := range m.pending {
			p.validatorID = candidates[i].ValidatorID
			pending = append(pending, p)
		}
	}
	if len(divergent) > 0 {
		return Decision{}, &ConsensusDivergenceError{
			Principle: principle,
			Leader:    candidates[0],
			Divergent: divergent,
			Reason:    strings.Join(reasons, "; "),
		}
	}

	for _, p := range pending {
		if c.Judge == nil {
			return Decision{}, &ConsensusDivergenceError{
				Principle: principle,
				Leader:    candidates[0],
				Divergent: []Candidate{candidateByID(candidates, p.validatorID)},
				Reason:    fmt.Sprintf("%s: free text differs (similarity %.2f)", p.path, p.similarity),
			}
		}
		verdict, err := c.Judge.Equivalent(ctx, principle, p.leader, p.other)
		if err != nil {
			return Decision{}, fmt.Errorf("judge: %w", err)
		}
		if !verdict.Equivalent {
			return Decision{}, &PrincipleViolationError{
				Principle:   principle,
				ValidatorID: p.validatorID,
				Field:       p.path,
				Reason:      verdict.Reason,
			}
		}
		decision.Judged++
	}

	return decision, nil
}

func (c *Comparator) exact(principle string, candidates []Candidate, values []parsed) (Decision, error) {
	var divergent []Candidate
	for i := 1; i < len(values); i++ {
		if values[i].isJSON != values[0].isJSON {
			divergent = append(divergent, candidates[i])
			continue
		}
		same, err := sameCanonical(values[0].value, values[i].value)
		if err != nil {
			return Decision{}, &MalformedOutputError{Output: candidates[i].Output, Err: err}
		}
		if !same {
			divergent = append(divergent, candidates[i])
		}
	}
	if len(divergent) > 0 {
		return Decision{}, &ConsensusDivergenceError{
			Principle: principle,
			Leader:    candidates[0],
			Divergent: divergent,
			Reason:    "outputs are not structurally equal",
		}
	}
	return Decision{Output: values[0].text, Leader: candidates[0].ValidatorID}, nil
}

func candidateByID(cands []Candidate, id string) Candidate {
	for _, c := range cands {
		if c.ValidatorID == id {
			return c
		}
	}
	return Candidate{ValidatorID: id}
}

type textPair struct {
	validatorID string
	path        string
	leader      string
	other       string
	similarity  float64
}

// matcher walks two decoded values. The first hard mismatch stops the walk;
// free-text differences are collected for the judge.
type matcher struct {
	rules     Rules
	threshold float64
	mismatch  string
	pending   []textPair
}

func (m *matcher) compareRoot(a, b any) {
	ao, aok := a.(map[string]any)
	bo, bok := b.(map[string]any)
	if aok && bok && len(m.rules.Fields) > 0 {
		for _, f := range m.rules.Fields {
			bv, ok := bo[f]
			if !ok {
				m.fail(f, "missing field")
				return
			}
			m.compare(f, ao[f], bv)
			if m.mismatch != "" {
				return
			}
		}
		return
	}
	m.compare("$", a, b)
}

func (m *matcher) fail(path, format string, args ...any) {
	if m.mismatch == "" {
		m.mismatch = path + ": " + fmt.Sprintf(format, args...)
	}
}

func (m *matcher) compare(path string, a, b any) {
	if m.mismatch != "" {
		return
	}

	switch av := a.(type) {
	case nil:
		if b != nil {
			m.fail(path, "expected null, got %v", b)
		}

	case bool:
		bv, ok := asBool(b)
		if !ok || bv != av {
			m.fail(path, "%v != %v", av, b)
		}

	case json.Number:
		af, _ := av.Float64()
		bf, ok := asFloat(b)
		if !ok {
			m.fail(path, "expected number, got %v", b)
			return
		}
		if math.Abs(af-bf) > m.rules.Tolerance+1e-9 {
			m.fail(path, "%v and %v differ by more than %v", av, b, m.rules.Tolerance)
		}

	case string:
		m.compareText(path, av, b)

	case []any:
		bv, ok := b.([]any)
		if !ok || len(bv) != len(av) {
			m.fail(path, "array shape differs")
			return
		}
		for i := range av {
			m.compare(path+"["+strconv.Itoa(i)+"]", av[i], bv[i])
		}

	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			m.fail(path, "expected object")
			return
		}
		if len(av) != len(bv) {
			m.fail(path, "object keys differ")
			return
		}
		for _, k := range sortedKeys(av) {
			v, ok := bv[k]
			if !ok {
				m.fail(path+"."+k, "missing field")
				return
			}
			m.compare(path+"."+k, av[k], v)
		}

	default:
		m.fail(path, "unsupported value %T", a)
	}
}

func (m *matcher) compareText(path, a string, b any) {
	var bs string
	switch bv := b.(type) {
	case string:
		bs = bv
	case json.Number:
		bs = bv.String()
	case bool:
		bs = strconv.FormatBool(bv)
	default:
		m.fail(path, "expected text, got %T", b)
		return
	}

	fa, fb := fold(a), fold(bs)
	if strings.EqualFold(fa, fb) {
		return
	}
	if m.rules.Strict || isCategorical(fa) || isCategorical(fb) {
		m.fail(path, "%q != %q", fa, fb)
		return
	}
	if reason := contradiction(fa, fb, m.rules.Tolerance); reason != "" {
		m.fail(path, "%s", reason)
		return
	}

	sim := similarity(fa, fb)
	if m.threshold > 0 && sim >= m.threshold {
		return
	}
	m.pending = append(m.pending, textPair{path: path, leader: a, other: bs, similarity: sim})
}

// isCategorical treats short single-token strings as enum-like values.
func isCategorical(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \t\n") && len(s) <= 32
}

func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return false, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
