package equivalence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/agenthands/equivalence/internal/core/extract"
	"github.com/agenthands/equivalence/internal/core/model"
	"github.com/agenthands/equivalence/internal/llm"
)

type Verdict struct {
	Equivalent bool   `json:"equivalent"`
	Reason     string `json:"reason"`
}

// Judge decides whether two free-text values satisfy a principle.
type Judge interface {
	Equivalent(ctx context.Context, principle, leader, other string) (Verdict, error)
}

const DefaultJudgePrompt = `You are checking whether two independently produced answers are equivalent under a principle.

Principle:
%s

Answer A:
%s

Answer B:
%s

Respond ONLY with the following JSON format:
{
"equivalent": bool, // true if both answers satisfy the principle in the same way
"reason": str       // short explanation
}
It is mandatory that you respond only using the JSON format above,
nothing else. Don't include any other words or characters,
your output must be only JSON without any formatting prefix or suffix.
This result should be perfectly parseable by a JSON parser without errors.`

// LLMJudge asks a model for a verdict. Verdicts are memoized by a digest of
// the inputs so a repeated comparison reuses the first answer.
type LLMJudge struct {
	LLM    llm.LLMClient
	Prompt string

	mu   sync.Mutex
	memo map[string]Verdict
}

func NewLLMJudge(client llm.LLMClient, prompt string) *LLMJudge {
	if prompt == "" {
		prompt = DefaultJudgePrompt
	}
	return &LLMJudge{LLM: client, Prompt: prompt, memo: make(map[string]Verdict)}
}

func (j *LLMJudge) Equivalent(ctx context.Context, principle, leader, other string) (Verdict, error) {
	key, err := judgeKey(principle, leader, other)
	if err != nil {
		return Verdict{}, err
	}

	j.mu.Lock()
	if v, ok := j.memo[key]; ok {
		j.mu.Unlock()
		return v, nil
	}
	j.mu.Unlock()

	prompt := fmt.Sprintf(j.Prompt, principle, leader, other)
	response, err := j.LLM.Generate(ctx, prompt)
	if err != nil {
		return Verdict{}, &OracleUnavailableError{Kind: model.KindJudge, Input: prompt, Err: err}
	}

	v, err := extract.Into[Verdict](response, "equivalent")
	if err != nil {
		return Verdict{}, &MalformedOutputError{Output: response, Err: err}
	}

	j.mu.Lock()
	if prev, ok := j.memo[key]; ok {
		v = prev
	} else {
		j.memo[key] = v
	}
	j.mu.Unlock()
	return v, nil
}

func judgeKey(principle, leader, other string) (string, error) {
	c, err := canonical(map[string]string{"principle": principle, "a": leader, "b": other})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(c)
	return hex.EncodeToString(sum[:]), nil
}

// JudgeFunc adapts a function to Judge.
type JudgeFunc func(ctx context.Context, principle, leader, other string) (Verdict, error)

func (f JudgeFunc) Equivalent(ctx context.Context, principle, leader, other string) (Verdict, error) {
	return f(ctx, principle, leader, other)
}
