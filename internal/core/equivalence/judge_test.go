package equivalence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (c *countingLLM) Generate(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func TestLLMJudge_Memoizes(t *testing.T) {
	client := &countingLLM{responses: []string{
		"```json\n{\"equivalent\": True, \"reason\": \"same meaning\"}\n```",
		`{"equivalent": false, "reason": "second opinion"}`,
	}}
	j := NewLLMJudge(client, "")

	v, err := j.Equivalent(context.Background(), "be consistent", "dark room", "pitch black room")
	require.NoError(t, err)
	assert.True(t, v.Equivalent)
	assert.Equal(t, "same meaning", v.Reason)

	v, err = j.Equivalent(context.Background(), "be consistent", "dark room", "pitch black room")
	require.NoError(t, err)
	assert.True(t, v.Equivalent, "repeated comparison reuses the first verdict")
	require.Len(t, client.prompts, 1)
	assert.True(t, strings.Contains(client.prompts[0], "be consistent"))

	v, err = j.Equivalent(context.Background(), "be consistent", "pitch black room", "dark room")
	require.NoError(t, err)
	assert.False(t, v.Equivalent)
}

func TestLLMJudge_Errors(t *testing.T) {
	j := NewLLMJudge(&countingLLM{err: errors.New("down")}, "%s %s %s")
	_, err := j.Equivalent(context.Background(), "p", "a", "b")
	assert.Equal(t, KindOracleUnavailable, KindOf(err))

	j = NewLLMJudge(&countingLLM{responses: []string{"I think they match"}}, "")
	_, err = j.Equivalent(context.Background(), "p", "a", "b")
	assert.Equal(t, KindMalformedOutput, KindOf(err))

	j = NewLLMJudge(&countingLLM{responses: []string{`{"reason": "no verdict"}`}}, "")
	_, err = j.Equivalent(context.Background(), "p", "a", "b")
	assert.Equal(t, KindMalformedOutput, KindOf(err))
}

func TestDecode(t *testing.T) {
	type verdict struct {
		Accepted bool `json:"accepted"`
		Reward   int  `json:"reward"`
	}
	v, err := Decode[verdict](`{"accepted": true, "reward": 3}`, "accepted", "reward")
	require.NoError(t, err)
	assert.Equal(t, 3, v.Reward)

	_, err = Decode[verdict](`{"accepted": true}`, "accepted", "reward")
	var me *MalformedOutputError
	assert.True(t, errors.As(err, &me))
	assert.Equal(t, KindMalformedOutput, KindOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("other")))
	assert.Equal(t, KindScope, KindOf(ErrScopeAbandoned))
	assert.Equal(t, KindPrincipleViolation, KindOf(&PrincipleViolationError{Reason: "no"}))
}
