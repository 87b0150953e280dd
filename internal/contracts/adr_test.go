package contracts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/equivalence/internal/core/equivalence"
	"github.com/agenthands/equivalence/internal/oracle"
)

func newADR(t *testing.T, mocks ...*oracle.MockOracle) (*ADRValidator, Invocation) {
	owner := NewInvocation("0xowner")
	a := NewADRValidator(owner, newEngine(mocks...))
	require.NoError(t, a.AddCategory(owner, "storage", "Where and how data is persisted"))
	return a, owner
}

func TestADRValidator_RewardWithinTolerance(t *testing.T) {
	a, _ := newADR(t,
		&oracle.MockOracle{Response: `{"accepted": true, "reasoning": "", "reward": 5}`},
		&oracle.MockOracle{Response: `{"accepted": true, "reasoning": "", "reward": 6}`},
	)
	a.Principle = "The reward must be ±1"
	author := NewInvocation("0xauthor")

	v, err := a.ValidateADR(context.Background(), author, "# Use Postgres", "storage")
	require.NoError(t, err)
	assert.True(t, v.Accepted)
	assert.Equal(t, 5, v.Reward, "the first validator's value is committed")
	assert.Equal(t, 5, a.BalanceOf("0xauthor"))
	assert.Equal(t, []string{"# Use Postgres"}, a.ADRs("storage"))
}

func TestADRValidator_RewardOutsideTolerance(t *testing.T) {
	a, _ := newADR(t,
		&oracle.MockOracle{Response: `{"accepted": true, "reasoning": "", "reward": 3}`},
		&oracle.MockOracle{Response: `{"accepted": true, "reasoning": "", "reward": 9}`},
	)
	a.Principle = "The reward must be ±1"

	_, err := a.ValidateADR(context.Background(), NewInvocation("0xauthor"), "# Use Postgres", "storage")
	assert.Equal(t, equivalence.KindConsensusDivergence, equivalence.KindOf(err))
	assert.Equal(t, 0, a.BalanceOf("0xauthor"))
	assert.Empty(t, a.ADRs("storage"))
}

func TestADRValidator_DefaultPrincipleComparesAcceptedOnly(t *testing.T) {
	a, _ := newADR(t,
		&oracle.MockOracle{Response: `{"accepted": True, "reasoning": "", "reward": 12}`},
		&oracle.MockOracle{Response: `{"accepted": true, "reasoning": "", "reward": 2}`},
	)

	v, err := a.ValidateADR(context.Background(), NewInvocation("0xauthor"), "# Use Postgres", "storage")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxReward, v.Reward, "reward is capped")
	assert.Equal(t, DefaultMaxReward, a.BalanceOf("0xauthor"))
}

func TestADRValidator_Rejected(t *testing.T) {
	a, _ := newADR(t,
		&oracle.MockOracle{Response: `{"accepted": false, "reasoning": "contradicts ADR 1", "reward": 0}`},
		&oracle.MockOracle{Response: `{"accepted": false, "reasoning": "conflicts with the first decision", "reward": 0}`},
	)

	v, err := a.ValidateADR(context.Background(), NewInvocation("0xauthor"), "# Use Mongo", "storage")
	require.NoError(t, err)
	assert.False(t, v.Accepted)
	assert.Equal(t, "contradicts ADR 1", v.Reasoning)
	assert.Empty(t, a.ADRs("storage"))
}

func TestADRValidator_MissingKeys(t *testing.T) {
	a, _ := newADR(t,
		&oracle.MockOracle{Response: `{"accepted": true}`},
		&oracle.MockOracle{Response: `{"accepted": true}`},
	)

	_, err := a.ValidateADR(context.Background(), NewInvocation("0xauthor"), "# Use Postgres", "storage")
	assert.Equal(t, equivalence.KindMalformedOutput, equivalence.KindOf(err))
	assert.Equal(t, 0, a.BalanceOf("0xauthor"))
}

func TestADRValidator_PromptIncludesPastDecisions(t *testing.T) {
	m := &oracle.MockOracle{ResponseQueue: []string{
		`{"accepted": true, "reasoning": "", "reward": 4}`,
		`{"accepted": true, "reasoning": "", "reward": 4}`,
	}}
	a, _ := newADR(t, m)

	_, err := a.ValidateADR(context.Background(), NewInvocation("0xauthor"), "# Use Postgres", "storage")
	require.NoError(t, err)
	_, err = a.ValidateADR(context.Background(), NewInvocation("0xauthor"), "# Add read replicas", "storage")
	require.NoError(t, err)

	require.Len(t, m.Prompts, 2)
	assert.Contains(t, m.Prompts[1], `["# Use Postgres"]`)
	assert.Contains(t, m.Prompts[1], "between 1 and 10")
	assert.Equal(t, 8, a.BalanceOf("0xauthor"))
}

func TestADRValidator_OwnerChecks(t *testing.T) {
	a, owner := newADR(t, &oracle.MockOracle{})
	other := NewInvocation("0xother")

	assert.ErrorIs(t, a.AddCategory(other, "api", "HTTP surface"), ErrNotOwner)
	assert.ErrorIs(t, a.AddCategory(owner, "storage", "again"), ErrCategoryExists)
	assert.ErrorIs(t, a.SetMaxReward(other, 3), ErrNotOwner)

	_, err := a.ValidateADR(context.Background(), other, "# x", "missing")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	require.NoError(t, a.ChangeOwner(owner, "0xother"))
	assert.Equal(t, "0xother", a.Owner())
	require.NoError(t, a.AddCategory(other, "api", "HTTP surface"))
	assert.Equal(t, map[string]string{"storage": "Where and how data is persisted", "api": "HTTP surface"}, a.Categories())
}
