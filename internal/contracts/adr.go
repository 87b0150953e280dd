package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/agenthands/equivalence/internal/core/equivalence"
)

const (
	DefaultADRPrinciple = "The result['accepted'] has to be exactly the same"
	DefaultMaxReward    = 10
)

const adrPrompt = `
Here are some architecture decisions made in the past, and a new decision candidate.
You must check past decisions for contradiction with the new candidate that would block this candidate from being added to ADRs.

- Past decisions:
%s

- New decision candidate:
%s

You must decide if the new decision can be accepted or if it should be rejected.

In case of rejection:
- You MUST provide a REASON for the rejection.

In case of acceptance:
- The REASON should be an EMPTY STRING.
- You MUST decide of a REWARD (INTEGER) between 1 and %d. Evaluate the reward based on the potential impact, importance, and writing quality of the candidate.

Respond ONLY with the following format:
{
"accepted": bool,
"reasoning": str,
"reward": int
}
` + jsonOnly

type ADRVerdict struct {
	Accepted  bool   `json:"accepted"`
	Reasoning string `json:"reasoning"`
	Reward    int    `json:"reward"`
}

type category struct {
	Description string   `json:"description"`
	ADRs        []string `json:"adrs"`
}

// ADRValidator accepts architecture decision records that do not contradict
// earlier ones in their category, and rewards their authors.
type ADRValidator struct {
	engine Engine

	// Principle and Comparative configure the evaluation scope.
	Principle   string
	Comparative bool

	mu         sync.RWMutex
	owner      string
	maxReward  int
	categories map[string]*category
	balances   map[string]int
}

func NewADRValidator(inv Invocation, engine Engine) *ADRValidator {
	return &ADRValidator{
		engine:      engine,
		Principle:   DefaultADRPrinciple,
		Comparative: true,
		owner:       inv.Caller,
		maxReward:   DefaultMaxReward,
		categories:  make(map[string]*category),
		balances:    make(map[string]int),
	}
}

func (a *ADRValidator) ChangeOwner(inv Invocation, newOwner string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inv.Caller != a.owner {
		return ErrNotOwner
	}
	a.owner = newOwner
	return nil
}

func (a *ADRValidator) SetMaxReward(inv Invocation, reward int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inv.Caller != a.owner {
		return ErrNotOwner
	}
	a.maxReward = reward
	return nil
}

func (a *ADRValidator) AddCategory(inv Invocation, name, description string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if inv.Caller != a.owner {
		return ErrNotOwner
	}
	if _, ok := a.categories[name]; ok {
		return ErrCategoryExists
	}
	a.categories[name] = &category{Description: description}
	return nil
}

// ValidateADR evaluates adr against its category. An accepted record is
// appended and its author credited with the reward, capped at the maximum.
func (a *ADRValidator) ValidateADR(ctx context.Context, inv Invocation, adr, categoryName string) (ADRVerdict, error) {
	a.mu.RLock()
	cat, ok := a.categories[categoryName]
	var past []string
	if ok {
		past = append(past, cat.ADRs...)
	}
	maxReward := a.maxReward
	a.mu.RUnlock()
	if !ok {
		return ADRVerdict{}, fmt.Errorf("%w: %s", ErrUnknownCategory, categoryName)
	}

	pastJSON, err := json.Marshal(past)
	if err != nil {
		return ADRVerdict{}, err
	}
	prompt := fmt.Sprintf(adrPrompt, pastJSON, adr, maxReward)

	out, err := a.engine.CallLLMWithPrinciple(ctx, prompt, a.Principle, a.Comparative)
	if err != nil {
		return ADRVerdict{}, fmt.Errorf("validate adr %s: %w", inv.ID, err)
	}
	verdict, err := equivalence.Decode[ADRVerdict](out, "accepted", "reasoning", "reward")
	if err != nil {
		return ADRVerdict{}, err
	}
	if !verdict.Accepted {
		return verdict, nil
	}

	verdict.Reward = min(max(verdict.Reward, 0), maxReward)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[inv.Caller] += verdict.Reward
	a.categories[categoryName].ADRs = append(a.categories[categoryName].ADRs, adr)
	return verdict, nil
}

func (a *ADRValidator) Owner() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.owner
}

func (a *ADRValidator) Categories() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]string, len(a.categories))
	for name, c := range a.categories {
		out[name] = c.Description
	}
	return out
}

func (a *ADRValidator) ADRs(categoryName string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if c, ok := a.categories[categoryName]; ok {
		return append([]string(nil), c.ADRs...)
	}
	return nil
}

func (a *ADRValidator) BalanceOf(address string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balances[address]
}
