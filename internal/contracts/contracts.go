// Package contracts holds example contracts that consult oracles through an
// equivalence scope. Their state changes only after a scope finalizes; any
// scope error leaves the contract untouched.
package contracts

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/agenthands/equivalence/internal/core/equivalence"
)

// Invocation identifies one contract call and its caller address.
type Invocation struct {
	Caller string
	ID     string
}

func NewInvocation(caller string) Invocation {
	return Invocation{Caller: caller, ID: uuid.New().String()}
}

// Engine is the part of equivalence.Engine the contracts use.
type Engine interface {
	Run(ctx context.Context, principle string, comparative bool, block equivalence.Block) (string, error)
	CallLLMWithPrinciple(ctx context.Context, prompt, principle string, comparative bool) (string, error)
	GetWebpageWithPrinciple(ctx context.Context, url, principle string) (equivalence.WebpageOutput, error)
}

var (
	ErrNotOwner        = errors.New("only owner")
	ErrUnknownCategory = errors.New("unknown category")
	ErrCategoryExists  = errors.New("category already exists")
)

const jsonOnly = `It is mandatory that you respond only using the JSON format above,
nothing else. Don't include any other words or characters,
your output must be only JSON without any formatting prefix or suffix.
This result should be perfectly parseable by a JSON parser without errors.`
