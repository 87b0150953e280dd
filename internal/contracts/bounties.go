package contracts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/agenthands/equivalence/internal/core/equivalence"
)

const bountyPrinciple = "The result should be exactly the same"

const claimPrompt = `
The following web page content corresponds to a GitHub pull request.

Web page content:
%s
End of web page data.

In that Pull Request, a developer should be fixing an issue from the repository
issues list:
%s
End of issues list.

To find the issue, you should look for a text like "Fixes: #<issue_number>" in the
Pull Request first comment.
It is very important to also include information about how many times a given PR has
been rejected (changes requested), so include the number of those as well.

Respond with the following JSON format:
{
    "merged": boolean, // if pull request was merged
    "username": string, // GitHub username of the developer who opened a pull request
    "issue": int, // number of the closed issue
    "changes_requested": int // number of changes requested for the given pull request
}
` + jsonOnly

var (
	ErrBountyClaimed     = errors.New("bounty already claimed")
	ErrNotMerged         = errors.New("pull request is not merged")
	ErrNoBounty          = errors.New("no open bounty for issue")
	ErrDeveloperUnproven = errors.New("GitHub profile page must have the given address on its bio")
)

type Bounty struct {
	Issue   int  `json:"issue"`
	Points  int  `json:"points"`
	Claimed bool `json:"claimed"`
}

type PullRequestReview struct {
	Merged           bool   `json:"merged"`
	Username         string `json:"username"`
	Issue            int    `json:"issue"`
	ChangesRequested int    `json:"changes_requested"`
}

// GitBounties awards points to registered developers whose merged pull
// requests fix issues carrying a bounty.
type GitBounties struct {
	engine Engine

	// GitHubURL is the site root, https://github.com unless overridden.
	GitHubURL string

	mu         sync.RWMutex
	owner      string
	repository string
	developers map[string]string
	points     map[string]int
	bounties   map[int]*Bounty
}

func NewGitBounties(inv Invocation, engine Engine, repository string) *GitBounties {
	return &GitBounties{
		engine:     engine,
		GitHubURL:  "https://github.com",
		owner:      inv.Caller,
		repository: repository,
		developers: make(map[string]string),
		points:     make(map[string]int),
		bounties:   make(map[int]*Bounty),
	}
}

func (g *GitBounties) AddBounty(inv Invocation, issue, points int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if inv.Caller != g.owner {
		return ErrNotOwner
	}
	b, ok := g.bounties[issue]
	if !ok {
		g.bounties[issue] = &Bounty{Issue: issue, Points: points}
		return nil
	}
	if b.Claimed {
		return ErrBountyClaimed
	}
	return nil
}

// Register links a GitHub username to the caller's address. The profile
// page must show the address.
func (g *GitBounties) Register(ctx context.Context, inv Invocation, username string) error {
	profile := g.GitHubURL + "/" + username
	page, err := g.engine.GetWebpageWithPrinciple(ctx, profile, bountyPrinciple)
	if err != nil {
		return fmt.Errorf("register %s: %w", username, err)
	}
	if !strings.Contains(page.Output, inv.Caller) {
		return ErrDeveloperUnproven
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.developers[username] = inv.Caller
	return nil
}

// Claim reads a pull request and credits its author with the bounty of the
// issue it fixes, divided by one more than the number of change requests.
func (g *GitBounties) Claim(ctx context.Context, inv Invocation, pull int) (PullRequestReview, error) {
	repo := g.GitHubURL + "/" + g.repository
	out, err := g.engine.Run(ctx, bountyPrinciple, true, func(ctx context.Context, eq *equivalence.Session) error {
		pr, err := eq.GetWebpage(ctx, fmt.Sprintf("%s/pull/%d", repo, pull))
		if err != nil {
			return err
		}
		issues, err := eq.GetWebpage(ctx, repo+"/issues")
		if err != nil {
			return err
		}
		resp, err := eq.CallLLM(ctx, fmt.Sprintf(claimPrompt, pr, issues))
		if err != nil {
			return err
		}
		return eq.Set(resp)
	})
	if err != nil {
		return PullRequestReview{}, fmt.Errorf("claim pull %d: %w", pull, err)
	}

	review, err := equivalence.Decode[PullRequestReview](out, "merged", "username", "issue", "changes_requested")
	if err != nil {
		return PullRequestReview{}, err
	}
	if !review.Merged {
		return review, ErrNotMerged
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.bounties[review.Issue]
	if !ok || b.Claimed {
		return review, fmt.Errorf("%w #%d", ErrNoBounty, review.Issue)
	}
	b.Claimed = true
	g.points[review.Username] += max(b.Points/(max(review.ChangesRequested, 0)+1), 1)
	return review, nil
}

func (g *GitBounties) Developers() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]string, len(g.developers))
	for k, v := range g.developers {
		out[k] = v
	}
	return out
}

func (g *GitBounties) Points(username string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.points[username]
}

func (g *GitBounties) Bounties() map[int]Bounty {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[int]Bounty, len(g.bounties))
	for k, v := range g.bounties {
		out[k] = *v
	}
	return out
}
