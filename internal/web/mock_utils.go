package web

import (
	"context"
	"sync"
)

// MockFetcher serves canned pages by URL, or Pages in order when ByURL has no
// entry.
type MockFetcher struct {
	mu    sync.Mutex
	ByURL map[string]string
	Pages []string
	Err   error
	Calls []string
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, url)
	if m.Err != nil {
		return "", m.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if page, ok := m.ByURL[url]; ok {
		return page, nil
	}
	if len(m.Pages) > 0 {
		page := m.Pages[0]
		m.Pages = m.Pages[1:]
		return page, nil
	}
	return "", nil
}
