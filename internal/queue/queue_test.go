package queue

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"

	"docsmill/internal/store"
)

// memStore is an in-memory Store with the same contract as the postgres
// implementation: unique (name, version), priority-then-FIFO claims, and
// longest-pattern-wins priority resolution.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	pending  []*store.BuildRequest
	patterns map[string]int
	config   map[store.ConfigName]string
}

func newMemStore() *memStore {
	return &memStore{
		patterns: make(map[string]int),
		config:   make(map[store.ConfigName]string),
	}
}

func (m *memStore) AddRequest(_ context.Context, name, version string, priority int, registry *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.pending {
		if req.Name == name && req.Version == version {
			return false, nil
		}
	}
	m.nextID++
	m.pending = append(m.pending, &store.BuildRequest{
		ID:       m.nextID,
		Name:     name,
		Version:  version,
		Priority: priority,
		Registry: registry,
	})
	return true, nil
}

func (m *memStore) HasPending(_ context.Context, name, version string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.pending {
		if req.Name == name && req.Version == version {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ClaimNext(_ context.Context) (*store.BuildRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, nil
	}
	best := 0
	for i, req := range m.pending {
		if req.Priority < m.pending[best].Priority ||
			(req.Priority == m.pending[best].Priority && req.ID < m.pending[best].ID) {
			best = i
		}
	}
	req := m.pending[best]
	m.pending = append(m.pending[:best], m.pending[best+1:]...)
	return req, nil
}

func (m *memStore) PendingCount(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.pending)), nil
}

func (m *memStore) MatchingPriority(_ context.Context, name string) (*store.PriorityPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var candidates []string
	for pattern := range m.patterns {
		expr := "^" + strings.ReplaceAll(strings.ReplaceAll(regexp.QuoteMeta(pattern), "%", ".*"), "_", ".") + "$"
		if regexp.MustCompile(expr).MatchString(name) {
			candidates = append(candidates, pattern)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) > len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	return &store.PriorityPattern{Pattern: candidates[0], Priority: m.patterns[candidates[0]]}, nil
}

func (m *memStore) ResolvePriority(ctx context.Context, name string) (int, error) {
	p, err := m.MatchingPriority(ctx, name)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return store.DefaultPriority, nil
	}
	return p.Priority, nil
}

func (m *memStore) SetPriority(_ context.Context, pattern string, priority int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns[pattern] = priority
	return nil
}

func (m *memStore) RemovePriority(_ context.Context, pattern string) (*int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	priority, ok := m.patterns[pattern]
	if !ok {
		return nil, nil
	}
	delete(m.patterns, pattern)
	return &priority, nil
}

func (m *memStore) ListPriorities(_ context.Context) ([]store.PriorityPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.PriorityPattern
	for pattern, priority := range m.patterns {
		out = append(out, store.PriorityPattern{Pattern: pattern, Priority: priority})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out, nil
}

func (m *memStore) GetConfigValue(_ context.Context, name store.ConfigName) (*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.config[name]
	if !ok {
		return nil, nil
	}
	return &value, nil
}

func (m *memStore) SetConfigValue(_ context.Context, name store.ConfigName, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[name] = value
	return nil
}

func intPtr(v int) *int { return &v }

func TestAddDeduplicates(t *testing.T) {
	ctx := context.Background()
	q := New(newMemStore(), nil, nil)

	outcome, err := q.Add(ctx, "serde", "1.0.200", intPtr(0), nil)
	if err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if outcome != OutcomeQueued {
		t.Errorf("first Add: got %v, want OutcomeQueued", outcome)
	}

	outcome, err = q.Add(ctx, "serde", "1.0.200", intPtr(3), nil)
	if err != nil {
		t.Fatalf("second Add failed: %v", err)
	}
	if outcome != OutcomeAlreadyQueued {
		t.Errorf("second Add: got %v, want OutcomeAlreadyQueued", outcome)
	}

	count, err := q.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d pending requests, want exactly 1", count)
	}
}

func TestDequeueOrdering(t *testing.T) {
	ctx := context.Background()
	q := New(newMemStore(), nil, nil)

	adds := []struct {
		name     string
		priority int
	}{
		{"first-five", 5},
		{"zero", 0},
		{"second-five", 5},
		{"negative", -1},
	}
	for _, a := range adds {
		if _, err := q.Add(ctx, a.name, "1.0.0", intPtr(a.priority), nil); err != nil {
			t.Fatalf("Add(%s) failed: %v", a.name, err)
		}
	}

	want := []string{"negative", "zero", "first-five", "second-five"}
	for i, name := range want {
		req, err := q.DequeueNext(ctx)
		if err != nil {
			t.Fatalf("DequeueNext %d failed: %v", i, err)
		}
		if req == nil {
			t.Fatalf("DequeueNext %d: queue unexpectedly empty", i)
		}
		if req.Name != name {
			t.Errorf("dequeue %d: got %q, want %q", i, req.Name, name)
		}
	}

	req, err := q.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("final DequeueNext failed: %v", err)
	}
	if req != nil {
		t.Errorf("expected empty queue, got %+v", req)
	}
}

func TestLockSemantics(t *testing.T) {
	ctx := context.Background()
	q := New(newMemStore(), nil, nil)

	if _, err := q.Add(ctx, "serde", "1.0.200", intPtr(1), nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := q.Add(ctx, "tokio", "1.38.0", intPtr(2), nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := q.Lock(ctx); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	req, err := q.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("DequeueNext failed: %v", err)
	}
	if req != nil {
		t.Fatalf("locked queue yielded %+v", req)
	}

	if err := q.Unlock(ctx); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	for _, want := range []string{"serde", "tokio"} {
		req, err := q.DequeueNext(ctx)
		if err != nil {
			t.Fatalf("DequeueNext failed: %v", err)
		}
		if req == nil || req.Name != want {
			t.Errorf("after unlock: got %+v, want %q", req, want)
		}
	}
}

func TestAddResolvesPriorityFromPatterns(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	q := New(s, nil, nil)

	if err := s.SetPriority(ctx, "foo-%", 2); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}

	if _, err := q.Add(ctx, "foo-bar", "1.0.0", nil, nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	req, err := q.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("DequeueNext failed: %v", err)
	}
	if req.Priority != 2 {
		t.Errorf("resolved priority %d, want 2 from pattern", req.Priority)
	}

	// An explicit priority bypasses resolution entirely.
	if _, err := q.Add(ctx, "foo-bar", "1.0.0", intPtr(0), nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	req, err = q.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("DequeueNext failed: %v", err)
	}
	if req.Priority != 0 {
		t.Errorf("explicit priority %d, want 0", req.Priority)
	}
}

func TestAddUsesDefaultPriorityWithoutMatch(t *testing.T) {
	ctx := context.Background()
	q := New(newMemStore(), nil, nil)

	if _, err := q.Add(ctx, "unmatched", "1.0.0", nil, nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	req, err := q.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("DequeueNext failed: %v", err)
	}
	if req.Priority != store.DefaultPriority {
		t.Errorf("got priority %d, want default %d", req.Priority, store.DefaultPriority)
	}
}

func TestLongestPatternWins(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	q := New(s, nil, nil)

	if err := s.SetPriority(ctx, "foo-%", 2); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}
	if err := s.SetPriority(ctx, "foo-bar-%", 7); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}

	if _, err := q.Add(ctx, "foo-bar-baz", "1.0.0", nil, nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	req, err := q.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("DequeueNext failed: %v", err)
	}
	if req.Priority != 7 {
		t.Errorf("got priority %d, want 7 from the more specific pattern", req.Priority)
	}
}
