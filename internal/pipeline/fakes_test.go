package pipeline

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"supplymatch/internal"
	"supplymatch/internal/matcher"
)

type matchFunc func(ctx context.Context, query string, labels []string) (string, bool, error)

func (f matchFunc) Match(ctx context.Context, query string, labels []string) (string, bool, error) {
	return f(ctx, query, labels)
}

// countingMatcher records every call and answers from fn.
type countingMatcher struct {
	calls  atomic.Int32
	mu     sync.Mutex
	labels [][]string
	fn     matchFunc
}

func (m *countingMatcher) Match(ctx context.Context, query string, labels []string) (string, bool, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.labels = append(m.labels, append([]string(nil), labels...))
	m.mu.Unlock()
	return m.fn(ctx, query, labels)
}

func answer(label string) *countingMatcher {
	return &countingMatcher{fn: func(context.Context, string, []string) (string, bool, error) {
		return label, true, nil
	}}
}

func noMatch() *countingMatcher {
	return &countingMatcher{fn: func(context.Context, string, []string) (string, bool, error) {
		return "", false, nil
	}}
}

type fakeCatalog struct {
	suppliers    []internal.Supplier
	items        map[string][]internal.Item
	supplierErr  error
	itemsErr     error
	itemRequests atomic.Int32
}

func (c *fakeCatalog) ListSuppliers(context.Context) ([]internal.Supplier, error) {
	if c.supplierErr != nil {
		return nil, c.supplierErr
	}
	return c.suppliers, nil
}

func (c *fakeCatalog) ListItems(_ context.Context, supplier string) ([]internal.Item, error) {
	c.itemRequests.Add(1)
	if c.itemsErr != nil {
		return nil, c.itemsErr
	}
	return c.items[supplier], nil
}

// scriptedCompleter answers supplier prompts and item prompts separately.
type scriptedCompleter struct {
	supplier func(prompt string) (string, error)
	item     func(prompt string) (string, error)
	calls    atomic.Int32
}

func (c *scriptedCompleter) Name() string { return "scripted" }

func (c *scriptedCompleter) Complete(_ context.Context, req matcher.Request) (string, error) {
	c.calls.Add(1)
	if strings.Contains(req.Prompt, "list of supplier names") {
		return c.supplier(req.Prompt)
	}
	return c.item(req.Prompt)
}

func acmeCatalog() *fakeCatalog {
	return &fakeCatalog{
		suppliers: []internal.Supplier{{ID: "1", Name: "Acme Co"}, {ID: "2", Name: "Beta Ltd"}},
		items: map[string][]internal.Item{
			"Acme Co": {
				{ID: "1", Supplier: "Acme Co", Description: "Dump Truck", Price: 100, Rate: 5},
				{ID: "2", Supplier: "Acme Co", Description: "Excavator", Price: 250, Rate: 12.5},
				{ID: "3", Supplier: "Acme Co", Description: "Roller", Price: 80, Rate: 4},
			},
		},
	}
}
