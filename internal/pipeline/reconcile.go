package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"supplymatch/internal"
	"supplymatch/internal/catalog"
	"supplymatch/internal/config"
	"supplymatch/internal/logging"
	"supplymatch/internal/matcher"
)

// Catalog is the read side of the supplier catalog used by a run.
type Catalog interface {
	ListSuppliers(ctx context.Context) ([]internal.Supplier, error)
	ListItems(ctx context.Context, supplier string) ([]internal.Item, error)
}

type Options struct {
	// Concurrency bounds how many line items are resolved at once.
	Concurrency int
	// Attempts is how many times one line item is tried when the matcher is
	// unreachable. No-match answers are never retried.
	Attempts int
	Backoff  time.Duration
}

type Reconciler struct {
	catalog   Catalog
	suppliers *SupplierResolver
	items     *ItemResolver
	opts      Options
}

func NewReconciler(cat Catalog, suppliers *SupplierResolver, items *ItemResolver, opts Options) *Reconciler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	return &Reconciler{catalog: cat, suppliers: suppliers, items: items, opts: opts}
}

// New wires a Reconciler from process configuration. Both adapters share one
// rate limiter so the provider sees a single request budget.
func New(cfg config.Config, cat Catalog, completer matcher.Completer) *Reconciler {
	return NewWithLimiter(cfg, cat, completer, matcher.NewLimiter(cfg))
}

func NewWithLimiter(cfg config.Config, cat Catalog, completer matcher.Completer, limiter *rate.Limiter) *Reconciler {
	opts := []matcher.Option{
		matcher.WithLimiter(limiter),
		matcher.WithTimeout(time.Duration(cfg.MatcherTimeoutMs) * time.Millisecond),
		matcher.WithNoMatchToken(cfg.MatcherNoMatchToken),
	}
	noMatch := cfg.MatcherNoMatchToken
	if strings.TrimSpace(noMatch) == "" {
		noMatch = matcher.DefaultNoMatchToken
	}

	supplierAdapter := matcher.NewAdapter(completer, SupplierProfile(cfg.MatcherSupplierMaxTokens, noMatch), opts...)
	itemAdapter := matcher.NewAdapter(completer, ItemProfile(cfg.MatcherItemDomainHint, cfg.MatcherItemMaxTokens, noMatch), opts...)

	return NewReconciler(cat, NewSupplierResolver(supplierAdapter), NewItemResolver(itemAdapter), Options{
		Concurrency: cfg.ItemConcurrency,
		Attempts:    cfg.ItemAttempts,
		Backoff:     time.Duration(cfg.ItemRetryBackoffMs) * time.Millisecond,
	})
}

type lineOutcome struct {
	record  *internal.CombinedRecord
	failure error
}

// Reconcile resolves the document supplier, fetches that supplier's items
// and resolves every line item against them. Catalog and supplier failures
// abort the run; per-line matcher failures are reported in Result.Failures.
func (r *Reconciler) Reconcile(ctx context.Context, doc internal.Document) (internal.Result, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx)
	start := time.Now()

	result := internal.Result{
		RunID:     runID,
		Records:   []internal.CombinedRecord{},
		Unmatched: []internal.Unmatched{},
		Failures:  []internal.ItemFailure{},
	}

	supplier, err := r.ResolveSupplier(ctx, doc.SupplierName)
	if err != nil {
		log.Error().Err(err).Str("supplier_name", doc.SupplierName).Msg("supplier resolution failed")
		return result, err
	}
	result.Supplier = supplier
	log.Info().Str("supplier_name", doc.SupplierName).Str("supplier", supplier).Msg("supplier resolved")

	items, err := r.catalog.ListItems(ctx, supplier)
	if err != nil {
		err = asCatalogError(err, "list items", supplier)
		log.Error().Err(err).Msg("item fetch failed")
		return result, err
	}
	idx := catalog.BuildIndex(items)
	if len(idx.Duplicates) > 0 {
		log.Warn().Strs("descriptions", idx.Duplicates).Msg("duplicate item descriptions, first occurrence wins")
	}

	lines := numberLines(doc.LineItems)
	outcomes := make([]lineOutcome, len(lines))

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, line := range lines {
		g.Go(func() error {
			outcomes[i] = r.resolveLine(ctx, idx, line)
			return nil
		})
	}
	_ = g.Wait()

	for i, line := range lines {
		switch out := outcomes[i]; {
		case out.failure != nil:
			result.Failures = append(result.Failures, internal.ItemFailure{
				LineNo:      line.LineNo,
				Description: line.Description,
				Quantity:    line.Quantity,
				Err:         out.failure,
				Message:     out.failure.Error(),
			})
		case out.record != nil:
			result.Records = append(result.Records, *out.record)
		default:
			result.Unmatched = append(result.Unmatched, internal.Unmatched{
				LineNo:      line.LineNo,
				Description: line.Description,
				Quantity:    line.Quantity,
			})
		}
	}

	log.Info().
		Int("lines", len(lines)).
		Int("matched", len(result.Records)).
		Int("unmatched", len(result.Unmatched)).
		Int("failed", len(result.Failures)).
		Dur("took", time.Since(start)).
		Msg("reconciliation finished")
	return result, nil
}

// ResolveSupplier fetches the supplier list and resolves name against it.
func (r *Reconciler) ResolveSupplier(ctx context.Context, name string) (string, error) {
	suppliers, err := r.catalog.ListSuppliers(ctx)
	if err != nil {
		return "", asCatalogError(err, "list suppliers", "")
	}
	return r.suppliers.Resolve(ctx, name, catalog.SupplierNames(suppliers))
}

// LookupItem resolves one description inside an already resolved supplier.
func (r *Reconciler) LookupItem(ctx context.Context, supplier, description string) (*internal.Item, error) {
	items, err := r.catalog.ListItems(ctx, supplier)
	if err != nil {
		return nil, asCatalogError(err, "list items", supplier)
	}
	return r.items.Resolve(ctx, description, items)
}

func (r *Reconciler) resolveLine(ctx context.Context, idx *catalog.Index, line internal.LineItem) lineOutcome {
	if strings.TrimSpace(line.Description) == "" {
		return lineOutcome{}
	}

	log := logging.FromContext(ctx).With().Int("line_no", line.LineNo).Str("description", line.Description).Logger()
	var lastErr error
	for attempt := 1; attempt <= r.opts.Attempts; attempt++ {
		item, err := r.items.resolveIndexed(ctx, line.Description, idx)
		if err == nil {
			if item == nil {
				return lineOutcome{}
			}
			record := internal.Combine(*item, line)
			log.Debug().Str("item_id", item.ID.String()).Msg("line item matched")
			return lineOutcome{record: &record}
		}

		lastErr = err
		if !errors.Is(err, internal.ErrMatcherUnavailable) || attempt == r.opts.Attempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("matcher unavailable, retrying line item")
		select {
		case <-ctx.Done():
			return lineOutcome{failure: lastErr}
		case <-time.After(r.opts.Backoff * time.Duration(attempt)):
		}
	}

	log.Error().Err(lastErr).Msg("line item resolution failed")
	return lineOutcome{failure: lastErr}
}

func numberLines(lines []internal.LineItem) []internal.LineItem {
	out := make([]internal.LineItem, len(lines))
	for i, line := range lines {
		if line.LineNo == 0 {
			line.LineNo = i + 1
		}
		out[i] = line
	}
	return out
}

func asCatalogError(err error, op, supplier string) error {
	if errors.Is(err, internal.ErrCatalogUnavailable) {
		return err
	}
	return &internal.CatalogError{Op: op, Supplier: supplier, Err: err}
}
