package pipeline

import (
	"context"

	"supplymatch/internal"
	"supplymatch/internal/logging"
	"supplymatch/internal/matcher"
)

// Matcher is the adapter contract the resolvers depend on.
type Matcher interface {
	Match(ctx context.Context, query string, labels []string) (label string, ok bool, err error)
}

func SupplierProfile(maxTokens int, noMatch string) matcher.Profile {
	return matcher.Profile{
		Label: "supplier name",
		System: "You are a helpful assistant. Always return the closest matching supplier name from the list provided, or '" +
			noMatch + "' if no match exists. Do not return extra text.",
		MaxTokens: maxTokens,
	}
}

type SupplierResolver struct {
	matcher Matcher
}

func NewSupplierResolver(m Matcher) *SupplierResolver {
	return &SupplierResolver{matcher: m}
}

// Resolve maps query onto exactly one entry of suppliers. Any answer that is
// not literally in suppliers is rejected.
func (r *SupplierResolver) Resolve(ctx context.Context, query string, suppliers []string) (string, error) {
	if len(suppliers) == 0 {
		return "", &internal.SupplierError{Query: query, Reason: "catalog has no suppliers"}
	}

	label, ok, err := r.matcher.Match(ctx, query, suppliers)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &internal.SupplierError{Query: query, Reason: "no acceptable match"}
	}

	for _, name := range suppliers {
		if name == label {
			return name, nil
		}
	}

	logging.FromContext(ctx).Warn().
		Str("query", query).
		Str("answer", label).
		Msg("matcher returned a supplier outside the catalog")
	return "", &internal.SupplierError{Query: query, Answer: label, Reason: "answer not in supplier list"}
}
