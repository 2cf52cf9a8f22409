package pipeline

import (
	"context"

	"supplymatch/internal"
	"supplymatch/internal/catalog"
	"supplymatch/internal/logging"
	"supplymatch/internal/matcher"
)

// ItemProfile instructs the model to match item descriptions. hint carries
// the naming conventions of the trade, such as regional synonyms.
func ItemProfile(hint string, maxTokens int, noMatch string) matcher.Profile {
	return matcher.Profile{
		Label: "item description",
		System: "You are a helpful assistant with expertise in regional and industry naming of equipment and materials. " +
			"Always provide the closest matching description from the provided list, or '" + noMatch +
			"' if none is close, and never include extra text.",
		Hint:      hint,
		MaxTokens: maxTokens,
	}
}

type ItemResolver struct {
	matcher Matcher
}

func NewItemResolver(m Matcher) *ItemResolver {
	return &ItemResolver{matcher: m}
}

// Resolve returns the catalog item whose description the matcher picked, or
// nil when nothing in items matches. Only descriptions are sent out.
func (r *ItemResolver) Resolve(ctx context.Context, query string, items []internal.Item) (*internal.Item, error) {
	return r.resolveIndexed(ctx, query, catalog.BuildIndex(items))
}

func (r *ItemResolver) resolveIndexed(ctx context.Context, query string, idx *catalog.Index) (*internal.Item, error) {
	if len(idx.Labels) == 0 {
		return nil, nil
	}

	label, ok, err := r.matcher.Match(ctx, query, idx.Labels)
	if err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx)
	if !ok {
		log.Info().Str("description", query).Msg("no catalog item matched")
		return nil, nil
	}

	item, found := idx.Lookup(label)
	if !found {
		log.Warn().
			Str("description", query).
			Str("answer", label).
			Msg("matcher returned an item outside the catalog")
		return nil, nil
	}
	return &item, nil
}
