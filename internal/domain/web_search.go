package domain

import "context"

// WebSearchClient retrieves fragments from an external search API.
// Implementations are best-effort: a disabled or failing provider
// yields an empty result, never a hard failure of the request.
type WebSearchClient interface {
	// Search returns fragments for the top results of the query.
	Search(ctx context.Context, query string) ([]Fragment, error)

	// Enabled reports whether the provider is configured with a
	// credential. Callers skip Search on a disabled client; Search
	// itself also tolerates the call and returns an empty slice.
	Enabled() bool
}
