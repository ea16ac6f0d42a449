package ports

import "context"

// Article is one raw news item as returned by a search provider.
type Article struct {
	Title   string
	Content string
}

// NewsProvider fetches recent articles relevant to a question. A nil error
// with an empty slice is the expected degraded result when no API key is
// configured.
type NewsProvider interface {
	Search(ctx context.Context, query string, maxArticles int) ([]Article, error)
}
