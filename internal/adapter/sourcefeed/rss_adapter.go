package sourcefeed

import (
	"context"
	"fmt"
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

const (
	defaultMaxItemsPerFetch = 50
	defaultFeedRate         = rate.Limit(2) // fetches per second across all feeds
)

// RSSAdapter fetches recent items from RSS and Atom feeds. A shared rate
// limiter keeps a large source list from turning each ingest pass into a
// burst against upstream hosts.
type RSSAdapter struct {
	parser   *gofeed.Parser
	limiter  *rate.Limiter
	maxItems int
}

func NewRSSAdapter(userAgent string) *RSSAdapter {
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &RSSAdapter{
		parser:   parser,
		limiter:  rate.NewLimiter(defaultFeedRate, 1),
		maxItems: defaultMaxItemsPerFetch,
	}
}

func (a *RSSAdapter) Kind() domain.SourceKind {
	return domain.SourceKindRSS
}

func (a *RSSAdapter) FetchRecent(ctx context.Context, source domain.Source) ([]domain.RawItem, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter aborted: %w", err)
	}

	feed, err := a.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", source.URL, err)
	}

	items := make([]domain.RawItem, 0, len(feed.Items))
	for i, entry := range feed.Items {
		if i >= a.maxItems {
			break
		}
		if entry.Link == "" {
			continue
		}

		body := entry.Content
		if body == "" {
			body = entry.Description
		}
		var author string
		if len(entry.Authors) > 0 {
			author = entry.Authors[0].Name
		}

		items = append(items, domain.RawItem{
			URL:         entry.Link,
			Title:       entry.Title,
			Body:        body,
			Author:      author,
			PublishedAt: publishedTime(entry),
		})
	}
	return items, nil
}

func publishedTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Now()
}

var _ domain.SourceAdapter = (*RSSAdapter)(nil)
