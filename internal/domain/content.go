package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies the adapter family a source belongs to.
type SourceKind string

const (
	SourceKindRSS     SourceKind = "rss"
	SourceKindTwitter SourceKind = "twitter"
	SourceKindYouTube SourceKind = "youtube"
)

// Source is a configured content source belonging to one user.
// Source CRUD is owned by the outer application; the ingestor only reads
// active sources and records per-fetch outcomes.
type Source struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Kind          SourceKind
	Name          string
	URL           string
	Active        bool
	LastFetchedAt *time.Time
	LastError     *string
}

// RawItem is an unnormalized item as returned by a source adapter.
type RawItem struct {
	URL         string
	Title       string
	Body        string
	Author      string
	PublishedAt time.Time
}

// ContentItem is a deduplicated, persisted piece of content.
// Immutable after creation; uniqueness is (user_id, url) with url already
// normalized, so re-ingesting the same URL is a no-op.
type ContentItem struct {
	ID          uuid.UUID
	SourceID    uuid.UUID
	UserID      uuid.UUID
	URL         string
	Title       string
	Body        string
	Author      string
	PublishedAt time.Time
	FetchedAt   time.Time
}

// SourceError records one source's fetch failure without failing the run.
type SourceError struct {
	SourceID uuid.UUID `json:"source_id"`
	Name     string    `json:"name"`
	Message  string    `json:"message"`
}

// IngestResult aggregates the outcome of one ingest pass for a user.
type IngestResult struct {
	NewItems          int           `json:"new_items"`
	SkippedDuplicates int           `json:"skipped_duplicates"`
	SourceErrors      []SourceError `json:"source_errors,omitempty"`
}

// SourceAdapter fetches recent raw items for one source. One implementation
// exists per SourceKind; adapter failures are reported, not thrown.
type SourceAdapter interface {
	Kind() SourceKind
	FetchRecent(ctx context.Context, source Source) ([]RawItem, error)
}
