package store

import (
	"context"

	"docuchat/pkg/domain"
)

// ChunkStore persists embedded chunks per (owner, document) scope. Any
// storage backend can implement it; the retriever depends only on this
// capability.
type ChunkStore interface {
	// ReplaceChunks swaps the full chunk set for a scope: delete matching
	// scope, then insert the new set. A reader racing the replacement may
	// observe zero or partial chunks; that window is accepted.
	ReplaceChunks(ctx context.Context, owner, filename string, chunks []domain.Chunk) error
	// QueryScope returns all chunks for the exact scope in insertion order.
	// An unknown scope yields an empty slice, not an error.
	QueryScope(ctx context.Context, owner, filename string) ([]domain.Chunk, error)
}

// DocumentStore persists document references and summary history.
type DocumentStore interface {
	// SaveDocument upserts the reference for (owner, filename); re-upload
	// refreshes token count, URL, and size under the same identity.
	SaveDocument(ctx context.Context, doc domain.Document) error
	GetDocument(ctx context.Context, owner, filename string) (domain.Document, bool, error)
	ListDocuments(ctx context.Context, owner string) ([]domain.Document, error)
	// AppendSummary adds to the scope's summary history; prior summaries
	// are retained.
	AppendSummary(ctx context.Context, summary domain.Summary) error
	ListSummaries(ctx context.Context, owner, filename string) ([]domain.Summary, error)
}

// ConversationStore persists conversation turns per scope.
type ConversationStore interface {
	// AppendMessages records turns at the end of the scope's history, in the
	// given order, as one unit.
	AppendMessages(ctx context.Context, msgs []domain.Message) error
	// ListMessages returns the last limit turns in chronological order.
	ListMessages(ctx context.Context, owner, filename string, limit int) ([]domain.Message, error)
}

// Store is the full persistence surface of the pipeline.
type Store interface {
	ChunkStore
	DocumentStore
	ConversationStore
}
