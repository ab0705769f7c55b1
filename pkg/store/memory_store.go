package store

import (
	"context"
	"sync"

	"docuchat/pkg/domain"
)

// MemoryStore keeps all state in-process. It backs tests and local runs
// without Postgres.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[domain.Scope]domain.Document
	chunks    map[domain.Scope][]domain.Chunk
	summaries map[domain.Scope][]domain.Summary
	messages  map[domain.Scope][]domain.Message
	docOrder  []domain.Scope
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[domain.Scope]domain.Document),
		chunks:    make(map[domain.Scope][]domain.Chunk),
		summaries: make(map[domain.Scope][]domain.Summary),
		messages:  make(map[domain.Scope][]domain.Message),
	}
}

// SaveDocument upserts a document reference.
func (m *MemoryStore) SaveDocument(ctx context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scope := domain.Scope{Owner: doc.Owner, Filename: doc.Filename}
	if existing, ok := m.documents[scope]; ok {
		doc.CreatedAt = existing.CreatedAt
	} else {
		m.docOrder = append(m.docOrder, scope)
	}
	m.documents[scope] = doc
	return nil
}

// GetDocument retrieves a document reference by scope.
func (m *MemoryStore) GetDocument(ctx context.Context, owner, filename string) (domain.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[domain.Scope{Owner: owner, Filename: filename}]
	return doc, ok, nil
}

// ListDocuments returns an owner's documents in upload order.
func (m *MemoryStore) ListDocuments(ctx context.Context, owner string) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]domain.Document, 0)
	for _, scope := range m.docOrder {
		if scope.Owner != owner {
			continue
		}
		if doc, ok := m.documents[scope]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// AppendSummary adds a summary to the scope's history.
func (m *MemoryStore) AppendSummary(ctx context.Context, summary domain.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scope := domain.Scope{Owner: summary.Owner, Filename: summary.Filename}
	m.summaries[scope] = append(m.summaries[scope], summary)
	return nil
}

// ListSummaries returns the scope's summary history, oldest first.
func (m *MemoryStore) ListSummaries(ctx context.Context, owner, filename string) ([]domain.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scope := domain.Scope{Owner: owner, Filename: filename}
	out := make([]domain.Summary, len(m.summaries[scope]))
	copy(out, m.summaries[scope])
	return out, nil
}

// ReplaceChunks swaps the full chunk set for a scope.
func (m *MemoryStore) ReplaceChunks(ctx context.Context, owner, filename string, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scope := domain.Scope{Owner: owner, Filename: filename}
	replacement := make([]domain.Chunk, len(chunks))
	copy(replacement, chunks)
	m.chunks[scope] = replacement
	return nil
}

// QueryScope returns all chunks for the exact scope in insertion order.
func (m *MemoryStore) QueryScope(ctx context.Context, owner, filename string) ([]domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scope := domain.Scope{Owner: owner, Filename: filename}
	out := make([]domain.Chunk, len(m.chunks[scope]))
	copy(out, m.chunks[scope])
	return out, nil
}

// AppendMessages records turns at the end of the scope's history.
func (m *MemoryStore) AppendMessages(ctx context.Context, msgs []domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		scope := domain.Scope{Owner: msg.Owner, Filename: msg.Filename}
		m.messages[scope] = append(m.messages[scope], msg)
	}
	return nil
}

// ListMessages returns the last limit turns in chronological order.
func (m *MemoryStore) ListMessages(ctx context.Context, owner, filename string, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	scope := domain.Scope{Owner: owner, Filename: filename}
	history := m.messages[scope]
	start := len(history) - limit
	if start < 0 {
		start = 0
	}
	out := make([]domain.Message, len(history)-start)
	copy(out, history[start:])
	return out, nil
}
