package frequency

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps posting lists in process memory. It backs tests and
// single-process deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[Scope]*memoryScope
}

type memoryScope struct {
	postings  map[string]map[string]*Posting
	documents map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scopes: make(map[Scope]*memoryScope),
	}
}

func (m *MemoryStore) RecordDocument(ctx context.Context, scope Scope, documentID string, freqs map[string]int) error {
	if err := validateWrite(scope, documentID, freqs); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sc, ok := m.scopes[scope]
	if !ok {
		sc = &memoryScope{
			postings:  make(map[string]map[string]*Posting),
			documents: make(map[string]struct{}),
		}
		m.scopes[scope] = sc
	}
	sc.documents[documentID] = struct{}{}
	for written, term := range sortedTerms(freqs) {
		if err := ctx.Err(); err != nil {
			return &StoreError{Scope: scope, DocumentID: documentID, Term: term, Written: written, Err: err}
		}
		docs, exists := sc.postings[term]
		if !exists {
			docs = make(map[string]*Posting)
			sc.postings[term] = docs
		}
		if _, seen := docs[documentID]; seen {
			continue
		}
		docs[documentID] = &Posting{DocumentID: documentID, Frequency: freqs[term]}
	}
	return nil
}

func (m *MemoryStore) DocumentFrequency(ctx context.Context, scope Scope, term string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.scopes[scope]
	if !ok {
		return 1, nil
	}
	if n := len(sc.postings[term]); n > 0 {
		return n, nil
	}
	return 1, nil
}

func (m *MemoryStore) CollectionSize(ctx context.Context, scope Scope) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.scopes[scope]
	if !ok {
		return 0, nil
	}
	return len(sc.documents), nil
}

func (m *MemoryStore) Snapshot(ctx context.Context, scope Scope) ([]TermEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.scopes[scope]
	if !ok {
		return nil, nil
	}
	entries := make([]TermEntry, 0, len(sc.postings))
	for term, docs := range sc.postings {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocumentID < postings[j].DocumentID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries, nil
}

// Reset drops every record of scope, as on a full corpus rebuild.
func (m *MemoryStore) Reset(scope Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scopes, scope)
}
