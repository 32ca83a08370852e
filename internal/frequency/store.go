// Package frequency implements the scoped document-frequency store. A scope
// is either a shared corpus or one user's private corpus; both share the
// same Store interface and the same append-only posting layout.
package frequency

import (
	"context"
	"fmt"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
)

// Kind distinguishes corpus-owned from user-owned scopes.
type Kind string

const (
	KindCorpus Kind = "corpus"
	KindUser   Kind = "user"
)

// Field separates lemma vocabularies from typed candidate-term vocabularies.
type Field string

const (
	FieldLemma Field = "lemma"
	FieldTerm  Field = "term"
)

// Scope identifies one independent set of document-frequency records.
type Scope struct {
	Kind  Kind   `json:"kind"`
	Owner string `json:"owner"`
	Field Field  `json:"field"`
}

func CorpusScope(corpusID string, field Field) Scope {
	return Scope{Kind: KindCorpus, Owner: corpusID, Field: field}
}

func UserScope(userID string, field Field) Scope {
	return Scope{Kind: KindUser, Owner: userID, Field: field}
}

// WithField returns a copy of s over another vocabulary.
func (s Scope) WithField(field Field) Scope {
	s.Field = field
	return s
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s/%s", s.Kind, s.Owner, s.Field)
}

// Validate rejects scopes with unknown kinds or fields or an empty owner.
func (s Scope) Validate() error {
	if s.Kind != KindCorpus && s.Kind != KindUser {
		return apperrors.InvalidParameterf("unknown scope kind %q", s.Kind)
	}
	if s.Field != FieldLemma && s.Field != FieldTerm {
		return apperrors.InvalidParameterf("unknown scope field %q", s.Field)
	}
	if s.Owner == "" {
		return apperrors.InvalidParameterf("scope owner is required")
	}
	return nil
}

// Posting records how often one document contains a term.
type Posting struct {
	DocumentID string `json:"document_id"`
	Frequency  int    `json:"frequency"`
}

type PostingList []Posting

// TermEntry is the document-frequency record of one term.
type TermEntry struct {
	Term     string      `json:"term"`
	Postings PostingList `json:"postings"`
}

// Store persists document-frequency records per scope.
type Store interface {
	// RecordDocument appends (documentID, frequency) to the record of every
	// term in freqs. Terms are written one at a time in ascending order;
	// recording a (term, document) pair that already exists is a no-op. A
	// failure part-way returns a *StoreError.
	RecordDocument(ctx context.Context, scope Scope, documentID string, freqs map[string]int) error
	// DocumentFrequency returns how many documents contain term, or 1 when
	// the term has never been recorded.
	DocumentFrequency(ctx context.Context, scope Scope, term string) (int, error)
	// CollectionSize returns how many documents were recorded in scope.
	CollectionSize(ctx context.Context, scope Scope) (int, error)
	// Snapshot returns every term record in scope, sorted by term.
	Snapshot(ctx context.Context, scope Scope) ([]TermEntry, error)
}

// StoreError reports a failed or partial write.
type StoreError struct {
	Scope      Scope
	DocumentID string
	Term       string
	Written    int
	Err        error
}

func (e *StoreError) Error() string {
	if e.Term == "" {
		return fmt.Sprintf("recording document %s into %s: %v", e.DocumentID, e.Scope, e.Err)
	}
	return fmt.Sprintf("recording document %s into %s: term %q failed after %d terms written: %v",
		e.DocumentID, e.Scope, e.Term, e.Written, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{apperrors.ErrStore, e.Err}
}

// readError wraps a failed read in ErrStore.
func readError(op string, scope Scope, err error) error {
	return fmt.Errorf("%w: %s %s: %w", apperrors.ErrStore, op, scope, err)
}

// validateWrite checks a RecordDocument call before anything is written.
func validateWrite(scope Scope, documentID string, freqs map[string]int) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if documentID == "" {
		return apperrors.InvalidParameterf("document id is required")
	}
	for term, n := range freqs {
		if term == "" {
			return apperrors.InvalidParameterf("empty term in document %s", documentID)
		}
		if n < 1 {
			return apperrors.InvalidParameterf("term %q has frequency %d in document %s", term, n, documentID)
		}
	}
	return nil
}

func sortedTerms(freqs map[string]int) []string {
	terms := make([]string, 0, len(freqs))
	for t := range freqs {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Documents regroups a snapshot into per-document term sequences, each term
// repeated by its frequency. Documents are ordered by ID.
func Documents(entries []TermEntry) (ids []string, docs [][]string) {
	byDoc := make(map[string][]string)
	for _, entry := range entries {
		for _, p := range entry.Postings {
			for i := 0; i < p.Frequency; i++ {
				byDoc[p.DocumentID] = append(byDoc[p.DocumentID], entry.Term)
			}
		}
	}
	ids = make([]string, 0, len(byDoc))
	for id := range byDoc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs = make([][]string, len(ids))
	for i, id := range ids {
		docs[i] = byDoc[id]
	}
	return ids, docs
}
