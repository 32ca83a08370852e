package frequency

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/sqlite"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// SQLStore keeps posting lists in PostgreSQL or SQLite.
//
// It requires two tables, created by EnsureSchema:
//
//	term_postings   (scope_kind, scope_owner, field, term, document_id, frequency, recorded_at)
//	scope_documents (scope_kind, scope_owner, field, document_id, recorded_at)
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

// NewPostgresStore returns a store over the shared PostgreSQL pool.
func NewPostgresStore(client *postgres.Client) *SQLStore {
	return &SQLStore{
		db:      client.DB,
		dialect: dialectPostgres,
		logger:  slog.Default().With("component", "frequency-store", "backend", "postgres"),
	}
}

// NewSQLiteStore returns a store over an embedded SQLite database.
func NewSQLiteStore(client *sqlite.Client) *SQLStore {
	return &SQLStore{
		db:      client.DB,
		dialect: dialectSQLite,
		logger:  slog.Default().With("component", "frequency-store", "backend", "sqlite"),
	}
}

// OpenSQLiteStore opens the database at path and creates the schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLStore, *sqlite.Client, error) {
	client, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	store := NewSQLiteStore(client)
	if err := store.EnsureSchema(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	return store, client, nil
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	timestamp := "TIMESTAMPTZ NOT NULL DEFAULT NOW()"
	if s.dialect == dialectSQLite {
		timestamp = "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP"
	}
	statements := []string{
		`CREATE TABLE IF NOT EXISTS term_postings (
	scope_kind  TEXT NOT NULL,
	scope_owner TEXT NOT NULL,
	field       TEXT NOT NULL,
	term        TEXT NOT NULL,
	document_id TEXT NOT NULL,
	frequency   INTEGER NOT NULL CHECK (frequency > 0),
	recorded_at ` + timestamp + `,
	PRIMARY KEY (scope_kind, scope_owner, field, term, document_id)
)`,
		`CREATE TABLE IF NOT EXISTS scope_documents (
	scope_kind  TEXT NOT NULL,
	scope_owner TEXT NOT NULL,
	field       TEXT NOT NULL,
	document_id TEXT NOT NULL,
	recorded_at ` + timestamp + `,
	PRIMARY KEY (scope_kind, scope_owner, field, document_id)
)`,
		`CREATE INDEX IF NOT EXISTS term_postings_document_idx
	ON term_postings (scope_kind, scope_owner, field, document_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating %s frequency schema: %w", s.dialect, err)
		}
	}
	return nil
}

func (s *SQLStore) RecordDocument(ctx context.Context, scope Scope, documentID string, freqs map[string]int) error {
	if err := validateWrite(scope, documentID, freqs); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO scope_documents (scope_kind, scope_owner, field, document_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`),
		string(scope.Kind), scope.Owner, string(scope.Field), documentID,
	)
	if err != nil {
		return &StoreError{Scope: scope, DocumentID: documentID, Err: err}
	}

	insert := s.rebind(
		`INSERT INTO term_postings (scope_kind, scope_owner, field, term, document_id, frequency)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`)
	terms := sortedTerms(freqs)
	for written, term := range terms {
		if _, err := s.db.ExecContext(ctx, insert,
			string(scope.Kind), scope.Owner, string(scope.Field), term, documentID, freqs[term],
		); err != nil {
			s.logger.Error("term upsert failed",
				"scope", scope.String(),
				"doc_id", documentID,
				"term", term,
				"written", written,
				"error", err,
			)
			return &StoreError{Scope: scope, DocumentID: documentID, Term: term, Written: written, Err: err}
		}
	}
	s.logger.Debug("document recorded",
		"scope", scope.String(),
		"doc_id", documentID,
		"terms", len(terms),
	)
	return nil
}

func (s *SQLStore) DocumentFrequency(ctx context.Context, scope Scope, term string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM term_postings
		WHERE scope_kind = ? AND scope_owner = ? AND field = ? AND term = ?`),
		string(scope.Kind), scope.Owner, string(scope.Field), term,
	).Scan(&n)
	if err != nil {
		return 0, readError("document frequency", scope, err)
	}
	if n == 0 {
		return 1, nil
	}
	return n, nil
}

func (s *SQLStore) CollectionSize(ctx context.Context, scope Scope) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM scope_documents
		WHERE scope_kind = ? AND scope_owner = ? AND field = ?`),
		string(scope.Kind), scope.Owner, string(scope.Field),
	).Scan(&n)
	if err != nil {
		return 0, readError("collection size", scope, err)
	}
	return n, nil
}

func (s *SQLStore) Snapshot(ctx context.Context, scope Scope) ([]TermEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT term, document_id, frequency FROM term_postings
		WHERE scope_kind = ? AND scope_owner = ? AND field = ?
		ORDER BY term, document_id`),
		string(scope.Kind), scope.Owner, string(scope.Field),
	)
	if err != nil {
		return nil, readError("snapshot", scope, err)
	}
	defer rows.Close()

	var entries []TermEntry
	for rows.Next() {
		var (
			term string
			p    Posting
		)
		if err := rows.Scan(&term, &p.DocumentID, &p.Frequency); err != nil {
			return nil, readError("snapshot scan", scope, err)
		}
		if n := len(entries); n == 0 || entries[n-1].Term != term {
			entries = append(entries, TermEntry{Term: term})
		}
		last := &entries[len(entries)-1]
		last.Postings = append(last.Postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, readError("snapshot rows", scope, err)
	}
	return entries, nil
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
