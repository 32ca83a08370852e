package frequency

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
)

func newSQLiteTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, client, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "freq.db"))
	if err != nil {
		t.Fatalf("opening sqlite store: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return store
}

// storeContract exercises the behaviour every Store implementation shares.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()
	corpus := CorpusScope("podcasts", FieldLemma)
	user := UserScope("u1", FieldLemma)

	mustRecord := func(scope Scope, id string, freqs map[string]int) {
		t.Helper()
		if err := store.RecordDocument(ctx, scope, id, freqs); err != nil {
			t.Fatalf("RecordDocument(%s, %s): %v", scope, id, err)
		}
	}
	mustRecord(corpus, "d1", map[string]int{"gum": 2, "hat": 1})
	mustRecord(corpus, "d2", map[string]int{"gum": 1})
	// Re-recording an existing (term, document) pair changes nothing.
	mustRecord(corpus, "d1", map[string]int{"gum": 5})
	mustRecord(user, "u-doc", map[string]int{"hat": 3})

	t.Run("collection size", func(t *testing.T) {
		cases := []struct {
			scope Scope
			want  int
		}{
			{corpus, 2},
			{user, 1},
			{corpus.WithField(FieldTerm), 0},
			{CorpusScope("elsewhere", FieldLemma), 0},
		}
		for _, tc := range cases {
			got, err := store.CollectionSize(ctx, tc.scope)
			if err != nil || got != tc.want {
				t.Errorf("CollectionSize(%s) = %d, %v; want %d", tc.scope, got, err, tc.want)
			}
		}
	})

	t.Run("document frequency", func(t *testing.T) {
		for term, want := range map[string]int{"gum": 2, "hat": 1, "unseen": 1} {
			got, err := store.DocumentFrequency(ctx, corpus, term)
			if err != nil || got != want {
				t.Errorf("DocumentFrequency(%q) = %d, %v; want %d", term, got, err, want)
			}
		}
	})

	t.Run("snapshot", func(t *testing.T) {
		got, err := store.Snapshot(ctx, corpus)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		want := []TermEntry{
			{Term: "gum", Postings: PostingList{{"d1", 2}, {"d2", 1}}},
			{Term: "hat", Postings: PostingList{{"d1", 1}}},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Snapshot = %+v, want %+v", got, want)
		}
	})

	t.Run("invalid writes", func(t *testing.T) {
		cases := []struct {
			name  string
			scope Scope
			id    string
			freqs map[string]int
		}{
			{"empty id", corpus, "", map[string]int{"gum": 1}},
			{"zero frequency", corpus, "d9", map[string]int{"gum": 0}},
			{"empty term", corpus, "d9", map[string]int{"": 1}},
			{"no owner", CorpusScope("", FieldLemma), "d9", map[string]int{"gum": 1}},
			{"bad field", Scope{Kind: KindUser, Owner: "u", Field: "bigram"}, "d9", map[string]int{"gum": 1}},
		}
		for _, tc := range cases {
			err := store.RecordDocument(ctx, tc.scope, tc.id, tc.freqs)
			if !errors.Is(err, apperrors.ErrInvalidParameter) {
				t.Errorf("%s: expected ErrInvalidParameter, got %v", tc.name, err)
			}
		}
	})

	t.Run("cancelled write", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := store.RecordDocument(cancelled, corpus, "d3", map[string]int{"tree": 1})
		var storeErr *StoreError
		if !errors.As(err, &storeErr) {
			t.Fatalf("expected *StoreError, got %v", err)
		}
		if !errors.Is(err, apperrors.ErrStore) || !errors.Is(err, context.Canceled) {
			t.Fatalf("StoreError should wrap ErrStore and the cause: %v", err)
		}
		if storeErr.Written != 0 {
			t.Fatalf("written = %d, want 0", storeErr.Written)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, newSQLiteTestStore(t))
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	scope := CorpusScope("c", FieldTerm)
	store.RecordDocument(ctx, scope, "d1", map[string]int{"NOUN:gum": 1})
	store.Reset(scope)
	if n, _ := store.CollectionSize(ctx, scope); n != 0 {
		t.Fatalf("CollectionSize after Reset = %d", n)
	}
}

func TestDocuments(t *testing.T) {
	entries := []TermEntry{
		{Term: "gum", Postings: PostingList{{"d2", 2}, {"d1", 1}}},
		{Term: "hat", Postings: PostingList{{"d1", 1}}},
	}
	ids, docs := Documents(entries)
	if !reflect.DeepEqual(ids, []string{"d1", "d2"}) {
		t.Fatalf("ids = %v", ids)
	}
	want := [][]string{{"gum", "hat"}, {"gum", "gum"}}
	if !reflect.DeepEqual(docs, want) {
		t.Fatalf("docs = %v, want %v", docs, want)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: dialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("postgres rebind = %q", got)
	}
	lite := &SQLStore{dialect: dialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	b, err := OpenBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if b.Name != "memory" || b.Ping != nil {
		t.Fatalf("unexpected memory backend: %+v", b)
	}

	cfg.Store.Backend = "sqlite"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "nested", "freq.db")
	b, err = OpenBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	defer b.Close()
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("sqlite ping: %v", err)
	}
	if err := b.Store.RecordDocument(ctx, CorpusScope("c", FieldLemma), "d1", map[string]int{"gum": 1}); err != nil {
		t.Fatalf("recording through backend: %v", err)
	}

	cfg.Store.Backend = "cassandra"
	if _, err := OpenBackend(ctx, cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
