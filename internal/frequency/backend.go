package frequency

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/postgres"
)

// Backend is an opened store with the database handle behind it. Ping is
// nil for the in-memory backend.
type Backend struct {
	Name  string
	Store Store
	Ping  func(ctx context.Context) error
	Close func() error
}

// OpenBackend opens the store selected by cfg.Store.Backend and makes sure
// its schema exists.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Store.Backend {
	case "memory":
		return &Backend{
			Name:  "memory",
			Store: NewMemoryStore(),
			Close: func() error { return nil },
		}, nil
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		store := NewPostgresStore(client)
		if err := store.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, err
		}
		return &Backend{Name: "postgres", Store: store, Ping: client.Ping, Close: client.Close}, nil
	case "sqlite":
		store, client, err := OpenSQLiteStore(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return &Backend{Name: "sqlite", Store: store, Ping: client.Ping, Close: client.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
