// Package aggregator persists periodic snapshots of the aggregated
// summarizer analytics to PostgreSQL or SQLite.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/sqlite"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// StatsSource is satisfied by *analytics.Aggregator.
type StatsSource interface {
	Stats() analytics.AggregatedStats
}

// Snapshot is one stored capture of the aggregate.
type Snapshot struct {
	ID         int64                     `json:"id"`
	CapturedAt time.Time                 `json:"captured_at"`
	Stats      analytics.AggregatedStats `json:"stats"`
}

// dialect holds the statements that differ between the two back-ends.
type dialect struct {
	name   string
	schema string
	insert string
	list   string
}

var (
	postgresDialect = dialect{
		name: "postgres",
		schema: `CREATE TABLE IF NOT EXISTS analytics_snapshots (
			id              BIGSERIAL PRIMARY KEY,
			total_summaries BIGINT NOT NULL,
			total_commits   BIGINT NOT NULL,
			stats           JSONB NOT NULL,
			captured_at     TIMESTAMPTZ NOT NULL
		)`,
		insert: `INSERT INTO analytics_snapshots (total_summaries, total_commits, stats, captured_at) VALUES ($1, $2, $3, $4)`,
		list:   `SELECT id, stats, captured_at FROM analytics_snapshots ORDER BY id DESC LIMIT $1`,
	}
	sqliteDialect = dialect{
		name: "sqlite",
		schema: `CREATE TABLE IF NOT EXISTS analytics_snapshots (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			total_summaries INTEGER NOT NULL,
			total_commits   INTEGER NOT NULL,
			stats           TEXT NOT NULL,
			captured_at     TIMESTAMP NOT NULL
		)`,
		insert: `INSERT INTO analytics_snapshots (total_summaries, total_commits, stats, captured_at) VALUES (?, ?, ?, ?)`,
		list:   `SELECT id, stats, captured_at FROM analytics_snapshots ORDER BY id DESC LIMIT ?`,
	}
)

// Store writes snapshots to the analytics_snapshots table. The totals are
// duplicated into columns so they can be charted without decoding JSON.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger

	mu        sync.Mutex
	saved     bool
	lastTotal [2]int64
}

func NewPostgresStore(client *postgres.Client) *Store {
	return newStore(client.DB, postgresDialect)
}

func NewSQLiteStore(client *sqlite.Client) *Store {
	return newStore(client.DB, sqliteDialect)
}

func newStore(db *sql.DB, d dialect) *Store {
	return &Store{
		db:      db,
		dialect: d,
		logger:  slog.Default().With("component", "analytics-store", "backend", d.name),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("creating analytics_snapshots on %s: %w", s.dialect.name, err)
	}
	return nil
}

// SaveSnapshot stores stats unconditionally.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	blob, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.insert,
		stats.TotalSummaries, stats.TotalCommits, string(blob), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	s.mu.Lock()
	s.saved = true
	s.lastTotal = [2]int64{stats.TotalSummaries, stats.TotalCommits}
	s.mu.Unlock()

	s.logger.Debug("snapshot stored", "summaries", stats.TotalSummaries, "commits", stats.TotalCommits)
	return nil
}

// saveIfChanged skips the write when no summary or commit has been seen
// since the last stored snapshot.
func (s *Store) saveIfChanged(ctx context.Context, stats analytics.AggregatedStats) (bool, error) {
	s.mu.Lock()
	unchanged := s.saved && s.lastTotal == [2]int64{stats.TotalSummaries, stats.TotalCommits}
	s.mu.Unlock()
	if unchanged {
		return false, nil
	}
	return true, s.SaveSnapshot(ctx, stats)
}

// LatestSnapshot returns nil, nil when nothing has been stored.
func (s *Store) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	list, err := s.ListSnapshots(ctx, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListSnapshots returns up to limit snapshots, newest first. Rows whose JSON
// no longer decodes are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.list, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]Snapshot, 0, limit)
	for rows.Next() {
		var (
			snap Snapshot
			blob []byte
		)
		if err := rows.Scan(&snap.ID, &blob, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("reading snapshot row: %w", err)
		}
		if err := json.Unmarshal(blob, &snap.Stats); err != nil {
			s.logger.Warn("undecodable snapshot skipped", "id", snap.ID, "error", err)
			continue
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return out, nil
}

// StartPeriodicSave captures src every interval while it is changing, and
// once more when ctx ends.
func (s *Store) StartPeriodicSave(ctx context.Context, src StatsSource, interval time.Duration) {
	s.logger.Info("periodic snapshots enabled", "interval", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.saveIfChanged(ctx, src.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if _, err := s.saveIfChanged(final, src.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
}

// ServeSnapshots handles GET /api/v1/analytics/snapshots?limit=N.
func (s *Store) ServeSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respond(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}
	list, err := s.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing snapshots failed", "error", err)
		respond(w, http.StatusServiceUnavailable, map[string]string{"error": "snapshots unavailable"})
		return
	}
	respond(w, http.StatusOK, map[string]any{"snapshots": list})
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
