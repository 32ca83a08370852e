package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/sqlite"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	client, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	store := NewSQLiteStore(client)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return store
}

func TestLatestSnapshotEmpty(t *testing.T) {
	store := openStore(t)
	got, err := store.LatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if got != nil {
		t.Fatalf("LatestSnapshot = %+v, want nil", got)
	}
}

func TestSaveAndListSnapshots(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		if err := store.SaveSnapshot(ctx, analytics.AggregatedStats{TotalSummaries: i}); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	latest, err := store.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest == nil || latest.Stats.TotalSummaries != 3 || latest.ID == 0 || latest.CapturedAt.IsZero() {
		t.Fatalf("LatestSnapshot = %+v, want total 3", latest)
	}

	list, err := store.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(list) != 2 || list[0].Stats.TotalSummaries != 3 || list[1].Stats.TotalSummaries != 2 {
		t.Fatalf("ListSnapshots = %+v, want totals [3 2]", list)
	}
}

type fixedSource struct{ stats analytics.AggregatedStats }

func (f fixedSource) Stats() analytics.AggregatedStats { return f.stats }

func TestPeriodicSaveTakesFinalSnapshot(t *testing.T) {
	store := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	store.StartPeriodicSave(ctx, fixedSource{analytics.AggregatedStats{TotalCommits: 9}}, time.Hour)
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		latest, err := store.LatestSnapshot(context.Background())
		if err != nil {
			t.Fatalf("LatestSnapshot: %v", err)
		}
		if latest != nil {
			if latest.Stats.TotalCommits != 9 {
				t.Fatalf("final snapshot = %+v, want commits 9", latest)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no final snapshot after cancel")
}

func TestServeSnapshots(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		if err := store.SaveSnapshot(ctx, analytics.AggregatedStats{TotalCommits: i}); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	store.ServeSnapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Snapshots []Snapshot `json:"snapshots"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Snapshots) != 2 || body.Snapshots[0].Stats.TotalCommits != 3 {
		t.Fatalf("snapshots = %+v", body.Snapshots)
	}

	rec = httptest.NewRecorder()
	store.ServeSnapshots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestSaveIfChangedSkipsIdleCaptures(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	stats := analytics.AggregatedStats{TotalSummaries: 4, TotalCommits: 1}

	for i, want := range []bool{true, false} {
		saved, err := store.saveIfChanged(ctx, stats)
		if err != nil || saved != want {
			t.Fatalf("capture %d: saved=%v err=%v, want %v", i, saved, err, want)
		}
	}
	stats.TotalCommits++
	if saved, err := store.saveIfChanged(ctx, stats); err != nil || !saved {
		t.Fatalf("changed totals not saved: %v %v", saved, err)
	}

	list, err := store.ListSnapshots(ctx, 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListSnapshots = %d rows, %v; want 2", len(list), err)
	}
}
