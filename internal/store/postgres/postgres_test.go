//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testEmbedding(seed float32) []float32 {
	emb := make([]float32, 512)
	for i := range emb {
		emb[i] = seed + float32(i)/512.0
	}
	return emb
}

func TestRosterRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewRosterRepository(pool)

	t.Run("UpsertAndGet", func(t *testing.T) {
		rec := roster.Record{ID: "42", DisplayName: "Jane Doe", Embedding: testEmbedding(0.1)}
		if err := repo.Upsert(ctx, rec, "arcface"); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		got, err := repo.Get(ctx, "42")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got == nil {
			t.Fatal("Get returned nil for existing record")
		}
		if got.DisplayName != "Jane Doe" || len(got.Embedding) != 512 {
			t.Errorf("got %s with %d-dim embedding, want Jane Doe with 512", got.DisplayName, len(got.Embedding))
		}
	})

	t.Run("UpsertOverwrites", func(t *testing.T) {
		rec := roster.Record{ID: "42", DisplayName: "Jane D.", Embedding: testEmbedding(0.2)}
		if err := repo.Upsert(ctx, rec, "arcface"); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		got, err := repo.Get(ctx, "42")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.DisplayName != "Jane D." {
			t.Errorf("DisplayName = %s, want Jane D.", got.DisplayName)
		}

		count, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Count = %d, want 1 after re-upsert", count)
		}
	})

	t.Run("NullEmbedding", func(t *testing.T) {
		rec := roster.Record{ID: "43", DisplayName: "No Face Yet"}
		if err := repo.Upsert(ctx, rec, "arcface"); err != nil {
			t.Fatalf("Upsert without embedding failed: %v", err)
		}

		got, err := repo.Get(ctx, "43")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got.Embedding) != 0 {
			t.Errorf("embedding = %d values, want none", len(got.Embedding))
		}
	})

	t.Run("ListRecordsOrderedByID", func(t *testing.T) {
		records, err := repo.ListRecords(ctx)
		if err != nil {
			t.Fatalf("ListRecords failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("records = %d, want 2", len(records))
		}
		if records[0].ID != "42" || records[1].ID != "43" {
			t.Errorf("order = [%s %s], want [42 43]", records[0].ID, records[1].ID)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.Get(ctx, "nope")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != nil {
			t.Errorf("Get = %+v, want nil for missing record", got)
		}
	})
}

func TestLedgerRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewLedgerRepository(pool)
	day := "2026-09-01"
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("AppendAndLoad", func(t *testing.T) {
		entries := []ledger.Entry{
			{ID: "1", DisplayName: "Alice", Timestamp: now},
			{ID: "2", DisplayName: "Bob", Timestamp: now.Add(time.Minute)},
		}
		if err := repo.AppendEntries(ctx, day, entries); err != nil {
			t.Fatalf("AppendEntries failed: %v", err)
		}

		got, err := repo.LoadEntries(ctx, day)
		if err != nil {
			t.Fatalf("LoadEntries failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("entries = %d, want 2", len(got))
		}
		if got[0].ID != "1" || got[1].ID != "2" {
			t.Errorf("order = [%s %s], want insertion order [1 2]", got[0].ID, got[1].ID)
		}
	})

	t.Run("AppendIsIdempotent", func(t *testing.T) {
		// Re-appending the same (day, id) must not create a second row.
		entries := []ledger.Entry{
			{ID: "1", DisplayName: "Alice", Timestamp: now.Add(time.Hour)},
		}
		if err := repo.AppendEntries(ctx, day, entries); err != nil {
			t.Fatalf("AppendEntries failed: %v", err)
		}

		count, err := repo.CountForDay(ctx, day)
		if err != nil {
			t.Fatalf("CountForDay failed: %v", err)
		}
		if count != 2 {
			t.Errorf("rows = %d, want 2 after duplicate append", count)
		}
	})

	t.Run("DaysAreIsolated", func(t *testing.T) {
		otherDay := "2026-09-02"
		entries := []ledger.Entry{
			{ID: "1", DisplayName: "Alice", Timestamp: now.Add(24 * time.Hour)},
		}
		if err := repo.AppendEntries(ctx, otherDay, entries); err != nil {
			t.Fatalf("AppendEntries failed: %v", err)
		}

		got, err := repo.LoadEntries(ctx, otherDay)
		if err != nil {
			t.Fatalf("LoadEntries failed: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("entries = %d, want 1; same id on a new day is a new mark", len(got))
		}
	})

	t.Run("LedgerRoundTrip", func(t *testing.T) {
		// The ledger built on this repository sees persisted marks.
		l, err := ledger.Open(ctx, repo, day)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if got := l.MarkPresent("1", "Alice", now); got != ledger.AlreadyMarked {
			t.Errorf("MarkPresent = %v, want AlreadyMarked", got)
		}
		if got := l.MarkPresent("3", "Carol", now); got != ledger.Marked {
			t.Errorf("MarkPresent = %v, want Marked", got)
		}
		if err := l.Persist(ctx); err != nil {
			t.Fatalf("Persist failed: %v", err)
		}

		count, err := repo.CountForDay(ctx, day)
		if err != nil {
			t.Fatalf("CountForDay failed: %v", err)
		}
		if count != 3 {
			t.Errorf("rows = %d, want 3", count)
		}
	})
}
