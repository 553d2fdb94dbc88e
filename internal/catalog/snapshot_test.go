package catalog_test

import (
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
	"github.com/cidadao-ativo/cidadao-api/internal/catalog"
	"github.com/cidadao-ativo/cidadao-api/internal/platform/database"
)

func TestNopSnapshotStore(t *testing.T) {
	var s catalog.NopSnapshotStore
	if err := s.Save(t.Context(), "k", catalog.Entry{}); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if _, ok, err := s.Load(t.Context(), "k"); ok || err != nil {
		t.Errorf("Load() = ok %v, err %v", ok, err)
	}
}

func TestNewPostgresSnapshotStore_NilDatabase(t *testing.T) {
	if _, err := catalog.NewPostgresSnapshotStore(t.Context(), nil); err == nil {
		t.Error("NewPostgresSnapshotStore(nil) should fail")
	}
	if _, err := catalog.NewPostgresSnapshotStore(t.Context(), &database.DB{}); err == nil {
		t.Error("NewPostgresSnapshotStore(no pool) should fail")
	}
}

func TestPostgresSnapshotStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := t.Context()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("cidadao"),
		postgres.WithUsername("cidadao"),
		postgres.WithPassword("cidadao"),
		postgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	db, err := database.New(ctx, dsn, 4, 1)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(db.Close)

	store, err := catalog.NewPostgresSnapshotStore(ctx, db)
	if err != nil {
		t.Fatalf("NewPostgresSnapshotStore() error = %v", err)
	}
	// A second replica starting against the same database finds the schema in place.
	if _, err := catalog.NewPostgresSnapshotStore(ctx, db); err != nil {
		t.Fatalf("NewPostgresSnapshotStore() again error = %v", err)
	}
	var migrations int
	if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&migrations); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if migrations != 1 {
		t.Errorf("schema_migrations rows = %d, want 1", migrations)
	}
	if n, err := db.Migrate(ctx, database.Migration{Name: "0001_bill_snapshots", SQL: "SELECT broken"}); err != nil || n != 0 {
		t.Errorf("Migrate(applied) = %d, %v; want 0, nil", n, err)
	}

	if _, ok, err := store.Load(ctx, "bills:9"); ok || err != nil {
		t.Fatalf("Load(missing) = ok %v, err %v", ok, err)
	}

	fetched := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := catalog.Entry{
		Bills:     []bill.Bill{{ID: "1", Title: "PL 1/2025", Category: bill.CategoryHealth, Points: 25}},
		FetchedAt: fetched,
	}
	if err := store.Save(ctx, "bills:9", first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := catalog.Entry{
		Bills:     []bill.Bill{{ID: "2", Title: "PL 2/2025"}, {ID: "3", Title: "PL 3/2025"}},
		FetchedAt: fetched.Add(time.Hour),
	}
	if err := store.Save(ctx, "bills:9", second); err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}

	got, ok, err := store.Load(ctx, "bills:9")
	if err != nil || !ok {
		t.Fatalf("Load() = ok %v, err %v", ok, err)
	}
	if len(got.Bills) != 2 || got.Bills[0].ID != "2" {
		t.Errorf("Load() bills = %+v, want upserted entry", got.Bills)
	}
	if !got.FetchedAt.Equal(second.FetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, second.FetchedAt)
	}
}
