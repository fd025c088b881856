package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/storage/database"
)

// PrepareDB opens the TEST postgres database, migrates it and empties every table.
// The test is skipped unless TEST_DB_HOST is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if _, ok := os.LookupEnv("TEST_DB_HOST"); !ok {
		t.Skip("TEST_DB_HOST not set; skipping postgres test")
	}

	conf := NewConfig()
	conf.Store = core.StorePostgres
	ctx := context.Background()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(ctx, db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.ExecContext(ctx, "TRUNCATE enrollments, payments, students, courses CASCADE"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
