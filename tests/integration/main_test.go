package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
)

var (
	testDB     *TestDB
	testServer *TestServer
)

// TestMain starts one PostgreSQL container for the whole suite. Individual
// tests truncate tables for isolation.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration setup failed: %v\n", err)
		os.Exit(1)
	}
	testDB = db
	testServer = NewTestServer(db.DB)

	code := m.Run()

	testServer.Close()
	_ = testDB.Teardown(ctx)

	os.Exit(code)
}

// resetState truncates all tables between tests.
func resetState(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if err := testDB.CleanupTables(context.Background()); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
}
