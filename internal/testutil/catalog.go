package testutil

import (
	"testing"

	"dupcat/internal/catalog"
	"dupcat/internal/dupcat"
)

// NewTestCatalog creates a new in-memory SQLite catalog with the schema
// applied. The catalog is automatically closed when the test completes.
func NewTestCatalog(t *testing.T) dupcat.Catalog {
	t.Helper()

	sqlDB, err := catalog.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}

	if _, err := sqlDB.Exec(catalog.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	cat := catalog.NewFromDB(sqlDB)

	t.Cleanup(func() {
		cat.Close()
	})

	return cat
}
