package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestItemsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_items.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no items migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE item_status AS ENUM ('registered', 'normal', 'reserved', 'gone')",
		"CREATE TABLE IF NOT EXISTS items",
		"status item_status NOT NULL DEFAULT 'registered'",
		"FOREIGN KEY (manager_id) REFERENCES users(id)",
		"FOREIGN KEY (location_id) REFERENCES locations(id)",
		"CREATE INDEX IF NOT EXISTS idx_items_deleted_at ON items (deleted_at)",
		"DROP TABLE IF EXISTS items",
		"DROP TYPE IF EXISTS item_status",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLoansMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_loans.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no loans migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE loan_status AS ENUM ('requested', 'approved', 'rejected')",
		"CREATE TABLE IF NOT EXISTS loans",
		"FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE",
		"FOREIGN KEY (applicant_id) REFERENCES users(id)",
		"idx_loans_item_applicant_created",
		"DROP TABLE IF EXISTS loans",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
