package imports

import (
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func TestReadRowsParsesHeaderCaseInsensitively(t *testing.T) {
	input := strings.Join([]string{
		"Name,Description,Purchase_Date,Location,Manager,Owner,Status",
		"drill,cordless drill,2024-03-01,workshop,alice,bob,normal",
		"ladder,,,workshop,,,",
	}, "\n")

	rows, err := readRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0]
	if first.Name != "drill" || first.Location != "workshop" || first.Status != "normal" {
		t.Fatalf("unexpected first row %+v", first)
	}
	if first.Line != 2 {
		t.Fatalf("expected line 2, got %d", first.Line)
	}
	second := rows[1]
	if second.Name != "ladder" || second.PurchaseDate != "" || second.Manager != "" {
		t.Fatalf("unexpected second row %+v", second)
	}
}

func TestReadRowsRequiresNameAndLocationColumns(t *testing.T) {
	input := "name,description\ndrill,a drill"

	_, err := readRows(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "location") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestReadRowsToleratesShortRecords(t *testing.T) {
	input := strings.Join([]string{
		"name,location,status",
		"drill,workshop,normal",
		"ladder,attic",
	}, "\n")

	rows, err := readRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Status != "" {
		t.Fatalf("short record must yield empty trailing fields, got %q", rows[1].Status)
	}
}

func TestReadRowsCollectsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"name,location",
		"drill,workshop",
		`"broken,attic`,
	}, "\n")

	rows, err := readRows(strings.NewReader(input))
	if len(rows) != 1 {
		t.Fatalf("expected the good row to survive, got %d rows", len(rows))
	}
	if len(multierr.Errors(err)) != 1 {
		t.Fatalf("expected one row error, got %v", err)
	}
}

func TestReadRowsRejectsEmptyFile(t *testing.T) {
	_, err := readRows(strings.NewReader(""))
	if err == nil {
		t.Fatal("expected an error for an empty file")
	}
}
