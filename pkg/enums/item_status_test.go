package enums

import "testing"

func TestParseItemStatus(t *testing.T) {
	for _, value := range []string{"registered", "normal", "reserved", "gone"} {
		status, err := ParseItemStatus(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		if !status.IsValid() {
			t.Fatalf("expected %q to be valid", value)
		}
	}

	if _, err := ParseItemStatus("lost"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if ItemStatus("lost").IsValid() {
		t.Fatal("unknown status must not be valid")
	}
}

func TestParseLoanStatus(t *testing.T) {
	for _, value := range []string{"requested", "approved", "rejected"} {
		status, err := ParseLoanStatus(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		if status.String() != value {
			t.Fatalf("expected %q got %q", value, status)
		}
	}

	if _, err := ParseLoanStatus("returned"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
