package commands

import (
	"testing"
)

func TestParseTaskID_Valid(t *testing.T) {
	id, err := ParseTaskID([]string{"12"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 12 {
		t.Errorf("expected 12, got %d", id)
	}
}

func TestParseTaskID_LeadingZeros(t *testing.T) {
	id, err := ParseTaskID([]string{"007"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 7 {
		t.Errorf("expected 7, got %d", id)
	}
}

func TestParseTaskID_Missing(t *testing.T) {
	_, err := ParseTaskID(nil)
	if err != ErrTaskIDRequired {
		t.Errorf("expected ErrTaskIDRequired, got %v", err)
	}
}

func TestParseTaskID_Invalid(t *testing.T) {
	for _, arg := range []string{"0", "-1", "a1", "1.5", "", "１"} {
		_, err := ParseTaskID([]string{arg})
		if err == nil {
			t.Errorf("expected error for %q", arg)
			continue
		}
		expected := "invalid task id: " + arg
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	}
}

func TestParseTaskID_TooManyArgs(t *testing.T) {
	_, err := ParseTaskID([]string{"1", "2"})
	if err == nil {
		t.Fatal("expected error for extra argument")
	}
	if err.Error() != "unexpected argument: 2" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestParseTaskID_Overflow(t *testing.T) {
	_, err := ParseTaskID([]string{"99999999999999999999999"})
	if err == nil {
		t.Fatal("expected error for out-of-range id")
	}
}
