package core

import (
	"strings"
	"testing"
)

func TestWordValidate(t *testing.T) {
	good := Word{English: "bicycle", Dutch: "de fiets", Category: "transport", Difficulty: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Word{
		{English: "", Dutch: "fiets", Category: "c", Difficulty: 1},
		{English: "bike", Dutch: " ", Category: "c", Difficulty: 1},
		{English: "bike", Dutch: "fiets", Category: "", Difficulty: 1},
		{English: "bike", Dutch: "fiets", Category: "c", Difficulty: 0},
		{English: "bike", Dutch: "fiets", Category: "c", Difficulty: 4},
	}
	for i, w := range bads {
		if err := w.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestWordIssueValidate(t *testing.T) {
	if err := (WordIssue{Description: "typo in example"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (WordIssue{Description: "   "}).Validate(); err != ErrEmptyIssue {
		t.Fatalf("expected ErrEmptyIssue, got %v", err)
	}
	if err := (WordIssue{Description: strings.Repeat("x", 501)}).Validate(); err != ErrIssueTooLong {
		t.Fatalf("expected ErrIssueTooLong, got %v", err)
	}
}

func TestValidateAccountFields(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"anna", ValidateUsername("anna")},
		{"jan_de.vries-2", ValidateUsername("jan_de.vries-2")},
		{"email", ValidateEmail("anna@example.nl")},
		{"password", ValidatePassword("correct horse")},
	}
	for _, tc := range cases {
		if tc.err != nil {
			t.Fatalf("%s: expected ok, got %v", tc.name, tc.err)
		}
	}

	bad := []error{
		ValidateUsername("ab"),
		ValidateUsername("has space"),
		ValidateUsername(strings.Repeat("a", 31)),
		ValidateEmail("not-an-email"),
		ValidateEmail("Anna <anna@example.nl>"),
		ValidatePassword("short"),
	}
	for i, err := range bad {
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSessionAccuracy(t *testing.T) {
	s := Session{CorrectCount: 7, TotalCount: 10}
	if got := s.Accuracy(); got != 70 {
		t.Fatalf("accuracy=%d, want 70", got)
	}
}
