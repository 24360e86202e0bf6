package http

import (
	"errors"
	"strings"
	"testing"
)

func TestHex32Validation(t *testing.T) {
	type P struct {
		AccountID string `validate:"hex32"`
	}
	cv := NewValidator()

	// valid: 32-char lowercase hex
	ok := P{AccountID: strings.Repeat("a", 32)}
	if err := cv.Validate(ok); err != nil {
		t.Fatalf("expected valid hex32, got err: %v", err)
	}

	// invalid samples
	for _, s := range []string{
		"",                                  // empty
		strings.Repeat("A", 32),             // uppercase
		"deadbeef",                          // too short
		strings.Repeat("g", 32),             // non-hex char
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c8",   // 31 chars
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c88x", // 33 with extra
	} {
		err := cv.Validate(P{AccountID: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "AccountID", "32-char lowercase hex") {
			t.Fatalf("expected hex32 message for %q, got: %+v", s, fe)
		}
	}
}

func TestMoneyValidation(t *testing.T) {
	type P struct {
		Amount string `validate:"money"`
	}
	cv := NewValidator()

	for _, v := range []string{"1", "0.01", "10000.00", "250.5", "999999999999999999.99"} {
		if err := cv.Validate(P{Amount: v}); err != nil {
			t.Fatalf("expected money OK for %q, got %v", v, err)
		}
	}
	for _, v := range []string{"", "0", "0.00", "-5", "1.234", "1e3", "abc", " 10", "10."} {
		err := cv.Validate(P{Amount: v})
		if err == nil {
			t.Fatalf("expected money error for %q", v)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "Amount", "at most 2 decimal places") {
			t.Fatalf("expected money message for %q, got %+v", v, fe)
		}
	}
}

func TestRequiredAndBoundsMapping(t *testing.T) {
	type P struct {
		Name     string `validate:"required"`
		Min      int    `validate:"gte=10"`
		Max      int    `validate:"lte=5"`
		Type     string `validate:"oneof=loan fee"`
		Currency string `validate:"len=3"`
	}
	cv := NewValidator()

	// Intentionally violate all
	err := cv.Validate(P{Name: "", Min: 9, Max: 6, Type: "cash", Currency: "RUPIAH"})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	fe := ToFieldErrors(err)

	tests := []struct{ field, msg string }{
		{"Name", "is required"},
		{"Min", "greater than or equal to 10"},
		{"Max", "less than or equal to 5"},
		{"Type", "one of loan fee"},
		{"Currency", "must be 3 characters"},
	}
	for _, tc := range tests {
		if !containsFieldMsg(fe, tc.field, tc.msg) {
			t.Fatalf("missing %q for %s: %+v", tc.msg, tc.field, fe)
		}
	}
}

func TestToFieldErrors_NonValidation(t *testing.T) {
	err := errors.New("boom")
	fe := ToFieldErrors(err)
	if len(fe) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(fe))
	}
	if fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("unexpected mapping: %+v", fe[0])
	}
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
