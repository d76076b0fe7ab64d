package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeProductID(t *testing.T) {
	testCases := []struct {
		raw  string
		want ProductID
	}{
		{"PS100", "PS100"},
		{" ps 100 ", "PS100"},
		{"PS\u00a0100", "PS100"},
		{"\ufeffPF-7\t", "PF-7"},
		{"", ""},
	}

	for _, tc := range testCases {
		if got := NormalizeProductID(tc.raw); got != tc.want {
			t.Errorf("NormalizeProductID(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}

	if ProductID(" sf 2").Normalized() != ProductID("SF2") {
		t.Error("Expected Normalized to match NormalizeProductID")
	}
}

func TestProductTypeFromID(t *testing.T) {
	testCases := []struct {
		id        ProductID
		want      ProductType
		expectErr bool
	}{
		{"PF100", Finished, false},
		{"sf7", SemiFinished, false},
		{" PS 1", Base, false},
		{"XX9", UnknownProduct, true},
		{"P", UnknownProduct, true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.id), func(t *testing.T) {
			got, err := ProductTypeFromID(tc.id)
			if tc.expectErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tc.id)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestProductType_String(t *testing.T) {
	for code, typ := range map[string]ProductType{"PF": Finished, "SF": SemiFinished, "PS": Base, "UNKNOWN": UnknownProduct} {
		if typ.String() != code {
			t.Errorf("Expected %s, got %s", code, typ.String())
		}
	}
	if _, err := ParseProductType("ZZ"); err == nil {
		t.Error("Expected error for unknown product type code")
	}
}

func TestParseQuantity(t *testing.T) {
	testCases := []struct {
		text      string
		want      string
		expectErr bool
	}{
		{"12", "12", false},
		{"12.5", "12.5", false},
		{"12,5", "12.5", false},
		{"1 234,5", "1234.5", false},
		{"1\u00a0234,5", "1234.5", false},
		{"1.234,5", "1234.5", false},
		{" 0 ", "0", false},
		{"", "", true},
		{"lots", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			got, err := ParseQuantity(tc.text)
			if tc.expectErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %s", tc.text, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}
