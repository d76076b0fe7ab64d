package entities

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ProductID represents a product identifier as it appears in orders and BOMs
type ProductID string

// NormalizeProductID strips all whitespace (including non-breaking spaces and
// byte-order marks) and upper-cases the identifier so that formatting noise in
// source files does not fragment the BOM graph.
func NormalizeProductID(raw string) ProductID {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) || r == '\u00a0' || r == '\ufeff' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return ProductID(b.String())
}

// Normalized returns the normalized form of the product id
func (p ProductID) Normalized() ProductID {
	return NormalizeProductID(string(p))
}

// ProductType represents the product tier of an order
type ProductType int

const (
	UnknownProduct ProductType = iota
	Finished
	SemiFinished
	Base
)

// String method for ProductType enum
func (t ProductType) String() string {
	switch t {
	case Finished:
		return "PF"
	case SemiFinished:
		return "SF"
	case Base:
		return "PS"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the product type using its tier code
func (t ProductType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseProductType parses a product type code (PF, SF, PS)
func ParseProductType(code string) (ProductType, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "PF":
		return Finished, nil
	case "SF":
		return SemiFinished, nil
	case "PS":
		return Base, nil
	default:
		return UnknownProduct, fmt.Errorf("unrecognized product type: %q", code)
	}
}

// ProductTypeFromID derives the product type from the prefix of a product id
func ProductTypeFromID(id ProductID) (ProductType, error) {
	norm := string(id.Normalized())
	if len(norm) < 2 {
		return UnknownProduct, fmt.Errorf("cannot derive product type from %q", id)
	}
	return ParseProductType(norm[:2])
}

// ParseQuantity converts numeric text that may use locale-specific separators
// into a decimal. "1 234,5", "1.234,5" and "1234.5" all parse to 1234.5.
func ParseQuantity(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, fmt.Errorf("cannot parse empty quantity")
	}
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\u202f' {
			return -1
		}
		return r
	}, s)
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")
	qty, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q: %w", text, err)
	}
	return qty, nil
}
