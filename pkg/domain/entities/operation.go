package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Operation is one step of a product routing, executed on a single post
type Operation struct {
	// Key is the product id or, for type-wide routings, the product type code.
	Key      string
	Name     string
	PostID   string
	Duration time.Duration
	Sequence int
	Priority int
}

// NewOperation creates a validated Operation from a duration in hours
func NewOperation(key, name, postID string, standardHours decimal.Decimal, sequence, priority int) (*Operation, error) {
	if key == "" {
		return nil, fmt.Errorf("operation key cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("operation name cannot be empty")
	}
	if postID == "" {
		return nil, fmt.Errorf("post id cannot be empty")
	}
	if standardHours.IsNegative() {
		return nil, fmt.Errorf("standard time cannot be negative, got %s", standardHours)
	}

	return &Operation{
		Key:      key,
		Name:     name,
		PostID:   postID,
		Duration: HoursToDuration(standardHours),
		Sequence: sequence,
		Priority: priority,
	}, nil
}

// HoursToDuration converts decimal hours to a duration rounded to the minute
func HoursToDuration(hours decimal.Decimal) time.Duration {
	minutes := hours.Mul(decimal.NewFromInt(60)).Round(0).IntPart()
	return time.Duration(minutes) * time.Minute
}
