package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOperation_New(t *testing.T) {
	op, err := NewOperation("PS", "Mix", "P1", decimal.RequireFromString("1.5"), 10, 1)
	if err != nil {
		t.Fatalf("Expected valid operation creation to succeed: %v", err)
	}
	if op.Duration != 90*time.Minute {
		t.Errorf("Expected 90m, got %v", op.Duration)
	}

	testCases := []struct {
		name   string
		key    string
		opName string
		postID string
		hours  decimal.Decimal
	}{
		{"empty key", "", "Mix", "P1", decimal.NewFromInt(1)},
		{"empty name", "PS", "", "P1", decimal.NewFromInt(1)},
		{"empty post", "PS", "Mix", "", decimal.NewFromInt(1)},
		{"negative hours", "PS", "Mix", "P1", decimal.NewFromInt(-1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewOperation(tc.key, tc.opName, tc.postID, tc.hours, 10, 1); err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
		})
	}
}

func TestHoursToDuration(t *testing.T) {
	testCases := []struct {
		hours string
		want  time.Duration
	}{
		{"0", 0},
		{"0.25", 15 * time.Minute},
		{"2", 2 * time.Hour},
		{"0.3333", 20 * time.Minute},
		{"1.99", 119 * time.Minute},
	}
	for _, tc := range testCases {
		if got := HoursToDuration(decimal.RequireFromString(tc.hours)); got != tc.want {
			t.Errorf("HoursToDuration(%s) = %v, want %v", tc.hours, got, tc.want)
		}
	}
}
