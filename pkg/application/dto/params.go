package dto

import "fmt"

const (
	DefaultHorizonWeeks = 4
	DefaultAdvanceWeeks = 3
)

// Params are the scalar planning parameters of one run
type Params struct {
	// HorizonWeeks is the width of a grouping window.
	HorizonWeeks int `json:"horizon_weeks" yaml:"horizon_weeks"`
	// AdvanceWeeks bounds how early or late an order may start around its need date.
	AdvanceWeeks int `json:"advance_weeks" yaml:"advance_weeks"`
}

// DefaultParams returns the default planning parameters
func DefaultParams() Params {
	return Params{
		HorizonWeeks: DefaultHorizonWeeks,
		AdvanceWeeks: DefaultAdvanceWeeks,
	}
}

// Validate checks the parameters
func (p Params) Validate() error {
	if p.HorizonWeeks < 1 {
		return fmt.Errorf("horizon weeks must be at least 1, got %d", p.HorizonWeeks)
	}
	if p.AdvanceWeeks < 0 {
		return fmt.Errorf("advance weeks cannot be negative, got %d", p.AdvanceWeeks)
	}
	return nil
}

// HorizonDays returns the grouping window width in days
func (p Params) HorizonDays() int {
	return p.HorizonWeeks * 7
}

// AdvanceDays returns the advance window in days
func (p Params) AdvanceDays() int {
	return p.AdvanceWeeks * 7
}
