package config

import (
	"fmt"
	"strings"

	"github.com/vsinha/moplan/pkg/application/dto"
	"github.com/vsinha/moplan/pkg/domain/calendar"
)

// PlanningConfig holds the scalar planning parameters.
type PlanningConfig struct {
	HorizonWeeks int `json:"horizon_weeks"`
	// AdvanceWeeks may legitimately be zero, so Default sets it and
	// SetDefaults leaves it alone.
	AdvanceWeeks int `json:"advance_weeks"`
}

// SetDefaults applies sane defaults.
func (c *PlanningConfig) SetDefaults() {
	if c.HorizonWeeks == 0 {
		c.HorizonWeeks = dto.DefaultHorizonWeeks
	}
}

// Params converts the section into planning parameters.
func (c PlanningConfig) Params() dto.Params {
	return dto.Params{HorizonWeeks: c.HorizonWeeks, AdvanceWeeks: c.AdvanceWeeks}
}

// Validate checks the parameter ranges.
func (c PlanningConfig) Validate() error {
	return c.Params().Validate()
}

// CalendarConfig defines the working day applied to posts that do not
// declare their own hours.
type CalendarConfig struct {
	WorkStart     string `json:"work_start"`
	WorkEnd       string `json:"work_end"`
	LunchStart    string `json:"lunch_start"`
	LunchEnd      string `json:"lunch_end"`
	MaxSearchDays int    `json:"max_search_days"`
}

// SetDefaults applies sane defaults.
func (c *CalendarConfig) SetDefaults() {
	def := calendar.DefaultWorkingDay()
	if c.WorkStart == "" {
		c.WorkStart = def.Start.String()
	}
	if c.WorkEnd == "" {
		c.WorkEnd = def.End.String()
	}
	if c.LunchStart == "" {
		c.LunchStart = def.LunchStart.String()
	}
	if c.LunchEnd == "" {
		c.LunchEnd = def.LunchEnd.String()
	}
	if c.MaxSearchDays == 0 {
		c.MaxSearchDays = calendar.DefaultMaxSearchDays
	}
}

// WorkingDay parses the configured clocks.
func (c CalendarConfig) WorkingDay() (calendar.WorkingDay, error) {
	var wd calendar.WorkingDay
	for _, f := range []struct {
		name string
		raw  string
		dst  *calendar.Clock
	}{
		{"work_start", c.WorkStart, &wd.Start},
		{"work_end", c.WorkEnd, &wd.End},
		{"lunch_start", c.LunchStart, &wd.LunchStart},
		{"lunch_end", c.LunchEnd, &wd.LunchEnd},
	} {
		clock, err := calendar.ParseClock(f.raw)
		if err != nil {
			return calendar.WorkingDay{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = clock
	}
	if err := wd.Validate(); err != nil {
		return calendar.WorkingDay{}, err
	}
	return wd, nil
}

// Validate checks the clocks and search limit.
func (c CalendarConfig) Validate() error {
	if _, err := c.WorkingDay(); err != nil {
		return err
	}
	if c.MaxSearchDays < 1 {
		return fmt.Errorf("max_search_days must be positive, got %d", c.MaxSearchDays)
	}
	return nil
}

// InputsConfig names the files a run reads from.
type InputsConfig struct {
	Orders         string `json:"orders"`
	BOM            string `json:"bom"`
	Posts          string `json:"posts"`
	Unavailability string `json:"unavailability"`
	Operations     string `json:"operations"`
	// Compact is a single file holding both orders and BOM lines.
	Compact string `json:"compact"`
	// Strict aborts loading on the first malformed row instead of skipping it.
	Strict bool `json:"strict"`
}

// Validate checks that orders come from exactly one place.
func (c InputsConfig) Validate() error {
	switch {
	case c.Orders == "" && c.Compact == "":
		return fmt.Errorf("an orders file or a compact file is required")
	case c.Orders != "" && c.Compact != "":
		return fmt.Errorf("orders and compact inputs are mutually exclusive")
	case c.Compact != "" && c.BOM != "":
		return fmt.Errorf("compact input already carries the BOM")
	}
	return nil
}

// OutputFormats lists the supported output formats
var OutputFormats = []string{"text", "json", "yaml", "tsv", "xlsx", "svg"}

// OutputConfig selects how results are written.
type OutputConfig struct {
	Format string `json:"format"`
	// Path is the destination file; empty means standard output.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Format == "" {
		c.Format = "text"
	}
}

// Validate checks the format.
func (c OutputConfig) Validate() error {
	for _, f := range OutputFormats {
		if strings.EqualFold(c.Format, f) {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q, expected one of %s", c.Format, strings.Join(OutputFormats, ", "))
}

// LoggingConfig defines the log level and encoding.
type LoggingConfig struct {
	Level string `json:"level"`
	// Format is "json" or "console"; empty picks console when APP_ENV=dev.
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown format %s", c.Format)
	}
	return nil
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is written after each run when set.
	Textfile string `json:"textfile"`
}
