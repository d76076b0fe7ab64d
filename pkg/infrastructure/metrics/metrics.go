package metrics

import "github.com/vsinha/moplan/pkg/application/dto"

// Sink records the summary of a planning run for observability purposes.
type Sink interface {
	RecordRun(stats dto.RunStats) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(dto.RunStats) error { return nil }
