package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes the metrics gathered from g to path in the text
// exposition format read by the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if path == "" {
		return fmt.Errorf("metrics textfile path cannot be empty")
	}
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
