package memory

import (
	"fmt"
	"runtime"
)

// HeapStats is a snapshot of the Go heap, taken once the repositories are
// loaded and a run is complete
type HeapStats struct {
	Alloc   uint64
	Objects uint64
	NumGC   uint32
}

// ReadHeapStats samples the runtime heap counters
func ReadHeapStats() HeapStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return HeapStats{Alloc: m.HeapAlloc, Objects: m.HeapObjects, NumGC: m.NumGC}
}

// FormatBytes renders n with a binary unit, e.g. "1.5 MiB"
func FormatBytes(n uint64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	value := float64(n)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}
