package monitoring

import "fmt"

type volumeUsage struct {
	TotalBytes uint64
	FreeBytes  uint64
	// Known is false when the platform or path gives no filesystem stats.
	Known bool
}

func (v volumeUsage) usedPercent() float64 {
	if !v.Known || v.TotalBytes == 0 {
		return 0
	}
	used := v.TotalBytes - min(v.FreeBytes, v.TotalBytes)
	return float64(used) * 100 / float64(v.TotalBytes)
}

func (v volumeUsage) usedText() string {
	if !v.Known {
		return "unknown"
	}
	return fmt.Sprintf("%.1f%%", v.usedPercent())
}
