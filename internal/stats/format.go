package stats

import (
	"fmt"
	"time"
)

// FormatSpeed renders a byte-per-second rate as a human string, picking
// the largest unit that keeps the mantissa readable.
func FormatSpeed(bytesPerSec float64) string {
	switch {
	case bytesPerSec >= 1024*1024*1024:
		return fmt.Sprintf("%.2f GB/s", bytesPerSec/(1024*1024*1024))
	case bytesPerSec >= 1024*1024:
		return fmt.Sprintf("%.2f MB/s", bytesPerSec/(1024*1024))
	case bytesPerSec >= 1024:
		return fmt.Sprintf("%.2f KB/s", bytesPerSec/1024)
	default:
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	}
}

// FormatDuration renders a duration as seconds, minutes+seconds, or
// hours+minutes depending on magnitude.
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.0fs", seconds)
	case seconds < 3600:
		m := int(seconds) / 60
		s := int(seconds) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		h := int(seconds) / 3600
		m := (int(seconds) % 3600) / 60
		return fmt.Sprintf("%dh%dm", h, m)
	}
}
