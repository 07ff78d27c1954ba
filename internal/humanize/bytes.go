// ABOUTME: Byte-count formatting for diagnostics output
// ABOUTME: Ported from the original client's format_bytes_auto
package humanize

import "fmt"

var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatBytesAuto renders n bytes using the largest unit that keeps the
// value >= 1, two decimal places for any unit beyond B.
func FormatBytesAuto(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, units[unit])
}
