// ABOUTME: Human-readable rendering of a ScanReport for CLI output
// ABOUTME: Ported from the original client's format_scan_report
package discovery

import (
	"fmt"
	"strings"

	"github.com/betterclock/betterclock-go/internal/wire"
)

// FormatScanReport renders a ScanReport as a multi-line operator-facing
// summary: one line per stage, then the final selection (or failure).
func FormatScanReport(report wire.ScanReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "betterclock discovery scan (%d ms)\n", report.ElapsedMS)
	for _, step := range report.Steps {
		fmt.Fprintf(&b, "  [%-5s] %-14s %6d ms  %s\n", strings.ToUpper(string(step.Status)), step.Step, step.ElapsedMS, step.Message)
	}

	if report.Selected != nil {
		fmt.Fprintf(&b, "selected: %s (via %s)\n", report.Selected.BaseURL, report.Selected.Via)
	} else {
		fmt.Fprintf(&b, "no server found\n")
	}
	return b.String()
}
