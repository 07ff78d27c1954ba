// ABOUTME: Tests for human-readable scan report formatting
package discovery

import (
	"strings"
	"testing"

	"github.com/betterclock/betterclock-go/internal/wire"
)

func TestFormatScanReportIncludesSelection(t *testing.T) {
	report := wire.ScanReport{
		ElapsedMS: 42,
		Steps: []wire.ScanStep{
			{Step: "local-healthz", Status: wire.StepOK, ElapsedMS: 10, Message: "healthy on localhost"},
		},
		Selected: &wire.DiscoveryResult{BaseURL: "http://127.0.0.1:8099", Via: wire.ViaLocalHealthz},
	}

	out := FormatScanReport(report)
	if !strings.Contains(out, "http://127.0.0.1:8099") {
		t.Errorf("expected selected base URL in output, got %q", out)
	}
	if !strings.Contains(out, "local-healthz") {
		t.Errorf("expected stage name in output, got %q", out)
	}
}

func TestFormatScanReportReportsNoServer(t *testing.T) {
	report := wire.ScanReport{ElapsedMS: 5}
	out := FormatScanReport(report)
	if !strings.Contains(out, "no server found") {
		t.Errorf("expected no-server message, got %q", out)
	}
}
