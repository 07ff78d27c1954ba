// ABOUTME: Five-stage server discovery: local healthz, cache healthz, mDNS, UDP broadcast, subnet sweep
// ABOUTME: Adapted from the Sendspin mDNS Manager (browse loop, local-IP detection); stages 1/2/4/5 are new
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/betterclock/betterclock-go/internal/discoverycache"
	"github.com/betterclock/betterclock-go/internal/netinfo"
	"github.com/betterclock/betterclock-go/internal/subnetsweep"
	"github.com/betterclock/betterclock-go/internal/wire"
	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/mdns"
)

// Engine runs the staged discovery probes described in SPEC_FULL.md §4.7.
type Engine struct {
	cfg   Config
	cache *discoverycache.Cache
}

// NewEngine builds an Engine. cache may be nil, which behaves as if
// UseCache were false regardless of cfg.UseCache.
func NewEngine(cfg Config, cache *discoverycache.Cache) *Engine {
	return &Engine{cfg: cfg, cache: cache}
}

// Scan runs every enabled stage in order 1→5. When stopOnFirst is true, the
// engine returns as soon as a stage succeeds, marking the remaining stages
// "skipped"; otherwise it always runs every enabled stage, producing a full
// diagnostic report. Stages disabled by config are always recorded as
// "skipped" regardless of stopOnFirst.
func (e *Engine) Scan(ctx context.Context, stopOnFirst bool) wire.ScanReport {
	started := time.Now()
	report := wire.ScanReport{
		StartedUnixMS:    started.UnixMilli(),
		LocalFirst:       e.cfg.LocalFirst,
		MDNSFirst:        e.cfg.MDNSFirst,
		UseCache:         e.cfg.UseCache,
		SubnetSweep:      e.cfg.SubnetSweep,
		SweepPrefix:      e.cfg.SweepPrefix,
		SweepCIDR:        e.cfg.SweepCIDR,
		SweepMaxHosts:    e.cfg.SweepMaxHosts,
		SweepWorkers:     e.cfg.SweepWorkers,
		Retries:          e.cfg.Retries,
		TimeoutSeconds:   e.cfg.TimeoutSeconds,
		BroadcastAddress: e.cfg.BroadcastAddress,
	}
	if e.cache != nil {
		report.CachePath = e.cache.Path()
	}

	stages := []struct {
		name    string
		enabled bool
		run     func(context.Context) (wire.DiscoveryResult, string, bool)
	}{
		{"local-healthz", e.cfg.LocalFirst, e.runLocalHealthz},
		{"cache-healthz", e.cfg.UseCache && e.cache != nil, e.runCacheHealthz},
		{"mdns", e.cfg.MDNSFirst, e.runMDNS},
		{"udp-broadcast", true, e.runUDPBroadcast},
		{"subnet-sweep", e.cfg.SubnetSweep, e.runSubnetSweep},
	}

	succeeded := false
	for _, stage := range stages {
		if succeeded || !stage.enabled {
			status := wire.StepSkipped
			if !stage.enabled {
				report.Steps = append(report.Steps, wire.ScanStep{Step: stage.name, Status: status, Message: "disabled by configuration"})
			} else {
				report.Steps = append(report.Steps, wire.ScanStep{Step: stage.name, Status: status, Message: "skipped: earlier stage already succeeded"})
			}
			continue
		}

		stepStart := time.Now()
		result, message, ok := stage.run(ctx)
		elapsed := time.Since(stepStart).Milliseconds()

		if ok {
			report.Steps = append(report.Steps, wire.ScanStep{
				Step: stage.name, Status: wire.StepOK, ElapsedMS: elapsed, Message: message,
				Via: result.Via, BaseURL: result.BaseURL, IP: result.IP, Port: result.Port,
			})
			report.Selected = &result
			if e.cache != nil {
				e.cache.Save(result, time.Now().UnixMilli())
			}
			if stopOnFirst {
				succeeded = true
			}
		} else {
			report.Steps = append(report.Steps, wire.ScanStep{Step: stage.name, Status: wire.StepFail, ElapsedMS: elapsed, Message: message})
		}
	}

	finished := time.Now()
	report.FinishedUnixMS = finished.UnixMilli()
	report.ElapsedMS = finished.Sub(started).Milliseconds()
	return report
}

func (e *Engine) runLocalHealthz(ctx context.Context) (wire.DiscoveryResult, string, bool) {
	timeout := time.Duration(e.cfg.localHealthzTimeoutSeconds() * float64(time.Second))
	ok := probeHealthz(ctx, "127.0.0.1", e.cfg.Port, timeout)
	if !ok {
		return wire.DiscoveryResult{}, "no response from 127.0.0.1", false
	}
	return wire.DiscoveryResult{
		BaseURL: fmt.Sprintf("http://127.0.0.1:%d", e.cfg.Port),
		IP:      "127.0.0.1",
		Port:    e.cfg.Port,
		Service: "betterclock",
		Version: 1,
		Via:     wire.ViaLocalHealthz,
	}, "healthy on localhost", true
}

func (e *Engine) runCacheHealthz(ctx context.Context) (wire.DiscoveryResult, string, bool) {
	cached, ok := e.cache.Load()
	if !ok {
		return wire.DiscoveryResult{}, "no cached entry", false
	}
	timeout := time.Duration(e.cfg.localHealthzTimeoutSeconds() * float64(time.Second))
	if !probeHealthz(ctx, cached.IP, cached.Port, timeout) {
		return wire.DiscoveryResult{}, fmt.Sprintf("cached server %s unresponsive", cached.BaseURL), false
	}
	cached.Via = wire.ViaCacheHealthz
	return cached, fmt.Sprintf("reused cached server %s", cached.BaseURL), true
}

func (e *Engine) runMDNS(ctx context.Context) (wire.DiscoveryResult, string, bool) {
	timeout := time.Duration(e.cfg.TimeoutSeconds * float64(time.Second))
	entries := make(chan *mdns.ServiceEntry, 8)

	done := make(chan wire.DiscoveryResult, 1)
	go func() {
		for entry := range entries {
			if entry.AddrV4 == nil || entry.Port <= 0 {
				continue
			}
			version := parseMDNSVersion(entry.InfoFields)
			select {
			case done <- wire.DiscoveryResult{
				BaseURL: fmt.Sprintf("http://%s:%d", entry.AddrV4.String(), entry.Port),
				IP:      entry.AddrV4.String(),
				Port:    entry.Port,
				Service: "betterclock",
				Version: version,
				Via:     wire.ViaMDNS,
			}:
			default:
			}
		}
	}()

	queryErr := make(chan error, 1)
	go func() {
		queryErr <- mdns.Query(&mdns.QueryParam{
			Service: MDNSServiceType,
			Domain:  "local",
			Timeout: timeout,
			Entries: entries,
		})
		close(entries)
	}()

	select {
	case result := <-done:
		return result, "mDNS responder found", true
	case err := <-queryErr:
		if err != nil {
			return wire.DiscoveryResult{}, "no mDNS response (multicast socket unavailable on this host)", false
		}
		select {
		case result := <-done:
			return result, "mDNS responder found", true
		default:
			return wire.DiscoveryResult{}, "no mDNS response within timeout", false
		}
	case <-ctx.Done():
		return wire.DiscoveryResult{}, "scan cancelled", false
	}
}

func parseMDNSVersion(txt []string) int {
	for _, field := range txt {
		if strings.HasPrefix(field, "version=") {
			if v, err := strconv.Atoi(strings.TrimPrefix(field, "version=")); err == nil {
				return v
			}
			break
		}
	}
	return 1
}

type udpProbeResponse struct {
	Service string `json:"service"`
	APIPort int    `json:"api_port"`
	Version int    `json:"version"`
}

func (e *Engine) runUDPBroadcast(ctx context.Context) (wire.DiscoveryResult, string, bool) {
	var winner wire.DiscoveryResult
	var message string

	attempt := 0
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), uint64(maxInt(0, e.cfg.Retries-1)))
	op := func() error {
		attempt++
		result, msg, ok := e.broadcastOnce(ctx)
		message = msg
		if ok {
			winner = result
			return nil
		}
		return fmt.Errorf("attempt %d: %s", attempt, msg)
	}

	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return wire.DiscoveryResult{}, fmt.Sprintf("no broadcast reply after %d attempts: %s", attempt, message), false
	}
	return winner, message, true
}

func (e *Engine) broadcastOnce(ctx context.Context) (wire.DiscoveryResult, string, bool) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return wire.DiscoveryResult{}, err.Error(), false
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Duration(e.cfg.TimeoutSeconds * float64(time.Second)))
	conn.SetDeadline(deadline)

	token := []byte(UDPProbeToken)
	targets := []string{
		fmt.Sprintf("%s:%d", e.cfg.BroadcastAddress, e.cfg.Port),
		fmt.Sprintf("127.0.0.1:%d", e.cfg.Port),
	}
	for _, target := range targets {
		addr, err := net.ResolveUDPAddr("udp4", target)
		if err != nil {
			continue
		}
		conn.WriteToUDP(token, addr)
	}

	buf := make([]byte, 2048)
	for {
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			return wire.DiscoveryResult{}, err.Error(), false
		}
		var payload udpProbeResponse
		if err := json.Unmarshal(buf[:n], &payload); err != nil {
			continue
		}
		if payload.Service != "betterclock" || payload.APIPort <= 0 {
			continue
		}
		return wire.DiscoveryResult{
			BaseURL: fmt.Sprintf("http://%s:%d", remote.IP.String(), payload.APIPort),
			IP:      remote.IP.String(),
			Port:    payload.APIPort,
			Service: payload.Service,
			Version: orDefault(payload.Version, 1),
			Via:     wire.ViaUDPBroadcast,
		}, "broadcast reply received", true
	}
}

func (e *Engine) runSubnetSweep(ctx context.Context) (wire.DiscoveryResult, string, bool) {
	lanIP := netinfo.DetectLANIP()
	if lanIP == nil {
		return wire.DiscoveryResult{}, "no LAN IP detected", false
	}

	candidates, _ := subnetsweep.BuildCandidates(*lanIP, e.cfg.SweepMaxHosts, e.cfg.SweepPrefix, e.cfg.SweepCIDR)
	if len(candidates) == 0 {
		return wire.DiscoveryResult{}, "no sweep candidates", false
	}

	client := &http.Client{Timeout: subnetsweep.PerHostTimeout(e.cfg.TimeoutSeconds)}
	result := subnetsweep.Sweep(ctx, candidates, e.cfg.SweepWorkers, subnetsweep.HealthzProber(client, e.cfg.Port))
	if !result.Found {
		return wire.DiscoveryResult{}, result.Message, false
	}
	return wire.DiscoveryResult{
		BaseURL: fmt.Sprintf("http://%s:%d", result.WinnerIP, e.cfg.Port),
		IP:      result.WinnerIP,
		Port:    e.cfg.Port,
		Service: "betterclock",
		Version: 1,
		Via:     wire.ViaSubnetSweep,
	}, result.Message, true
}

func probeHealthz(ctx context.Context, ip string, port int, timeout time.Duration) bool {
	client := &http.Client{Timeout: timeout}
	url := fmt.Sprintf("http://%s:%d/healthz", ip, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	return strings.ToLower(strings.TrimSpace(string(buf[:n]))) == "ok"
}

func orDefault(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
