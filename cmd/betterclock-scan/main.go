// ABOUTME: Entry point for the betterclock-scan diagnostic CLI
// ABOUTME: Runs the Discovery Engine and prints a human-readable scan report
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/betterclock/betterclock-go/internal/discovery"
	"github.com/betterclock/betterclock-go/internal/discoverycache"
)

var (
	port        = flag.Int("port", 8099, "Server port to probe")
	timeout     = flag.Duration("timeout", time.Second, "Per-stage timeout")
	retries     = flag.Int("retries", 3, "UDP broadcast retry attempts")
	noCache     = flag.Bool("no-cache", false, "Disable the cache-healthz stage")
	noMDNS      = flag.Bool("no-mdns", false, "Disable the mDNS stage")
	noSweep     = flag.Bool("no-sweep", false, "Disable the subnet-sweep stage")
	sweepPrefix = flag.Int("sweep-prefix", discovery.DefaultConfig(0).SweepPrefix, "Subnet sweep prefix length [8,30]")
	sweepCIDR   = flag.String("sweep-cidr", "", "Explicit CIDR for subnet sweep (overrides -sweep-prefix)")
	fullScan    = flag.Bool("full-scan", false, "Run every enabled stage instead of stopping at first success")
)

func main() {
	flag.Parse()

	cfg := discovery.DefaultConfig(*port)
	cfg.TimeoutSeconds = timeout.Seconds()
	cfg.Retries = *retries
	cfg.UseCache = !*noCache
	cfg.MDNSFirst = !*noMDNS
	cfg.SubnetSweep = !*noSweep
	cfg.SweepPrefix = *sweepPrefix
	cfg.SweepCIDR = *sweepCIDR
	cfg.CachePath = discoverycache.DefaultPath()

	var cache *discoverycache.Cache
	if cfg.UseCache {
		cache = discoverycache.New(cfg.CachePath)
	}

	engine := discovery.NewEngine(cfg, cache)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report := engine.Scan(ctx, !*fullScan)
	fmt.Print(discovery.FormatScanReport(report))

	if report.Selected == nil {
		os.Exit(1)
	}
}
