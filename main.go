// ABOUTME: Entry point for the BetterClock client
// ABOUTME: Parses CLI flags, connects (auto/explicit/local), and polls corrected time
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/betterclock/betterclock-go/internal/discovery"
	"github.com/betterclock/betterclock-go/pkg/betterclock"
)

var (
	host     = flag.String("host", "", "Explicit server host (skip discovery)")
	port     = flag.Int("port", 8099, "Server port")
	local    = flag.Bool("local", false, "Shortcut for -host=127.0.0.1")
	clientID = flag.String("client-id", "", "Client identity (default: hostname-betterclock-client)")
	interval = flag.Duration("interval", 2*time.Second, "Poll interval")
	timeout  = flag.Duration("timeout", time.Second, "Per-request timeout")
	logFile  = flag.String("log-file", "betterclock-client.log", "Log file path")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(os.Stdout, f))

	name := *clientID
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		name = fmt.Sprintf("%s-betterclock-client", hostname)
	}

	session, err := connect(name)
	if err != nil {
		log.Fatalf("connect error: %v", err)
	}

	log.Printf("Connected as %s, polling every %s", name, *interval)
	log.Printf("Press Ctrl-C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			log.Printf("\nReceived %v signal, shutting down gracefully...", sig)
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), *timeout)
			snapshot, err := session.GetCorrectedTime(ctx)
			cancel()
			if err != nil {
				log.Printf("poll error: %v", err)
				continue
			}
			log.Printf("corrected=%s offset=%.2fms rtt=%.2fms desync=%.2fms",
				snapshot.CorrectedISOLocal, snapshot.OffsetMS, snapshot.RTTMS, snapshot.DesyncMS)
		}
	}
}

func connect(clientName string) (*betterclock.Session, error) {
	timeoutSeconds := timeout.Seconds()

	switch {
	case *host != "":
		return betterclock.Connect(*host, *port, clientName, timeoutSeconds)
	case *local:
		return betterclock.ConnectLocal(*port, clientName, timeoutSeconds)
	default:
		cfg := discovery.DefaultConfig(*port)
		cfg.TimeoutSeconds = timeoutSeconds
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return betterclock.ConnectAuto(ctx, cfg, clientName, timeoutSeconds)
	}
}
