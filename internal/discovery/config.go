// ABOUTME: Discovery Engine configuration and defaults
// ABOUTME: Field set mirrors the ScanReport effective-configuration echo in internal/wire
package discovery

import "github.com/betterclock/betterclock-go/internal/subnetsweep"

// MDNSServiceType is the mDNS service this client browses for.
const MDNSServiceType = "_betterclock._tcp"

// UDPProbeToken is the broadcast probe payload the server listens for.
const UDPProbeToken = "BETTERCLOCK_DISCOVER_V1"

// Config holds every tunable of a discovery run. Zero value is not usable;
// construct with DefaultConfig and override as needed.
type Config struct {
	Port             int
	TimeoutSeconds   float64
	Retries          int
	BroadcastAddress string

	LocalFirst  bool // enables stage 1 (local-healthz)
	MDNSFirst   bool // enables stage 3 (mdns)
	UseCache    bool // enables stage 2 (cache-healthz) and write-back on success
	SubnetSweep bool // enables stage 5 (subnet-sweep)

	SweepPrefix   int
	SweepCIDR     string
	SweepMaxHosts int
	SweepWorkers  int

	CachePath string
}

// DefaultConfig returns the spec-mandated defaults for a given server port.
func DefaultConfig(port int) Config {
	return Config{
		Port:             port,
		TimeoutSeconds:   1.0,
		Retries:          3,
		BroadcastAddress: "255.255.255.255",
		LocalFirst:       true,
		MDNSFirst:        true,
		UseCache:         true,
		SubnetSweep:      true,
		SweepPrefix:      subnetsweep.DefaultPrefix,
		SweepMaxHosts:    subnetsweep.DefaultMaxHosts,
		SweepWorkers:     subnetsweep.DefaultWorkers,
	}
}

func (c Config) localHealthzTimeoutSeconds() float64 {
	if c.TimeoutSeconds < 0.35 {
		return c.TimeoutSeconds
	}
	return 0.35
}
