// ABOUTME: CIDR candidate builder and bounded-concurrency /healthz probe pool
// ABOUTME: Candidate ordering ported from the original client's subnet sweep; pool is new infrastructure
package subnetsweep

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
)

// DefaultPrefix, DefaultMaxHosts, DefaultWorkers are the spec.md §4.8 defaults.
const (
	DefaultPrefix   = 24
	DefaultMaxHosts = 254
	DefaultWorkers  = 48
	minWorkers      = 4
)

// BuildCandidates enumerates host addresses in the target network (an
// explicit CIDR overrides prefix), partitions them into the LAN IP's own /24
// ("primary") and the remainder ("secondary"), concatenates primary then
// secondary, then reorders so the LAN IP itself comes first, followed by
// the x.y.z.1 gateway, followed by the rest in original order. Truncated to
// maxHosts. Returns (candidates, target network string); an invalid lanIP
// or cidr yields (nil, "").
func BuildCandidates(lanIP string, maxHosts int, prefix int, cidr string) ([]string, string) {
	localAddr := net.ParseIP(lanIP)
	if localAddr == nil || localAddr.To4() == nil {
		return nil, ""
	}

	var network *net.IPNet
	if cidr != "" {
		_, parsed, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, ""
		}
		network = parsed
	} else {
		if prefix < 8 {
			prefix = 8
		}
		if prefix > 30 {
			prefix = 30
		}
		_, parsed, err := net.ParseCIDR(fmt.Sprintf("%s/%d", lanIP, prefix))
		if err != nil {
			return nil, ""
		}
		network = parsed
	}
	if network.IP.To4() == nil {
		return nil, ""
	}

	_, same24, _ := net.ParseCIDR(fmt.Sprintf("%s/24", lanIP))

	var primary, secondary []string
	for _, host := range hostsIn(network) {
		if same24.Contains(host) {
			primary = append(primary, host.String())
		} else {
			secondary = append(secondary, host.String())
		}
	}

	candidates := append(primary, secondary...)
	if len(candidates) == 0 {
		return nil, network.String()
	}

	localText := localAddr.String()
	gateway := gatewayOf(localText)

	prioritized := make([]string, 0, len(candidates))
	remaining := make([]string, 0, len(candidates))
	hasLocal, hasGateway := false, false
	for _, c := range candidates {
		switch {
		case c == localText && !hasLocal:
			hasLocal = true
		case c == gateway && !hasGateway:
			hasGateway = true
		default:
			remaining = append(remaining, c)
		}
	}
	if hasLocal {
		prioritized = append(prioritized, localText)
	}
	if hasGateway {
		prioritized = append(prioritized, gateway)
	}
	prioritized = append(prioritized, remaining...)

	if maxHosts < 1 {
		maxHosts = 1
	}
	if len(prioritized) > maxHosts {
		prioritized = prioritized[:maxHosts]
	}
	return prioritized, network.String()
}

// hostsIn enumerates every usable host address in network. For /31 and /32
// this degenerates per spec.md §8: /31 yields no usable hosts (both
// addresses are network/broadcast-equivalent under classic semantics), /32
// yields the single address itself.
func hostsIn(network *net.IPNet) []net.IP {
	ones, bits := network.Mask.Size()
	base := network.IP.To4()
	if base == nil {
		return nil
	}

	if ones == 32 {
		return []net.IP{append(net.IP(nil), base...)}
	}
	if ones == 31 {
		return nil
	}

	total := uint32(1) << uint(bits-ones)
	baseInt := ipToUint32(base)
	hosts := make([]net.IP, 0, total-2)
	for i := uint32(1); i < total-1; i++ {
		hosts = append(hosts, uint32ToIP(baseInt+i))
	}
	return hosts
}

func ipToUint32(ip net.IP) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uint32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func gatewayOf(ip string) string {
	lastDot := -1
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == '.' {
			lastDot = i
			break
		}
	}
	if lastDot < 0 {
		return ip
	}
	return ip[:lastDot] + ".1"
}

// Prober checks whether a candidate IP's /healthz endpoint reports healthy.
type Prober func(ctx context.Context, candidateIP string) bool

// Result is what Sweep returns: either a winning candidate with a message
// describing how many hosts were scanned, or no winner with a failure
// message. Sweep never returns partial progress (spec.md §4.8).
type Result struct {
	WinnerIP string
	Found    bool
	Message  string
}

type probeOutcome struct {
	ip string
	ok bool
}

// Sweep probes candidates concurrently with a result-pool group sized
// max(minWorkers, min(workers, len(candidates))). Group.Wait is a barrier:
// it returns only once every submitted probe has returned. Cancelling
// sweepCtx as soon as a winner is known has two effects: any probe that has
// not yet started its request observes the cancellation at the select below
// and returns immediately instead of dialing out, and a probe already
// mid-flight receives sweepCtx, so a prober that builds its request on that
// context (HealthzProber does) has its round trip aborted.
func Sweep(ctx context.Context, candidates []string, workers int, probe Prober) Result {
	if len(candidates) == 0 {
		return Result{Found: false, Message: "no candidates to scan"}
	}

	workerCount := workers
	if workerCount > len(candidates) {
		workerCount = len(candidates)
	}
	if workerCount < minWorkers {
		workerCount = minWorkers
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := pond.NewResultPool[probeOutcome](workerCount)
	group := pool.NewGroupContext(sweepCtx)

	for _, candidateIP := range candidates {
		ip := candidateIP
		group.SubmitErr(func() (probeOutcome, error) {
			select {
			case <-sweepCtx.Done():
				return probeOutcome{ip: ip}, nil
			default:
			}
			ok := probe(sweepCtx, ip)
			if ok {
				cancel()
			}
			return probeOutcome{ip: ip, ok: ok}, nil
		})
	}

	outcomes, err := group.Wait()
	if err != nil {
		return Result{Found: false, Message: fmt.Sprintf("scan error: %v", err)}
	}

	scanned := 0
	for _, out := range outcomes {
		scanned++
		if out.ok {
			return Result{
				WinnerIP: out.ip,
				Found:    true,
				Message:  fmt.Sprintf("found server after scanning %d/%d hosts", scanned, len(candidates)),
			}
		}
	}

	return Result{Found: false, Message: fmt.Sprintf("no host responded (%d hosts scanned)", len(candidates))}
}

// PerHostTimeout is the per-candidate healthz probe timeout described in
// spec.md §4.8: min(0.25, max(0.08, userTimeoutSeconds*0.35)).
func PerHostTimeout(userTimeoutSeconds float64) time.Duration {
	t := userTimeoutSeconds * 0.35
	if t < 0.08 {
		t = 0.08
	}
	if t > 0.25 {
		t = 0.25
	}
	return time.Duration(t * float64(time.Second))
}

// HealthzProber builds a Prober that performs a real /healthz GET.
func HealthzProber(client *http.Client, port int) Prober {
	return func(ctx context.Context, candidateIP string) bool {
		url := fmt.Sprintf("http://%s:%d/healthz", candidateIP, port)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false
		}
		req.Header.Set("Accept", "text/plain")

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
}
