// ABOUTME: Session is the public facade wiring transport, offset model, and discovery together
// ABOUTME: Grounded on the Resonate Player facade shape: config struct, New*/Connect* constructors, single-owner mutex
package betterclock

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/betterclock/betterclock-go/internal/discovery"
	"github.com/betterclock/betterclock-go/internal/discoverycache"
	"github.com/betterclock/betterclock-go/internal/netinfo"
	"github.com/betterclock/betterclock-go/internal/offsetmodel"
	"github.com/betterclock/betterclock-go/internal/timestampmath"
	"github.com/betterclock/betterclock-go/internal/transport"
	"github.com/betterclock/betterclock-go/internal/wire"
	"github.com/google/uuid"
)

// DefaultTimeoutSeconds is used when a caller passes <= 0.
const DefaultTimeoutSeconds = 1.0

// Session is a connection to one BetterClock server. It is not safe for
// concurrent use by multiple goroutines without external serialization
// (spec.md §5); the internal mutex exists to make that contract explicit
// rather than to support concurrent callers.
type Session struct {
	mu sync.Mutex

	exec  *transport.Executor
	model *offsetmodel.Model
	cache *discoverycache.Cache

	host    string
	port    int
	baseURL string
	local   bool

	clientID     string
	instanceID   string
	disconnected bool
}

// ConnectionInfo is returned by GetConnectionInfo.
type ConnectionInfo = wire.ConnectionInfo

// newSession builds the common Session skeleton shared by Connect,
// ConnectLocal, and ConnectAuto.
func newSession(host string, port int, local bool, clientID string, timeoutSeconds float64, cachePath string) (*Session, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrInvalidArgument
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}

	var cache *discoverycache.Cache
	if cachePath != "" {
		cache = discoverycache.New(cachePath)
	}

	return &Session{
		exec:       transport.New(timeoutSeconds),
		model:      offsetmodel.New(),
		cache:      cache,
		host:       host,
		port:       port,
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		local:      local,
		clientID:   clientID,
		instanceID: newInstanceID(),
	}, nil
}

// newInstanceID produces a client instance identifier: 16 lowercase hex
// chars, at the §3 ceiling of 16 (mirrors the original's
// `py-{uuid4().hex[:10]}` shortened-UUID convention).
func newInstanceID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// Connect builds a Session against an explicit host:port, performing no
// discovery.
func Connect(host string, port int, clientID string, timeoutSeconds float64) (*Session, error) {
	return newSession(host, port, host == "127.0.0.1" || host == "localhost", clientID, timeoutSeconds, discoverycache.DefaultPath())
}

// ConnectLocal is a shortcut for Connect("127.0.0.1", port, ...).
func ConnectLocal(port int, clientID string, timeoutSeconds float64) (*Session, error) {
	return newSession("127.0.0.1", port, true, clientID, timeoutSeconds, discoverycache.DefaultPath())
}

// ConnectAuto runs the Discovery Engine and connects to whatever it finds,
// failing with *NoServerDiscoveredError if every enabled stage fails.
func ConnectAuto(ctx context.Context, cfg discovery.Config, clientID string, timeoutSeconds float64) (*Session, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrInvalidArgument
	}
	if cfg.SweepCIDR != "" {
		if _, _, err := net.ParseCIDR(cfg.SweepCIDR); err != nil {
			return nil, ErrInvalidArgument
		}
	}
	cachePath := cfg.CachePath
	if cachePath == "" {
		cachePath = discoverycache.DefaultPath()
	}
	var cache *discoverycache.Cache
	if cfg.UseCache {
		cache = discoverycache.New(cachePath)
	}

	engine := discovery.NewEngine(cfg, cache)
	report := engine.Scan(ctx, true)
	if report.Selected == nil {
		return nil, &NoServerDiscoveredError{Port: cfg.Port}
	}

	return newSession(report.Selected.IP, report.Selected.Port, report.Selected.Via == wire.ViaLocalHealthz, clientID, timeoutSeconds, cachePath)
}

func (s *Session) guardOpen() error {
	if s.disconnected {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) identity() transport.Identity {
	id := transport.Identity{ClientID: s.clientID, InstanceID: s.instanceID}
	if s.model.Initialized() {
		id.OffsetInitialized = true
		id.RTTMS = s.model.RTTEWMAMS()
		id.OffsetMS = s.model.OffsetMS()
		id.DesyncMS = s.model.DesyncMS()
	}
	return id
}

func (s *Session) query() map[string]string {
	return map[string]string{"client_id": s.clientID, "instance_id": s.instanceID}
}

func (s *Session) fetch(ctx context.Context, path string, accept string) (transport.Result, error) {
	result, err := s.exec.Get(ctx, s.baseURL+path, accept, s.query(), true, s.identity())
	if err != nil {
		return transport.Result{}, wrapTransportError(err)
	}
	return result, nil
}

// GetState performs one fetch of /v1/state without touching the offset model.
func (s *Session) GetState(ctx context.Context) (wire.StateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOpen(); err != nil {
		return wire.StateResponse{}, err
	}

	result, err := s.fetch(ctx, "/v1/state", "application/json")
	if err != nil {
		return wire.StateResponse{}, err
	}
	return wire.ParseStateResponse(result.Body)
}

// GetCorrectedTime performs one fetch of /v1/state, feeds the resulting
// sample into the offset model, and returns the slewed corrected time.
func (s *Session) GetCorrectedTime(ctx context.Context) (wire.CorrectedTimeSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOpen(); err != nil {
		return wire.CorrectedTimeSnapshot{}, err
	}

	result, err := s.fetch(ctx, "/v1/state", "application/json")
	if err != nil {
		return wire.CorrectedTimeSnapshot{}, err
	}

	state, parseErr := wire.ParseStateResponse(result.Body)
	if parseErr != nil {
		return wire.CorrectedTimeSnapshot{}, parseErr
	}

	t2, t3 := wire.ServerTimestampsMS(result.Body)
	sample := timestampmath.Compute(float64(result.ClientSendMS), float64(result.ClientRecvMS), t2, t3, result.RTTWallMS)
	s.model.Update(sample)

	offsetMS := s.model.OffsetMS()
	correctedUnixMS := time.Now().UnixMilli() + int64(offsetMS)
	correctedTime := time.UnixMilli(correctedUnixMS)

	return wire.CorrectedTimeSnapshot{
		CorrectedUnixMS:   correctedUnixMS,
		CorrectedISOLocal: correctedTime.Format("2006-01-02T15:04:05.000"),
		Time12h:           correctedTime.Format("03:04:05 PM"),
		DateText:          correctedTime.Format("Monday, January 02 2006"),
		RTTMS:             s.model.RTTEWMAMS(),
		OffsetMS:          offsetMS,
		DesyncMS:          s.model.DesyncMS(),
		State:             state,
	}, nil
}

// GetClients fetches /v1/clients.
func (s *Session) GetClients(ctx context.Context) (wire.ClientsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOpen(); err != nil {
		return wire.ClientsResponse{}, err
	}
	result, err := s.fetch(ctx, "/v1/clients", "application/json")
	if err != nil {
		return wire.ClientsResponse{}, err
	}
	return wire.ParseClientsResponse(result.Body)
}

// GetAPIIndex fetches /v1.
func (s *Session) GetAPIIndex(ctx context.Context) (wire.APIIndexResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOpen(); err != nil {
		return wire.APIIndexResponse{}, err
	}
	result, err := s.fetch(ctx, "/v1", "application/json")
	if err != nil {
		return wire.APIIndexResponse{}, err
	}
	return wire.ParseAPIIndexResponse(result.Body)
}

// Healthz fetches /healthz and reports whether the body is "ok".
func (s *Session) Healthz(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOpen(); err != nil {
		return false, err
	}
	result, err := s.fetch(ctx, "/healthz", "text/plain")
	if err != nil {
		return false, err
	}
	return strings.ToLower(strings.TrimSpace(string(result.Body))) == "ok", nil
}

// GetRuntimeCode fetches /v1/client/code as raw UTF-8 text.
func (s *Session) GetRuntimeCode(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOpen(); err != nil {
		return "", err
	}
	result, err := s.fetch(ctx, "/v1/client/code", "text/plain")
	if err != nil {
		return "", err
	}
	return string(result.Body), nil
}

// GetOpenAPIYAML fetches /openapi.yaml verbatim.
func (s *Session) GetOpenAPIYAML(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOpen(); err != nil {
		return "", err
	}
	result, err := s.fetch(ctx, "/openapi.yaml", "application/yaml")
	if err != nil {
		return "", err
	}
	return string(result.Body), nil
}

// GetDebugHTML fetches /debug verbatim.
func (s *Session) GetDebugHTML(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOpen(); err != nil {
		return "", err
	}
	result, err := s.fetch(ctx, "/debug", "text/html")
	if err != nil {
		return "", err
	}
	return string(result.Body), nil
}

// Disconnect asks the server to drop this client. On success the Session
// flips to disconnected and every subsequent operation (other than
// Reconnect) fails with ErrSessionClosed.
func (s *Session) Disconnect(ctx context.Context) (wire.DisconnectResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardOpen(); err != nil {
		return wire.DisconnectResponse{}, err
	}

	result, err := s.fetch(ctx, "/v1/client/disconnect", "application/json")
	if err != nil {
		return wire.DisconnectResponse{}, err
	}
	resp, parseErr := wire.ParseDisconnectResponse(result.Body)
	if parseErr != nil {
		return wire.DisconnectResponse{}, parseErr
	}
	if resp.Disconnected {
		s.disconnected = true
	}
	return resp, nil
}

// Reconnect clears offset state, the sample window, and the disconnect
// flag. When newInstance is true a fresh instance_id is generated.
func (s *Session) Reconnect(newInstance bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Reset()
	s.disconnected = false
	if newInstance {
		s.instanceID = newInstanceID()
	}
}

// SetClientID replaces the client identity mid-session.
func (s *Session) SetClientID(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(name) == "" {
		return ErrInvalidArgument
	}
	s.clientID = name
	return nil
}

// GetConnectionIP returns the server host this Session talks to.
func (s *Session) GetConnectionIP() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host
}

// GetConnectionInfo describes the resolved connection endpoint.
func (s *Session) GetConnectionInfo() wire.ConnectionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	port := s.port
	lanIP := netinfo.DetectLANIP()
	return wire.ConnectionInfo{
		Host:         s.host,
		Port:         &port,
		BaseURL:      s.baseURL,
		Local:        s.local,
		ConnectionIP: lanIP,
	}
}

// GetPublicIP looks up this machine's public IP; nil on failure (never an error).
func (s *Session) GetPublicIP(ctx context.Context, timeout time.Duration) *string {
	return netinfo.LookupPublicIP(ctx, timeout)
}

// GetDeviceIPInfo reports local network identity for diagnostics.
func (s *Session) GetDeviceIPInfo(ctx context.Context) wire.DeviceIPInfo {
	hostname, _ := os.Hostname()
	return wire.DeviceIPInfo{
		Hostname:        hostname,
		LoopbackIP:      "127.0.0.1",
		ResolvedLocalIP: netinfo.ResolveHostnameIP(hostname),
		LANIP:           netinfo.DetectLANIP(),
		PublicIP:        netinfo.LookupPublicIP(ctx, time.Second),
	}
}
