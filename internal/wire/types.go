// ABOUTME: Wire-format DTOs exchanged with a BetterClock server
// ABOUTME: Mirrors the JSON payload shapes documented in the server's API
package wire

// DiscoveryVia records which discovery stage produced a DiscoveryResult.
type DiscoveryVia string

const (
	ViaLocalHealthz DiscoveryVia = "local-healthz"
	ViaCacheHealthz DiscoveryVia = "cache-healthz"
	ViaMDNS         DiscoveryVia = "mdns"
	ViaUDPBroadcast DiscoveryVia = "udp-broadcast"
	ViaSubnetSweep  DiscoveryVia = "subnet-sweep"
)

// StepStatus is the outcome of a single discovery stage.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFail    StepStatus = "fail"
	StepSkipped StepStatus = "skipped"
)

// DiscoveryResult identifies a server found on the LAN. Immutable once produced.
type DiscoveryResult struct {
	BaseURL string       `json:"base_url"`
	IP      string       `json:"ip"`
	Port    int          `json:"port"`
	Service string       `json:"service"`
	Version int          `json:"version"`
	Via     DiscoveryVia `json:"via"`
}

// ScanStep is one append-only entry in a ScanReport.
type ScanStep struct {
	Step      string       `json:"step"`
	Status    StepStatus   `json:"status"`
	ElapsedMS int64        `json:"elapsed_ms"`
	Message   string       `json:"message"`
	Via       DiscoveryVia `json:"via,omitempty"`
	BaseURL   string       `json:"base_url,omitempty"`
	IP        string       `json:"ip,omitempty"`
	Port      int          `json:"port,omitempty"`
}

// ScanReport is the aggregate diagnostic result of a full discovery scan.
type ScanReport struct {
	StartedUnixMS  int64             `json:"started_unix_ms"`
	FinishedUnixMS int64             `json:"finished_unix_ms"`
	ElapsedMS      int64             `json:"elapsed_ms"`
	Selected       *DiscoveryResult  `json:"selected"`
	Steps          []ScanStep        `json:"steps"`
	CachePath      string            `json:"cache_path"`

	// Effective configuration echo (spec.md §3).
	LocalFirst       bool    `json:"local_first"`
	MDNSFirst        bool    `json:"mdns_first"`
	UseCache         bool    `json:"use_cache"`
	SubnetSweep      bool    `json:"subnet_sweep"`
	SweepPrefix      int     `json:"sweep_prefix"`
	SweepCIDR        string  `json:"sweep_cidr,omitempty"`
	SweepMaxHosts    int     `json:"sweep_max_hosts"`
	SweepWorkers     int     `json:"sweep_workers"`
	Retries          int     `json:"retries"`
	TimeoutSeconds   float64 `json:"timeout_seconds"`
	BroadcastAddress string  `json:"broadcast_address"`
}

// RuntimeSnapshot mirrors the server's runtime payload.
type RuntimeSnapshot struct {
	ISOLocal           string `json:"iso_local"`
	Hour               int    `json:"hour"`
	Minute             int    `json:"minute"`
	Second             int    `json:"second"`
	SourceLabel        string `json:"source_label"`
	WarningEnabled     bool   `json:"warning_enabled"`
	WarningActiveCount int    `json:"warning_active_count"`
	WarningPulseOn     bool   `json:"warning_pulse_on"`
	WarningLeadTimeMS  int    `json:"warning_lead_time_ms"`
	WarningPulseTimeMS int    `json:"warning_pulse_time_ms"`
	TriggeredCount     int    `json:"triggered_count"`
	ArmedCount         int    `json:"armed_count"`
	UpdatedUnixMS      int64  `json:"updated_unix_ms"`
}

// StateResponse wraps a RuntimeSnapshot plus session counters and the
// four server-side timestamps used for clock correction.
type StateResponse struct {
	Runtime RuntimeSnapshot `json:"runtime"`

	ClientsSeen           int     `json:"clients_seen"`
	TotalRequests         int     `json:"total_requests"`
	TotalInBytes          int64   `json:"total_in_bytes"`
	TotalOutBytes         int64   `json:"total_out_bytes"`
	SessionInBytesPerSec  float64 `json:"session_in_bytes_per_sec"`
	SessionOutBytesPerSec float64 `json:"session_out_bytes_per_sec"`
	ServerStartedUnixMS   int64   `json:"server_started_unix_ms"`
	SessionFirstInUnixMS  int64   `json:"session_first_in_unix_ms"`
	SessionLastInUnixMS   int64   `json:"session_last_in_unix_ms"`
	SessionLastOutUnixMS  int64   `json:"session_last_out_unix_ms"`
	ClientDebugMode       bool    `json:"client_debug_mode"`

	RequestReceivedUnixMS int64  `json:"request_received_unix_ms"`
	ResponseUnixMS        int64  `json:"response_unix_ms"`
	ResponseSendUnixMS    int64  `json:"response_send_unix_ms"`
	ServerProcessingMS    int64  `json:"server_processing_ms"`
	ResponseISOLocal      string `json:"response_iso_local"`
}

// CorrectedTimeSnapshot is returned by Session.GetCorrectedTime.
type CorrectedTimeSnapshot struct {
	CorrectedUnixMS   int64         `json:"corrected_unix_ms"`
	CorrectedISOLocal string        `json:"corrected_iso_local"`
	Time12h           string        `json:"time_12h"`
	DateText          string        `json:"date_text"`
	RTTMS             float64       `json:"rtt_ms"`
	OffsetMS          float64       `json:"offset_ms"`
	DesyncMS          float64       `json:"desync_ms"`
	State             StateResponse `json:"state"`
}

// PublicClient describes a client as seen by the server's client registry.
type PublicClient struct {
	ID              string   `json:"id"`
	InstanceID      string   `json:"instance_id"`
	DebugMode       bool     `json:"debug_mode"`
	IP              string   `json:"ip"`
	RequestCount    int64    `json:"request_count"`
	FirstSeenUnixMS int64    `json:"first_seen_unix_ms"`
	LastSeenUnixMS  int64    `json:"last_seen_unix_ms"`
	LastRTTMS       *float64 `json:"last_rtt_ms"`
	LastOffsetMS    *float64 `json:"last_offset_ms"`
	LastDesyncMS    *float64 `json:"last_desync_ms"`
	FirstInUnixMS   int64    `json:"first_in_unix_ms"`
	LastInUnixMS    int64    `json:"last_in_unix_ms"`
	LastOutUnixMS   int64    `json:"last_out_unix_ms"`
	LastInBytes     int64    `json:"last_in_bytes"`
	LastOutBytes    int64    `json:"last_out_bytes"`
	TotalInBytes    int64    `json:"total_in_bytes"`
	TotalOutBytes   int64    `json:"total_out_bytes"`
	InBytesPerSec   float64  `json:"in_bytes_per_sec"`
	OutBytesPerSec  float64  `json:"out_bytes_per_sec"`
}

// ClientsResponse lists clients currently known to the server.
type ClientsResponse struct {
	Count   int            `json:"count"`
	Clients []PublicClient `json:"clients"`
}

// APIIndexResponse describes the server's discoverable endpoints.
type APIIndexResponse struct {
	APIBase        string `json:"api_base"`
	StateURL       string `json:"state_url"`
	ClientsURL     string `json:"clients_url"`
	HealthURL      string `json:"health_url"`
	RuntimeCodeURL string `json:"runtime_code_url"`
	DisconnectURL  string `json:"disconnect_url"`
	DebugURL       string `json:"debug_url"`
	OpenAPIURL     string `json:"openapi_url"`
}

// DisconnectResponse is returned after a client disconnect request.
type DisconnectResponse struct {
	Disconnected bool   `json:"disconnected"`
	ClientID     string `json:"client_id"`
	InstanceID   string `json:"instance_id"`
}

// ConnectionInfo describes the resolved connection endpoint.
type ConnectionInfo struct {
	Host         string  `json:"host"`
	Port         *int    `json:"port"`
	BaseURL      string  `json:"base_url"`
	Local        bool    `json:"local"`
	ConnectionIP *string `json:"connection_ip"`
}

// DeviceIPInfo reports local network identity for diagnostics.
type DeviceIPInfo struct {
	Hostname        string  `json:"hostname"`
	LoopbackIP      string  `json:"loopback_ip"`
	ResolvedLocalIP *string `json:"resolved_local_ip"`
	LANIP           *string `json:"lan_ip"`
	PublicIP        *string `json:"public_ip"`
}
