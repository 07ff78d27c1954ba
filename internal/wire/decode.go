// ABOUTME: Tolerant decoding helpers for raw JSON server payloads
// ABOUTME: Numeric coercion with defaults; unknown/missing fields never fail a parse
package wire

import (
	"encoding/json"
	"math"
)

// rawMap is a loosely-typed JSON object, the Go analogue of the original
// client's practice of indexing into a parsed dict with defaults for
// every field instead of failing the whole parse.
type rawMap map[string]any

// ParseStateResponse decodes a /v1/state payload tolerantly: fields that are
// missing or of the wrong JSON type fall back to their zero value rather than
// producing a parse error.
func ParseStateResponse(body []byte) (StateResponse, error) {
	var raw rawMap
	if err := json.Unmarshal(body, &raw); err != nil {
		return StateResponse{}, err
	}
	return stateFromRaw(raw), nil
}

func stateFromRaw(raw rawMap) StateResponse {
	runtimeRaw, _ := raw["runtime"].(map[string]any)
	runtime := RuntimeSnapshot{
		ISOLocal:           toString(rawMap(runtimeRaw)["iso_local"]),
		Hour:               toInt(rawMap(runtimeRaw)["hour"], 0),
		Minute:             toInt(rawMap(runtimeRaw)["minute"], 0),
		Second:             toInt(rawMap(runtimeRaw)["second"], 0),
		SourceLabel:        toString(rawMap(runtimeRaw)["source_label"]),
		WarningEnabled:     toBool(rawMap(runtimeRaw)["warning_enabled"]),
		WarningActiveCount: toInt(rawMap(runtimeRaw)["warning_active_count"], 0),
		WarningPulseOn:     toBool(rawMap(runtimeRaw)["warning_pulse_on"]),
		WarningLeadTimeMS:  toInt(rawMap(runtimeRaw)["warning_lead_time_ms"], 0),
		WarningPulseTimeMS: toInt(rawMap(runtimeRaw)["warning_pulse_time_ms"], 0),
		TriggeredCount:     toInt(rawMap(runtimeRaw)["triggered_count"], 0),
		ArmedCount:         toInt(rawMap(runtimeRaw)["armed_count"], 0),
		UpdatedUnixMS:      toInt64(rawMap(runtimeRaw)["updated_unix_ms"], 0),
	}

	return StateResponse{
		Runtime:               runtime,
		ClientsSeen:           toInt(raw["clients_seen"], 0),
		TotalRequests:         toInt(raw["total_requests"], 0),
		TotalInBytes:          toInt64(raw["total_in_bytes"], 0),
		TotalOutBytes:         toInt64(raw["total_out_bytes"], 0),
		SessionInBytesPerSec:  orZero(toFloatOrNil(raw["session_in_bytes_per_sec"])),
		SessionOutBytesPerSec: orZero(toFloatOrNil(raw["session_out_bytes_per_sec"])),
		ServerStartedUnixMS:   toInt64(raw["server_started_unix_ms"], 0),
		SessionFirstInUnixMS:  toInt64(raw["session_first_in_unix_ms"], 0),
		SessionLastInUnixMS:   toInt64(raw["session_last_in_unix_ms"], 0),
		SessionLastOutUnixMS:  toInt64(raw["session_last_out_unix_ms"], 0),
		ClientDebugMode:       toBool(raw["client_debug_mode"]),
		RequestReceivedUnixMS: toInt64(raw["request_received_unix_ms"], 0),
		ResponseUnixMS:        toInt64(raw["response_unix_ms"], 0),
		ResponseSendUnixMS:    toInt64(raw["response_send_unix_ms"], 0),
		ServerProcessingMS:    toInt64(raw["server_processing_ms"], 0),
		ResponseISOLocal:      toString(raw["response_iso_local"]),
	}
}

// ParseClientsResponse decodes a /v1/clients payload tolerantly.
func ParseClientsResponse(body []byte) (ClientsResponse, error) {
	var raw rawMap
	if err := json.Unmarshal(body, &raw); err != nil {
		return ClientsResponse{}, err
	}

	itemsRaw, _ := raw["clients"].([]any)
	clients := make([]PublicClient, 0, len(itemsRaw))
	for _, item := range itemsRaw {
		m, _ := item.(map[string]any)
		im := rawMap(m)
		clients = append(clients, PublicClient{
			ID:              toString(im["id"]),
			InstanceID:      toString(im["instance_id"]),
			DebugMode:       toBool(im["debug_mode"]),
			IP:              toString(im["ip"]),
			RequestCount:    toInt64(im["request_count"], 0),
			FirstSeenUnixMS: toInt64(im["first_seen_unix_ms"], 0),
			LastSeenUnixMS:  toInt64(im["last_seen_unix_ms"], 0),
			LastRTTMS:       toFloatOrNil(im["last_rtt_ms"]),
			LastOffsetMS:    toFloatOrNil(im["last_offset_ms"]),
			LastDesyncMS:    toFloatOrNil(im["last_desync_ms"]),
			FirstInUnixMS:   toInt64(im["first_in_unix_ms"], 0),
			LastInUnixMS:    toInt64(im["last_in_unix_ms"], 0),
			LastOutUnixMS:   toInt64(im["last_out_unix_ms"], 0),
			LastInBytes:     toInt64(im["last_in_bytes"], 0),
			LastOutBytes:    toInt64(im["last_out_bytes"], 0),
			TotalInBytes:    toInt64(im["total_in_bytes"], 0),
			TotalOutBytes:   toInt64(im["total_out_bytes"], 0),
			InBytesPerSec:   orZero(toFloatOrNil(im["in_bytes_per_sec"])),
			OutBytesPerSec:  orZero(toFloatOrNil(im["out_bytes_per_sec"])),
		})
	}

	return ClientsResponse{
		Count:   toInt(raw["count"], len(clients)),
		Clients: clients,
	}, nil
}

// ParseAPIIndexResponse decodes a /v1 payload tolerantly.
func ParseAPIIndexResponse(body []byte) (APIIndexResponse, error) {
	var raw rawMap
	if err := json.Unmarshal(body, &raw); err != nil {
		return APIIndexResponse{}, err
	}
	return APIIndexResponse{
		APIBase:        toString(raw["api_base"]),
		StateURL:       toString(raw["state_url"]),
		ClientsURL:     toString(raw["clients_url"]),
		HealthURL:      toString(raw["health_url"]),
		RuntimeCodeURL: toString(raw["runtime_code_url"]),
		DisconnectURL:  toString(raw["disconnect_url"]),
		DebugURL:       toString(raw["debug_url"]),
		OpenAPIURL:     toString(raw["openapi_url"]),
	}, nil
}

// ParseDisconnectResponse decodes a /v1/client/disconnect payload tolerantly.
func ParseDisconnectResponse(body []byte) (DisconnectResponse, error) {
	var raw rawMap
	if err := json.Unmarshal(body, &raw); err != nil {
		return DisconnectResponse{}, err
	}
	return DisconnectResponse{
		Disconnected: toBool(raw["disconnected"]),
		ClientID:     toString(raw["client_id"]),
		InstanceID:   toString(raw["instance_id"]),
	}, nil
}

// ServerTimestampsMS extracts t2 (request received) and t3 (response sent)
// from a raw /v1/state payload, with the fallback chain described in
// spec.md §4.2: response_send_unix_ms -> response_unix_ms ->
// runtime.updated_unix_ms -> absent.
func ServerTimestampsMS(body []byte) (t2 *float64, t3 *float64) {
	var raw rawMap
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil
	}

	t2 = toFloatOrNil(raw["request_received_unix_ms"])

	t3 = toFloatOrNil(raw["response_send_unix_ms"])
	if t3 == nil {
		t3 = toFloatOrNil(raw["response_unix_ms"])
	}
	if t3 == nil {
		runtimeRaw, _ := raw["runtime"].(map[string]any)
		t3 = toFloatOrNil(rawMap(runtimeRaw)["updated_unix_ms"])
	}
	return t2, t3
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func toInt(v any, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return def
		}
		return int(i)
	case int:
		return n
	default:
		return def
	}
}

func toInt64(v any, def int64) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return def
		}
		return i
	case int64:
		return n
	default:
		return def
	}
}

// toFloatOrNil coerces a decoded JSON value to *float64, returning nil on
// any type mismatch or non-finite result, mirroring _to_float_or_none in
// the original client.
func toFloatOrNil(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func orZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
