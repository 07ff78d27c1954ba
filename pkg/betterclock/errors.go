// ABOUTME: Public error taxonomy for the BetterClock client
// ABOUTME: Sentinel errors for session state, typed errors for discovery failure
package betterclock

import (
	"errors"
	"fmt"

	"github.com/betterclock/betterclock-go/internal/transport"
)

// ErrSessionClosed is returned by any Session operation after Disconnect,
// until Reconnect is called.
var ErrSessionClosed = errors.New("betterclock: session is disconnected")

// ErrInvalidArgument is returned for empty client names, invalid CIDRs, and
// similar caller mistakes.
var ErrInvalidArgument = errors.New("betterclock: invalid argument")

// NoServerDiscoveredError is returned by ConnectAuto when every enabled
// discovery stage failed.
type NoServerDiscoveredError struct {
	Port int
}

func (e *NoServerDiscoveredError) Error() string {
	return fmt.Sprintf("betterclock: no server discovered on port %d", e.Port)
}

// TransportError wraps a classified network failure from internal/transport.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

func wrapTransportError(err error) error {
	if err == nil {
		return nil
	}
	var te *transport.Error
	if errors.As(err, &te) {
		return &TransportError{Err: te}
	}
	return err
}
