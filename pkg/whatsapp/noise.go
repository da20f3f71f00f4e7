package whatsapp

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Known noisy error classes emitted by the browser layer during teardown.
// Chrome can report these when a session is destroyed while the profile
// lock or the CDP websocket is still settling; they carry no signal for
// callers beyond "teardown raced resource release".
var noisePatterns = []string{
	"resource busy or locked",
	"lockfile",
	"connection closed",
	"use of closed network connection",
	"target closed",
	"session closed",
	"context canceled",
	"process already finished",
}

// IsTransportNoise reports whether err belongs to the known class of
// transient browser-teardown errors that should be logged and swallowed
// rather than surfaced. Classification lives here, at the adapter
// boundary, so callers never match on error strings themselves.
func IsTransportNoise(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range noisePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
