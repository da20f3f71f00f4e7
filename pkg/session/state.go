package session

import (
	"time"

	"github.com/harun/wagate/pkg/whatsapp"
)

// State is the lifecycle state of one user's session
type State string

const (
	// StateInitializing means the browser session is starting up
	StateInitializing State = "initializing"
	// StateAwaitingScan means a QR challenge is pending out-of-band scan
	StateAwaitingScan State = "awaiting_scan"
	// StateReady means the session is authenticated and can send messages
	StateReady State = "ready"
	// StateAuthFailed means stored credentials were rejected
	StateAuthFailed State = "auth_failed"
	// StateDisconnected means the transport dropped; re-init or logout required
	StateDisconnected State = "disconnected"
)

// Record is the mutable session state for one user. Access goes through
// the Store, which serializes mutations per user.
type Record struct {
	UserID     string
	Client     whatsapp.Client
	State      State
	LastQR     string
	LastQRTime time.Time
	Account    *whatsapp.Account
}

// Snapshot is a point-in-time copy of a Record, safe to hand to callers
type Snapshot struct {
	UserID     string
	State      State
	LastQR     string
	LastQRTime time.Time
	Account    *whatsapp.Account
	HasClient  bool
}

// Ready reports whether the snapshot is in the authenticated state
func (s Snapshot) Ready() bool {
	return s.State == StateReady
}

func snapshotOf(r *Record) Snapshot {
	snap := Snapshot{
		UserID:     r.UserID,
		State:      r.State,
		LastQR:     r.LastQR,
		LastQRTime: r.LastQRTime,
		HasClient:  r.Client != nil,
	}
	if r.Account != nil {
		account := *r.Account
		snap.Account = &account
	}
	return snap
}
