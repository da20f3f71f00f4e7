// Package whatsapp adapts a headless-Chrome WhatsApp Web session behind a
// narrow Client interface so the session lifecycle code never touches
// browser internals directly.
package whatsapp

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Account describes the authenticated WhatsApp account behind a session
type Account struct {
	ID          string `json:"number"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// Handlers receive asynchronous session events. Callbacks for one client
// are invoked sequentially, in emission order.
type Handlers struct {
	OnQR           func(code string)
	OnReady        func(account Account)
	OnAuthFailure  func(reason string)
	OnDisconnected func(reason string)
}

// Client is one user's connection to WhatsApp Web
type Client interface {
	// Initialize starts the browser session and begins the login flow.
	// It returns once the session page is up; authentication progress is
	// reported through the registered handlers.
	Initialize(ctx context.Context) error

	// SetHandlers registers event callbacks. Must be called before
	// Initialize.
	SetHandlers(h Handlers)

	// DetachHandlers drops all event callbacks so late events cannot
	// reach a record that is being torn down.
	DetachHandlers()

	// SendMedia sends the file at path to the destination chat with an
	// optional caption. The session must be authenticated.
	SendMedia(ctx context.Context, destination, path, caption string) error

	// Info returns the authenticated account, or nil before readiness
	Info() *Account

	// Logout requests a graceful logout from WhatsApp Web
	Logout(ctx context.Context) error

	// Destroy force-closes the browser session and releases its resources
	Destroy() error
}

// Factory constructs a Client for a user
type Factory func(userID string) (Client, error)

// Options configures client construction
type Options struct {
	// AuthRoot is the directory holding per-user authentication stores
	AuthRoot string

	// ChromePath overrides browser discovery when non-empty
	ChromePath string

	Headless bool

	Logger zerolog.Logger
}

// NewFactory returns a Factory producing Chrome-backed clients
func NewFactory(opts Options) Factory {
	return func(userID string) (Client, error) {
		return newRodClient(userID, opts)
	}
}

// AuthStorePath returns the persisted authentication directory for a user
func AuthStorePath(authRoot, userID string) string {
	return filepath.Join(authRoot, "session-"+userID)
}
