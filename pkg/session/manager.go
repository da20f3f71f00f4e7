package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/wagate/internal/metrics"
	"github.com/harun/wagate/pkg/whatsapp"
)

var (
	// ErrMissingUserID is returned when an operation is called without a user id
	ErrMissingUserID = errors.New("userId is required")

	// ErrNoClient is returned when a send is attempted without a session handle
	ErrNoClient = errors.New("no client found for user")
)

// ManagerOptions configures a Manager
type ManagerOptions struct {
	// AuthRoot holds the per-user persisted authentication stores
	AuthRoot string

	// TeardownGrace is how long logout waits after destroying the client
	// before deleting the authentication store, so Chrome can release
	// its profile locks. Defaults to 500ms.
	TeardownGrace time.Duration

	Factory whatsapp.Factory
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Manager owns the per-user session lifecycle: creation, event-driven
// state transitions, readiness queries and teardown.
type Manager struct {
	store   *Store
	factory whatsapp.Factory
	opts    ManagerOptions
	logger  zerolog.Logger
	metrics *metrics.Metrics

	// opLocks serializes init and logout per user, so a logout issued
	// while an init is in flight waits for the client to be registered
	// and then tears it down, instead of the two racing. Entries are
	// refcounted and removed once the last holder releases, keeping the
	// map bounded by in-flight operations rather than users ever seen.
	opMu    sync.Mutex
	opLocks map[string]*userLock
}

// userLock is one entry in Manager.opLocks
type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a session manager
func NewManager(store *Store, opts ManagerOptions) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Factory == nil {
		return nil, fmt.Errorf("client factory is required")
	}
	if opts.TeardownGrace == 0 {
		opts.TeardownGrace = 500 * time.Millisecond
	}

	return &Manager{
		store:   store,
		factory: opts.Factory,
		opts:    opts,
		logger:  opts.Logger.With().Str("module", "session").Logger(),
		metrics: opts.Metrics,
		opLocks: make(map[string]*userLock),
	}, nil
}

func (m *Manager) lockUser(userID string) *userLock {
	m.opMu.Lock()
	lock, ok := m.opLocks[userID]
	if !ok {
		lock = &userLock{}
		m.opLocks[userID] = lock
	}
	lock.refs++
	m.opMu.Unlock()

	lock.mu.Lock()
	return lock
}

// unlockUser releases the per-user lock and prunes its map entry when
// no other operation holds or awaits it. A positive refcount pins the
// entry, so waiters always contend on the same mutex.
func (m *Manager) unlockUser(userID string, lock *userLock) {
	lock.mu.Unlock()

	m.opMu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.opLocks, userID)
	}
	m.opMu.Unlock()
}

// Init creates and starts a session for the user. It is idempotent: a
// user with a live client gets the existing handle back, and concurrent
// calls for the same user resolve to a single client.
func (m *Manager) Init(ctx context.Context, userID string) (whatsapp.Client, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	lock := m.lockUser(userID)
	defer m.unlockUser(userID, lock)

	if client, ok := m.store.Client(userID); ok {
		return client, nil
	}

	logger := m.logger.With().Str("user_id", userID).Logger()
	logger.Info().Msg("Initializing session")

	client, err := m.factory(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	// The absence check above ran under the same per-user lock, and
	// every registered record carries a client until Logout removes it.
	if !m.store.Create(userID, client) {
		return nil, fmt.Errorf("session record already exists for %s", userID)
	}

	client.SetHandlers(m.handlersFor(userID, logger))

	if err := client.Initialize(ctx); err != nil {
		client.DetachHandlers()
		if derr := client.Destroy(); derr != nil && !whatsapp.IsTransportNoise(derr) {
			logger.Warn().Err(derr).Msg("Destroy after failed init errored")
		}
		m.store.Remove(userID)
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	if m.metrics != nil {
		m.metrics.SessionsCreatedTotal.Inc()
		m.metrics.SessionsActive.Set(float64(m.store.Len()))
	}

	return client, nil
}

// handlersFor wires client events to state transitions. The store
// serializes mutations per user, so transitions apply in emission order.
func (m *Manager) handlersFor(userID string, logger zerolog.Logger) whatsapp.Handlers {
	return whatsapp.Handlers{
		OnQR: func(code string) {
			m.store.Mutate(userID, func(r *Record) {
				r.State = StateAwaitingScan
				r.LastQR = code
				r.LastQRTime = time.Now()
				r.Account = nil
			})
			if m.metrics != nil {
				m.metrics.QRGeneratedTotal.Inc()
			}
			logger.Info().Msg("QR challenge stored")
		},
		OnReady: func(account whatsapp.Account) {
			m.store.Mutate(userID, func(r *Record) {
				r.State = StateReady
				r.LastQR = ""
				r.LastQRTime = time.Time{}
				r.Account = &account
			})
			logger.Info().Str("account", account.ID).Msg("Session ready")
		},
		OnAuthFailure: func(reason string) {
			m.store.Mutate(userID, func(r *Record) {
				r.State = StateAuthFailed
				r.LastQR = ""
				r.LastQRTime = time.Time{}
				r.Account = nil
			})
			logger.Error().Str("reason", reason).Msg("Session auth failure")
		},
		OnDisconnected: func(reason string) {
			m.store.Mutate(userID, func(r *Record) {
				r.State = StateDisconnected
				r.LastQR = ""
				r.LastQRTime = time.Time{}
				r.Account = nil
			})
			logger.Warn().Str("reason", reason).Msg("Session disconnected")
		},
	}
}

// Logout tears the session down and deletes its persisted authentication
// store. Teardown failures are logged and swallowed: the record is
// removed and the on-disk artifacts attempted-deleted regardless.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}

	lock := m.lockUser(userID)
	defer m.unlockUser(userID, lock)

	logger := m.logger.With().Str("user_id", userID).Logger()

	if client, ok := m.store.Client(userID); ok {
		client.DetachHandlers()

		if err := client.Logout(ctx); err != nil {
			if whatsapp.IsTransportNoise(err) {
				logger.Warn().Err(err).Msg("Ignored transport noise during logout")
			} else {
				logger.Warn().Err(err).Msg("Logout call errored (ignored)")
			}
		}

		if err := client.Destroy(); err != nil {
			if whatsapp.IsTransportNoise(err) {
				logger.Warn().Err(err).Msg("Ignored transport noise during destroy")
			} else {
				logger.Warn().Err(err).Msg("Destroy call errored (ignored)")
			}
		}
	}

	m.store.Remove(userID)

	// Give Chrome a moment to release profile locks before deleting
	// the authentication store.
	time.Sleep(m.opts.TeardownGrace)

	authDir := whatsapp.AuthStorePath(m.opts.AuthRoot, userID)
	if err := os.RemoveAll(authDir); err != nil {
		logger.Warn().Err(err).Str("path", authDir).Msg("Failed to delete auth store (ignored)")
	} else {
		logger.Info().Str("path", authDir).Msg("Auth store deleted")
	}

	if m.metrics != nil {
		m.metrics.LogoutsTotal.Inc()
		m.metrics.SessionsActive.Set(float64(m.store.Len()))
	}

	logger.Info().Msg("Session logged out")
	return nil
}

// Status returns a snapshot of the user's session, if one exists
func (m *Manager) Status(userID string) (Snapshot, bool) {
	return m.store.Get(userID)
}

// SessionCount returns the number of registered sessions
func (m *Manager) SessionCount() int {
	return m.store.Len()
}

// ClientFor returns the user's client handle, or ErrNoClient
func (m *Manager) ClientFor(userID string) (whatsapp.Client, error) {
	client, ok := m.store.Client(userID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoClient, userID)
	}
	return client, nil
}

// WaitForReady polls the store until the session is ready, the timeout
// elapses or ctx is done. It never fails on timeout; callers inspect the
// returned snapshot. Polling is acceptable here: the handshake it waits
// on is human-paced.
func (m *Manager) WaitForReady(ctx context.Context, userID string, timeout, poll time.Duration) (Snapshot, bool) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		snap, ok := m.store.Get(userID)
		if ok && snap.Ready() {
			return snap, true
		}

		select {
		case <-ctx.Done():
			return snap, ok
		case <-deadline.C:
			return snap, ok
		case <-ticker.C:
		}
	}
}
