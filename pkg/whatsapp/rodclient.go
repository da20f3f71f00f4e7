package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

const (
	webURL          = "https://web.whatsapp.com"
	pageLoadTimeout = 90 * time.Second
	probeInterval   = 1500 * time.Millisecond
)

// probeStateJS inspects the WhatsApp Web page and reports the login
// phase. The QR challenge is exposed through the data-ref attribute of
// the code container; the chat sidebar only exists once authenticated.
const probeStateJS = `() => {
	const qrEl = document.querySelector('div[data-ref]');
	if (qrEl && qrEl.getAttribute('data-ref')) {
		return { state: 'qr', qr: qrEl.getAttribute('data-ref') };
	}
	if (document.querySelector('[data-animate-modal-popup] [role="alert"]')) {
		return { state: 'auth_failure' };
	}
	if (document.querySelector('#side') || document.querySelector('[aria-label="Chat list"]')) {
		return { state: 'ready' };
	}
	return { state: 'loading' };
}`

// readAccountJS pulls the authenticated identity out of local storage
const readAccountJS = `() => {
	const strip = (v) => (v || '').replace(/"/g, '');
	return {
		wid: strip(localStorage.getItem('last-wid-md') || localStorage.getItem('last-wid')),
		name: strip(localStorage.getItem('push-name')),
	};
}`

// sendMediaJS hands a base64 payload to the page's internal message
// store. Relies on WhatsApp Web internals, same as every headless bridge.
const sendMediaJS = `async (chatId, b64, caption) => {
	if (!window.WAStoreReady && !window.Store) {
		throw new Error('message store not available');
	}
	return await window.Store.sendVideoMessage(chatId, b64, caption || '');
}`

// logoutJS asks the page to drop its credentials
const logoutJS = `() => {
	if (window.Store && window.Store.AppState) {
		return window.Store.AppState.logout();
	}
	localStorage.clear();
}`

// rodClient drives one WhatsApp Web session through headless Chrome
type rodClient struct {
	userID  string
	authDir string
	opts    Options
	logger  zerolog.Logger

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	handlers Handlers
	account  *Account
	phase    string
	lastQR   string
}

func newRodClient(userID string, opts Options) (Client, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &rodClient{
		userID:  userID,
		authDir: AuthStorePath(opts.AuthRoot, userID),
		opts:    opts,
		logger:  opts.Logger.With().Str("module", "whatsapp").Str("user_id", userID).Logger(),
		ctx:     ctx,
		cancel:  cancel,
		phase:   "loading",
	}, nil
}

// SetHandlers registers event callbacks
func (c *rodClient) SetHandlers(h Handlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

// DetachHandlers drops all event callbacks
func (c *rodClient) DetachHandlers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = Handlers{}
}

// Initialize launches Chrome, opens WhatsApp Web and starts the event
// watcher. Authentication progress arrives via handlers afterwards.
func (c *rodClient) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(c.authDir, 0755); err != nil {
		return fmt.Errorf("failed to create auth store: %w", err)
	}

	l := launcher.New().
		Headless(c.opts.Headless).
		UserDataDir(c.authDir).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-extensions")

	if path := DetectChromePath(c.opts.ChromePath); path != "" {
		l = l.Bin(path)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	c.mu.Lock()
	c.launcher = l
	c.mu.Unlock()

	browser := rod.New().ControlURL(controlURL).Context(c.ctx)
	if err := browser.Connect(); err != nil {
		c.teardownBrowser()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	c.mu.Lock()
	c.browser = browser
	c.mu.Unlock()

	page, err := browser.Page(proto.TargetCreateTarget{URL: webURL})
	if err != nil {
		c.teardownBrowser()
		return fmt.Errorf("failed to open session page: %w", err)
	}
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()

	if err := page.Timeout(pageLoadTimeout).WaitLoad(); err != nil {
		c.teardownBrowser()
		return fmt.Errorf("session page load timed out: %w", err)
	}

	c.logger.Info().Msg("Session page loaded, watching for login events")

	go c.watch()

	return nil
}

// watch is the single event loop for this session. All handler
// invocations happen here, so events are applied strictly in order.
func (c *rodClient) watch() {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	probeFailures := 0

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		state, qr, err := c.probe()
		if err != nil {
			probeFailures++
			// The page disappearing mid-session means the transport is
			// gone; a couple of failed probes in a row is the signal.
			if probeFailures >= 3 {
				c.transitionDisconnected("browser connection lost")
				return
			}
			continue
		}
		probeFailures = 0

		switch state {
		case "qr":
			c.transitionQR(qr)
		case "ready":
			c.transitionReady()
		case "auth_failure":
			c.transitionAuthFailure("stored credentials rejected")
		case "loading":
			c.maybeDisconnected()
		}
	}
}

// activePage returns the session page, or nil once teardown has begun
func (c *rodClient) activePage() *rod.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

func (c *rodClient) probe() (state, qr string, err error) {
	page := c.activePage()
	if page == nil {
		return "", "", fmt.Errorf("session page is gone")
	}

	obj, err := page.Eval(probeStateJS)
	if err != nil {
		return "", "", err
	}
	return obj.Value.Get("state").Str(), obj.Value.Get("qr").Str(), nil
}

func (c *rodClient) transitionQR(code string) {
	c.mu.Lock()
	wasReady := c.phase == "ready"
	changed := code != c.lastQR
	c.lastQR = code
	c.phase = "qr"
	if wasReady {
		c.account = nil
	}
	onQR := c.handlers.OnQR
	onDisconnected := c.handlers.OnDisconnected
	c.mu.Unlock()

	// A QR screen replacing an authenticated session means the remote
	// end revoked it.
	if wasReady {
		c.logger.Warn().Msg("Session dropped back to QR screen")
		if onDisconnected != nil {
			onDisconnected("session revoked")
		}
		return
	}

	if changed {
		c.logger.Info().Msg("QR challenge received")
		if onQR != nil {
			onQR(code)
		}
	}
}

func (c *rodClient) transitionReady() {
	c.mu.Lock()
	alreadyReady := c.phase == "ready"
	c.mu.Unlock()
	if alreadyReady {
		return
	}

	account := c.readAccount()

	c.mu.Lock()
	c.phase = "ready"
	c.lastQR = ""
	c.account = &account
	onReady := c.handlers.OnReady
	c.mu.Unlock()

	c.logger.Info().Str("account", account.ID).Msg("Session authenticated")
	if onReady != nil {
		onReady(account)
	}
}

func (c *rodClient) transitionAuthFailure(reason string) {
	c.mu.Lock()
	if c.phase == "auth_failure" {
		c.mu.Unlock()
		return
	}
	c.phase = "auth_failure"
	c.account = nil
	onAuthFailure := c.handlers.OnAuthFailure
	c.mu.Unlock()

	c.logger.Error().Str("reason", reason).Msg("Authentication failure")
	if onAuthFailure != nil {
		onAuthFailure(reason)
	}
}

// maybeDisconnected handles an authenticated page falling back to the
// loading screen, which happens on network loss.
func (c *rodClient) maybeDisconnected() {
	c.mu.Lock()
	wasReady := c.phase == "ready"
	c.mu.Unlock()
	if wasReady {
		c.transitionDisconnected("connection lost")
	}
}

func (c *rodClient) transitionDisconnected(reason string) {
	c.mu.Lock()
	if c.phase == "disconnected" {
		c.mu.Unlock()
		return
	}
	c.phase = "disconnected"
	c.account = nil
	onDisconnected := c.handlers.OnDisconnected
	c.mu.Unlock()

	c.logger.Warn().Str("reason", reason).Msg("Session disconnected")
	if onDisconnected != nil {
		onDisconnected(reason)
	}
}

func (c *rodClient) readAccount() Account {
	account := Account{}

	page := c.activePage()
	if page == nil {
		return account
	}

	obj, err := page.Eval(readAccountJS)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read account info")
		return account
	}

	account.ID = obj.Value.Get("wid").Str()
	account.Name = obj.Value.Get("name").Str()
	for i, r := range account.ID {
		if r == '@' || r == ':' {
			account.PhoneNumber = account.ID[:i]
			break
		}
	}
	if account.PhoneNumber == "" {
		account.PhoneNumber = account.ID
	}

	return account
}

// Info returns the authenticated account, or nil before readiness
func (c *rodClient) Info() *Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account == nil {
		return nil
	}
	account := *c.account
	return &account
}

// SendMedia sends the file at path to the destination chat
func (c *rodClient) SendMedia(ctx context.Context, destination, path, caption string) error {
	c.mu.Lock()
	ready := c.phase == "ready"
	page := c.page
	c.mu.Unlock()

	if !ready || page == nil {
		return fmt.Errorf("session is not authenticated")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read media file: %w", err)
	}

	payload := base64.StdEncoding.EncodeToString(data)

	if _, err := page.Context(ctx).Eval(sendMediaJS, destination, payload, caption); err != nil {
		return fmt.Errorf("failed to send media to %s: %w", destination, err)
	}

	c.logger.Info().Str("destination", destination).Int("bytes", len(data)).Msg("Media sent")
	return nil
}

// Logout requests a graceful logout from WhatsApp Web
func (c *rodClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()

	if page == nil {
		return nil
	}

	if _, err := page.Context(ctx).Eval(logoutJS); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}

	return nil
}

// Destroy force-closes the browser session and releases its resources
func (c *rodClient) Destroy() error {
	c.cancel()
	return c.teardownBrowser()
}

// teardownBrowser closes the page, the browser and the Chrome process.
// The first error is returned, but teardown always runs to completion;
// the launcher is killed even if CDP calls fail.
func (c *rodClient) teardownBrowser() error {
	var firstErr error

	c.mu.Lock()
	page, browser, l := c.page, c.browser, c.launcher
	c.page, c.browser, c.launcher = nil, nil, nil
	c.mu.Unlock()

	if page != nil {
		if err := page.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if browser != nil {
		if err := browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if l != nil {
		// Kill the process but keep the user data dir: it is the
		// persisted authentication store.
		l.Kill()
	}

	return firstErr
}
