package session

import (
	"context"
	"sync"
	"time"

	"github.com/harun/wagate/pkg/whatsapp"
)

// fakeClient is a scriptable whatsapp.Client for tests
type fakeClient struct {
	mu       sync.Mutex
	handlers whatsapp.Handlers

	initDelay time.Duration
	initErr   error
	qrOnInit  string

	logoutErr  error
	destroyErr error

	initCalls int
	destroyed bool
	detached  bool
}

func (f *fakeClient) Initialize(ctx context.Context) error {
	f.mu.Lock()
	f.initCalls++
	qr := f.qrOnInit
	h := f.handlers
	f.mu.Unlock()

	if f.initDelay > 0 {
		time.Sleep(f.initDelay)
	}
	if f.initErr != nil {
		return f.initErr
	}
	if qr != "" && h.OnQR != nil {
		h.OnQR(qr)
	}
	return nil
}

func (f *fakeClient) SetHandlers(h whatsapp.Handlers) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = h
}

func (f *fakeClient) DetachHandlers() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = whatsapp.Handlers{}
	f.detached = true
}

func (f *fakeClient) currentHandlers() whatsapp.Handlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers
}

func (f *fakeClient) emitQR(code string) {
	if h := f.currentHandlers(); h.OnQR != nil {
		h.OnQR(code)
	}
}

func (f *fakeClient) emitReady(account whatsapp.Account) {
	if h := f.currentHandlers(); h.OnReady != nil {
		h.OnReady(account)
	}
}

func (f *fakeClient) emitAuthFailure(reason string) {
	if h := f.currentHandlers(); h.OnAuthFailure != nil {
		h.OnAuthFailure(reason)
	}
}

func (f *fakeClient) emitDisconnected(reason string) {
	if h := f.currentHandlers(); h.OnDisconnected != nil {
		h.OnDisconnected(reason)
	}
}

func (f *fakeClient) SendMedia(ctx context.Context, destination, path, caption string) error {
	return nil
}

func (f *fakeClient) Info() *whatsapp.Account {
	return nil
}

func (f *fakeClient) Logout(ctx context.Context) error {
	return f.logoutErr
}

func (f *fakeClient) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
	return f.destroyErr
}
