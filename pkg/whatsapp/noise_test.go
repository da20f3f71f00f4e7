package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransportNoise(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		noise bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, true},
		{"wrapped context canceled", fmt.Errorf("probe: %w", context.Canceled), true},
		{"closed network conn", net.ErrClosed, true},
		{"profile lock", errors.New("EBUSY: resource busy or locked, unlink profile"), true},
		{"lockfile", errors.New("failed to remove lockfile"), true},
		{"cdp closed", errors.New("websocket: connection closed during teardown"), true},
		{"target closed", errors.New("Target closed"), true},
		{"session closed", errors.New("Session closed. Most likely the page has been closed"), true},
		{"real failure", errors.New("navigation failed: net::ERR_NAME_NOT_RESOLVED"), false},
		{"send failure", errors.New("chat not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.noise, IsTransportNoise(tt.err))
		})
	}
}

func TestDetectChromePath_Override(t *testing.T) {
	assert.Equal(t, "/opt/chrome/chrome", DetectChromePath("/opt/chrome/chrome"))
}

func TestAuthStorePath(t *testing.T) {
	assert.Equal(t, "/data/auth/session-u1", AuthStorePath("/data/auth", "u1"))
}
