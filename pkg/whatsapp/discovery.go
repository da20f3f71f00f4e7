package whatsapp

import (
	"github.com/go-rod/rod/lib/launcher"
)

// DetectChromePath resolves the browser executable to use. An explicit
// override wins, then locally installed browsers are probed. An empty
// result means the launcher picks (and may download) its own browser.
func DetectChromePath(override string) string {
	if override != "" {
		return override
	}

	if path, exists := launcher.LookPath(); exists {
		return path
	}

	return ""
}
