package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WorkArea is the scratch directory for one send operation. It is owned
// exclusively by the pipeline invocation that created it and holds at
// most the raw download and its compressed form.
type WorkArea struct {
	Dir string
}

// NewWorkArea creates a uniquely named scratch directory under root
func NewWorkArea(root, userID string) (*WorkArea, error) {
	dir := filepath.Join(root, fmt.Sprintf("%s_%s", userID, uuid.NewString()))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work area: %w", err)
	}
	return &WorkArea{Dir: dir}, nil
}

// Path returns the path of an artifact inside the work area
func (w *WorkArea) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Cleanup removes the entire work area. Failure is logged, never raised:
// a leftover scratch directory must not turn a successful send into an
// error, and the janitor sweeps strays.
func (w *WorkArea) Cleanup(logger zerolog.Logger) {
	if err := os.RemoveAll(w.Dir); err != nil {
		logger.Warn().Err(err).Str("path", w.Dir).Msg("Failed to clean up work area")
		return
	}
	logger.Debug().Str("path", w.Dir).Msg("Work area cleaned up")
}
