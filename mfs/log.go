package mfs

import (
	"io"

	"github.com/charmbracelet/log"
)

// newDiscardLogger gives an Engine a non-nil logger to call unconditionally
// even when the caller did not supply one, the way a unit test expects a
// quiet driver by default.
func newDiscardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
