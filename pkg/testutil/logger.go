package testutil

import (
	"io"
	"log/slog"
)

// DiscardLogger returns a logger wired to io.Discard. Service constructors
// take a non-nil logger, and test output stays quiet.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
