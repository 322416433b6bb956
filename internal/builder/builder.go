// Package builder invokes the external sandboxed build executor. The
// executor is its own program with its own resource enforcement; this
// package only hands it one (crate, version) per invocation and interprets
// the exit status.
package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"docsmill/internal/store"
)

// ExecBuilder runs the configured builder command once per request:
//
//	<command> <name> <version> [registry]
type ExecBuilder struct {
	command string
	logger  *slog.Logger
}

// New creates an ExecBuilder for the given command.
func New(command string, logger *slog.Logger) *ExecBuilder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ExecBuilder{command: command, logger: logger}
}

// Build runs the builder process to completion. A non-zero exit is a build
// failure; the combined output is surfaced for the operator.
func (b *ExecBuilder) Build(ctx context.Context, req *store.BuildRequest) error {
	args := []string{req.Name, req.Version}
	if req.Registry != nil {
		args = append(args, *req.Registry)
	}

	cmd := exec.CommandContext(ctx, b.command, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		b.logger.Error("builder process failed",
			"crate", req.Name,
			"version", req.Version,
			"output", string(output),
		)
		return fmt.Errorf("builder failed for %s %s: %w", req.Name, req.Version, err)
	}
	return nil
}
