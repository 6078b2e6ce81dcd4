// Package launcher drives one sandboxed invocation: build the ephemeral
// root, optionally populate it from a pulled image, commit to it, and run
// the target command to completion.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/hullproject/hull/lib/image"
	"github.com/hullproject/hull/lib/sandbox"
)

// Puller populates a target directory with an image's extracted layers.
type Puller interface {
	Pull(ctx context.Context, ref *image.Reference, targetDir string) error
}

// RunSpec describes one sandboxed invocation.
type RunSpec struct {
	Image   *image.Reference // nil skips the registry pull
	Command string
	Args    []string
}

// Launcher runs commands inside an isolated filesystem root.
type Launcher struct {
	puller   Puller
	isolator sandbox.Isolator
	logger   *slog.Logger
}

// New wires a Launcher. puller may be nil when no image pulls will occur.
func New(puller Puller, isolator sandbox.Isolator, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{puller: puller, isolator: isolator, logger: logger}
}

// Run executes spec.Command inside a fresh sandbox root and returns the
// child's exit code. The root is built, populated, entered, and torn down
// within this call; any failure aborts the invocation without retry. After
// EnterRoot succeeds the process is committed: no path outside the root is
// reachable again.
func (l *Launcher) Run(ctx context.Context, spec RunSpec) (int, error) {
	root, err := sandbox.NewRoot()
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := root.Close(); err != nil {
			l.logger.Warn("sandbox root teardown failed", "error", err)
		}
	}()

	staged, err := root.StageCommand(spec.Command)
	if err != nil {
		return 0, err
	}
	if err := root.CreateDevNull(); err != nil {
		return 0, err
	}

	if spec.Image != nil {
		if l.puller == nil {
			return 0, fmt.Errorf("no registry client configured for image %s", spec.Image)
		}
		if err := l.puller.Pull(ctx, spec.Image, root.Path()); err != nil {
			return 0, err
		}
	}

	l.logger.Debug("entering sandbox root", "root", root.Path(), "staged", staged)
	if err := l.isolator.EnterRoot(root.Path()); err != nil {
		return 0, err
	}

	if err := l.isolator.UnsharePID(); err != nil {
		// Weak isolation, not a fatal condition: the command still runs
		// chrooted, it just shares the host's pid namespace.
		l.logger.Warn("pid namespace isolation failed, continuing without it", "error", err)
	}

	return l.spawnAndWait(ctx, spec.Command, spec.Args)
}

// spawnAndWait starts the command and blocks until it terminates. Stdin is
// not inherited; the child reads from the null device so it can never
// block on the parent's terminal. Returns the child's exit code, or 1 if
// the child was killed by a signal and left no code.
func (l *Launcher) spawnAndWait(ctx context.Context, command string, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: tried to run %q with arguments %q: %v", ErrSpawn, command, args, err)
	}

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return 1, nil // signal-killed, no exit code available
	}
	return 1, fmt.Errorf("wait for %q: %w", command, err)
}
