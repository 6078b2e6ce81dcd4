// Package sandbox builds the ephemeral filesystem root for one sandboxed
// invocation and provides the privilege-gated isolation primitives that
// commit the process to it.
package sandbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Root is the ephemeral directory that becomes the isolated filesystem
// root. It is exclusively owned by one invocation and must be removed via
// Close on every exit path; it may contain copies of arbitrary host
// binaries and pulled image content.
type Root struct {
	path string
}

// NewRoot allocates a fresh, uniquely-named ephemeral root directory.
func NewRoot() (*Root, error) {
	dir, err := os.MkdirTemp("", "hull-root-*")
	if err != nil {
		return nil, fmt.Errorf("create sandbox root: %w", err)
	}
	return &Root{path: dir}, nil
}

// Path returns the root directory on the host filesystem.
func (r *Root) Path() string {
	return r.path
}

// Close removes the root directory and everything staged or extracted
// into it. Idempotent. After the process has entered the root the original
// host path is no longer resolvable; that case is treated as already
// cleaned up.
func (r *Root) Close() error {
	if r.path == "" {
		return nil
	}
	err := os.RemoveAll(r.path)
	r.path = ""
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove sandbox root: %w", err)
	}
	return nil
}

// StageCommand copies the command's file into the root at the path the
// command will resolve to once the root is entered. A leading "/" on
// commandPath is stripped so an absolute path lands inside the root
// instead of escaping it.
func (r *Root) StageCommand(commandPath string) (string, error) {
	rel := strings.TrimPrefix(commandPath, "/")

	staged, err := securejoin.SecureJoin(r.path, rel)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPathEscapesRoot, commandPath, err)
	}
	if !strings.HasPrefix(staged, r.path+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, commandPath)
	}

	if err := os.MkdirAll(filepath.Dir(staged), 0755); err != nil {
		return "", fmt.Errorf("create staging dirs: %w", err)
	}
	if err := copyFile(commandPath, staged); err != nil {
		return "", fmt.Errorf("stage command %s: %w", commandPath, err)
	}

	return staged, nil
}

// CreateDevNull creates dev/null as a restrictive placeholder file. Many
// programs probe for its existence before running; it is not a functioning
// character device, so actual I/O against it will fail.
func (r *Root) CreateDevNull() error {
	dev := filepath.Join(r.path, "dev")
	if err := os.MkdirAll(dev, 0755); err != nil {
		return fmt.Errorf("create dev dir: %w", err)
	}

	null := filepath.Join(dev, "null")
	f, err := os.Create(null)
	if err != nil {
		return fmt.Errorf("create dev/null: %w", err)
	}
	f.Close()

	if err := os.Chmod(null, 0555); err != nil {
		return fmt.Errorf("chmod dev/null: %w", err)
	}
	if err := os.Chmod(dev, 0555); err != nil {
		return fmt.Errorf("chmod dev: %w", err)
	}
	return nil
}

// copyFile copies src's content to dst, preserving src's permission bits
// so staged executables stay executable.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
