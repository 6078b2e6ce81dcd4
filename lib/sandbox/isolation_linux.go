//go:build linux

package sandbox

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type chrootIsolator struct{}

// NewChroot returns the Linux Isolator backed by chroot(2) and
// unshare(2). Both calls require CAP_SYS_ADMIN (typically root).
func NewChroot() Isolator {
	return chrootIsolator{}
}

func (chrootIsolator) EnterRoot(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("enter root %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("enter root %s: not a directory", path)
	}

	if err := unix.Chroot(path); err != nil {
		if errors.Is(err, unix.EPERM) {
			return fmt.Errorf("%w: chroot %s: %v", ErrPermission, path, err)
		}
		return fmt.Errorf("chroot %s: %w", path, err)
	}
	// The working directory is still outside the new root until this.
	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir to new root: %w", err)
	}
	return nil
}

func (chrootIsolator) UnsharePID() error {
	if err := unix.Unshare(unix.CLONE_NEWPID); err != nil {
		if errors.Is(err, unix.EPERM) {
			return fmt.Errorf("%w: unshare pid namespace: %v", ErrPermission, err)
		}
		return fmt.Errorf("unshare pid namespace: %w", err)
	}
	return nil
}
