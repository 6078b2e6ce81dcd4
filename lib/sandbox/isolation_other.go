//go:build !linux

package sandbox

type unsupportedIsolator struct{}

// NewChroot returns an Isolator whose calls always fail; the isolation
// syscalls are only available on Linux.
func NewChroot() Isolator {
	return unsupportedIsolator{}
}

func (unsupportedIsolator) EnterRoot(string) error { return ErrUnsupported }
func (unsupportedIsolator) UnsharePID() error      { return ErrUnsupported }
