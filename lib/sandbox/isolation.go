package sandbox

// Isolator is the capability interface over the privilege-gated isolation
// syscalls, so unprivileged environments can substitute a no-op.
type Isolator interface {
	// EnterRoot changes the process's filesystem root to path and moves
	// the working directory to the new root's top level. Irreversible for
	// the current process; paths outside the former root become
	// unreachable except through already-open file descriptors.
	EnterRoot(path string) error

	// UnsharePID detaches the process into a new PID namespace so that
	// children see an independent process tree.
	UnsharePID() error
}

type nopIsolator struct{}

// NewNop returns an Isolator that performs no isolation. Intended for
// tests and unprivileged dry runs.
func NewNop() Isolator {
	return nopIsolator{}
}

func (nopIsolator) EnterRoot(string) error { return nil }
func (nopIsolator) UnsharePID() error      { return nil }
