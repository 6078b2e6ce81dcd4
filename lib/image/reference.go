// Package image handles parsing and validation of container image references.
package image

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// Reference is a validated image reference of the form "name:tag",
// e.g. "alpine:latest". Only official-library images are supported,
// so the registry repository is always "library/<name>".
type Reference struct {
	Name string
	Tag  string
}

// Parse validates a user-provided image reference. The input must contain
// exactly one colon separating name and tag; a missing tag is a usage
// error, not defaulted to "latest".
func Parse(s string) (*Reference, error) {
	name, tag, ok := strings.Cut(s, ":")
	if !ok || name == "" || tag == "" {
		return nil, fmt.Errorf("%w: %q (expected name:tag)", ErrInvalidReference, s)
	}
	if strings.Contains(tag, ":") {
		return nil, fmt.Errorf("%w: %q (expected exactly one colon)", ErrInvalidReference, s)
	}

	// Validate against the registry reference grammar so malformed names
	// are rejected before any network call.
	if _, err := reference.ParseNormalizedNamed(name + ":" + tag); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidReference, s, err)
	}

	return &Reference{Name: name, Tag: tag}, nil
}

// Repository returns the repository path used in registry requests and
// token scopes, e.g. "library/alpine".
func (r *Reference) Repository() string {
	return "library/" + r.Name
}

// String returns the reference in its original "name:tag" form.
func (r *Reference) String() string {
	return r.Name + ":" + r.Tag
}
