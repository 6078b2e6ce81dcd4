package registry

import "errors"

var (
	// ErrAuth is returned when fetching the pull token fails
	ErrAuth = errors.New("registry authentication failed")
	// ErrManifest is returned when the manifest is missing or unparseable
	ErrManifest = errors.New("manifest retrieval failed")
	// ErrLayerFetch is returned when downloading a layer blob fails
	ErrLayerFetch = errors.New("layer fetch failed")
)
