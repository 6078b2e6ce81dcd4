// Package registry implements a minimal Docker registry v2 pull client:
// token auth, manifest retrieval, and layer blob download.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/samber/lo"

	"github.com/hullproject/hull/lib/archive"
	"github.com/hullproject/hull/lib/image"
)

// manifestV2MediaType is requested explicitly; without it the registry may
// fall back to the legacy schema1 manifest, which has no layer list in the
// shape we need.
const manifestV2MediaType = "application/vnd.docker.distribution.manifest.v2+json"

// AccessToken is an opaque pull-scoped bearer credential. It is fetched
// fresh per invocation and never persisted.
type AccessToken string

// Manifest is the ordered layer list for one image. Layer order is
// significant: later layers overwrite earlier ones during extraction.
type Manifest struct {
	SchemaVersion int                  `json:"schemaVersion"`
	MediaType     string               `json:"mediaType"`
	Layers        []ocispec.Descriptor `json:"layers"`
}

// Config holds the registry endpoints and pull limits.
type Config struct {
	RegistryURL   string        // e.g. "https://registry.hub.docker.com"
	AuthURL       string        // e.g. "https://auth.docker.io"
	Service       string        // e.g. "registry.docker.io"
	Timeout       time.Duration // per-request HTTP timeout; zero means no timeout
	MaxLayerBytes int64         // extraction cap per layer
	Logger        *slog.Logger
}

// Client pulls images from a Docker registry.
type Client struct {
	httpClient    *http.Client
	registryURL   string
	authURL       string
	service       string
	maxLayerBytes int64
	logger        *slog.Logger
}

// New creates a pull client for the configured registry.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxLayerBytes := cfg.MaxLayerBytes
	if maxLayerBytes <= 0 {
		maxLayerBytes = 4 << 30
	}
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		registryURL:   cfg.RegistryURL,
		authURL:       cfg.AuthURL,
		service:       cfg.Service,
		maxLayerBytes: maxLayerBytes,
		logger:        logger,
	}
}

// Token requests an anonymous pull-scoped bearer token for the repository.
func (c *Client) Token(ctx context.Context, repository string) (AccessToken, error) {
	q := url.Values{}
	q.Set("service", c.service)
	q.Set("scope", "repository:"+repository+":pull")
	tokenURL := c.authURL + "/token?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", ErrAuth, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: token endpoint returned %s", ErrAuth, resp.Status)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode token payload: %v", ErrAuth, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token in payload", ErrAuth)
	}

	return AccessToken(payload.AccessToken), nil
}

// Manifest fetches the v2 manifest for the given repository and tag.
func (c *Client) Manifest(ctx context.Context, repository, tag string, token AccessToken) (*Manifest, error) {
	manifestURL := fmt.Sprintf("%s/v2/%s/manifests/%s", c.registryURL, repository, tag)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build manifest request: %v", ErrManifest, err)
	}
	req.Header.Set("Authorization", "Bearer "+string(token))
	req.Header.Set("Accept", manifestV2MediaType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: manifest endpoint returned %s", ErrManifest, resp.Status)
	}

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %v", ErrManifest, err)
	}
	if len(manifest.Layers) == 0 {
		return nil, fmt.Errorf("%w: manifest has no layers", ErrManifest)
	}
	for _, layer := range manifest.Layers {
		if err := layer.Digest.Validate(); err != nil {
			return nil, fmt.Errorf("%w: layer digest %q: %v", ErrManifest, layer.Digest, err)
		}
	}

	return &manifest, nil
}

// Pull resolves ref to its manifest and extracts every layer into
// targetDir, strictly in manifest order. Any failure aborts the pull and
// leaves targetDir in an unspecified state; the caller must not run the
// sandboxed command after a failed pull.
func (c *Client) Pull(ctx context.Context, ref *image.Reference, targetDir string) error {
	token, err := c.Token(ctx, ref.Repository())
	if err != nil {
		return err
	}

	manifest, err := c.Manifest(ctx, ref.Repository(), ref.Tag, token)
	if err != nil {
		return err
	}

	c.logger.Info("pulling image",
		"image", ref.String(),
		"layers", len(manifest.Layers),
		"digests", lo.Map(manifest.Layers, func(l ocispec.Descriptor, _ int) string {
			return l.Digest.String()
		}),
	)

	for _, layer := range manifest.Layers {
		c.logger.Info("extracting layer", "mediaType", layer.MediaType, "digest", layer.Digest.String())
		if err := c.pullAndExtractLayer(ctx, ref.Repository(), layer, token, targetDir); err != nil {
			return err
		}
	}

	return nil
}

// pullAndExtractLayer downloads one layer blob, verifies its digest, and
// extracts it into targetDir. The blob is spooled to a temp file so the
// digest check completes before anything touches targetDir.
func (c *Client) pullAndExtractLayer(ctx context.Context, repository string, layer ocispec.Descriptor, token AccessToken, targetDir string) error {
	blobURL := fmt.Sprintf("%s/v2/%s/blobs/%s", c.registryURL, repository, layer.Digest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, blobURL, nil)
	if err != nil {
		return fmt.Errorf("%w: build blob request: %v", ErrLayerFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+string(token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLayerFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: blob endpoint returned %s for %s", ErrLayerFetch, resp.Status, layer.Digest)
	}

	spool, err := os.CreateTemp("", "hull-layer-*.tar.gz")
	if err != nil {
		return fmt.Errorf("create layer spool: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	verifier := layer.Digest.Verifier()
	if _, err := io.Copy(io.MultiWriter(spool, verifier), resp.Body); err != nil {
		return fmt.Errorf("%w: download %s: %v", ErrLayerFetch, layer.Digest, err)
	}
	if !verifier.Verified() {
		return fmt.Errorf("%w: digest mismatch for %s", ErrLayerFetch, layer.Digest)
	}

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind layer spool: %w", err)
	}

	if _, err := archive.ExtractTarGz(spool, targetDir, c.maxLayerBytes); err != nil {
		return fmt.Errorf("extract layer %s: %w", layer.Digest, err)
	}

	return nil
}
