package muxer

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// ErrBadManifest marks a manifest that could not be fetched as a valid DASH
// document; the handler maps it to a client-visible 400.
var ErrBadManifest = errors.New("bad manifest")

// Manifests are small; anything past this is not a manifest.
const maxManifestBytes = 1 << 20

// ManifestClient fetches and validates DASH manifests from the streaming host.
type ManifestClient struct {
	streamHost string
	userAgent  string
	client     *http.Client
}

// NewManifestClient returns a client rooted at streamHost. userAgent is sent
// on every upstream request; client may be nil to use http.DefaultClient.
func NewManifestClient(streamHost, userAgent string, client *http.Client) *ManifestClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &ManifestClient{
		streamHost: strings.TrimRight(streamHost, "/"),
		userAgent:  userAgent,
		client:     client,
	}
}

// ManifestURL returns the canonical manifest URL for id.
func (c *ManifestClient) ManifestURL(id MediaID) string {
	return fmt.Sprintf("%s/%s/DASHPlaylist.mpd", c.streamHost, id)
}

// RenditionURL returns the segment-fetch URL of a rendition's base path
// under id.
func (c *ManifestClient) RenditionURL(id MediaID, basePath string) string {
	return fmt.Sprintf("%s/%s/%s", c.streamHost, id, basePath)
}

// Fetch retrieves and validates the manifest for id. Decode and shape
// problems yield ErrBadManifest; transport problems are returned wrapped and
// unretried.
func (c *ManifestClient) Fetch(ctx context.Context, id MediaID) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ManifestURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("build manifest request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: manifest fetch returned %d", ErrBadManifest, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := xml.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	if err := validateManifest(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	return &m, nil
}

// validateManifest rejects any document that does not match the shape the
// pipeline relies on, so downstream code never accesses fields speculatively.
func validateManifest(m *Manifest) error {
	if len(m.Periods) == 0 {
		return errors.New("no periods")
	}
	sets := m.Periods[0].AdaptationSets
	if len(sets) == 0 {
		return errors.New("no adaptation sets")
	}
	for _, set := range sets {
		if set.ContentType != contentTypeAudio && set.ContentType != contentTypeVideo {
			return fmt.Errorf("unknown content type %q", set.ContentType)
		}
		if len(set.Representations) == 0 {
			return fmt.Errorf("%s adaptation set has no representations", set.ContentType)
		}
		for _, rep := range set.Representations {
			if _, err := strconv.Atoi(strings.TrimSpace(rep.Bandwidth)); err != nil {
				return fmt.Errorf("bad bandwidth %q", rep.Bandwidth)
			}
			if len(rep.BaseURLs) == 0 {
				return errors.New("representation has no base url")
			}
		}
	}
	return nil
}
