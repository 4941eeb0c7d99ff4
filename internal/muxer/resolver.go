package muxer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

var (
	// ErrBadListing marks a post listing that could not be fetched or decoded
	// as the expected JSON shape; the handler maps it to a 400.
	ErrBadListing = errors.New("bad listing")

	// ErrUnexpectedShape marks a well-formed upstream response that does not
	// carry the post/video structure the pipeline needs; the handler maps it
	// to a 500.
	ErrUnexpectedShape = errors.New("unexpected upstream shape")
)

const maxListingBytes = 4 << 20

// Resolver turns an arbitrary post path into the media identifier of the
// video attached to that post.
type Resolver struct {
	redditBase string
	userAgent  string
	client     *http.Client
	cache      *ResolutionCache
	manifestRe *regexp.Regexp
}

// NewResolver returns a resolver that reads listings under redditBase and
// accepts manifest URLs under streamHost. cache may be nil to disable the
// resolution cache; client may be nil to use http.DefaultClient.
func NewResolver(redditBase, streamHost, userAgent string, client *http.Client, cache *ResolutionCache) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	host := strings.TrimRight(streamHost, "/")
	return &Resolver{
		redditBase: strings.TrimRight(redditBase, "/"),
		userAgent:  userAgent,
		client:     client,
		cache:      cache,
		manifestRe: regexp.MustCompile("^" + regexp.QuoteMeta(host) + `/(.+)/DASHPlaylist\.mpd`),
	}
}

// Resolve maps a post path to its video's media identifier. The returned
// bool reports whether the manifest URL came from the cache rather than an
// upstream fetch.
func (r *Resolver) Resolve(ctx context.Context, postPath string) (MediaID, bool, error) {
	postURL := r.redditBase + "/" + strings.TrimLeft(postPath, "/")

	manifestURL, cached := r.cache.Get(postURL)
	if !cached {
		var err error
		manifestURL, err = r.fetchManifestURL(ctx, postURL+".json")
		if err != nil {
			return "", false, err
		}
		r.cache.Put(postURL, manifestURL)
	}

	m := r.manifestRe.FindStringSubmatch(manifestURL)
	if m == nil {
		return "", cached, fmt.Errorf("%w: manifest url %q is not under the stream host", ErrUnexpectedShape, manifestURL)
	}
	id, err := ParseMediaID(m[1])
	if err != nil {
		return "", cached, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return id, cached, nil
}

// fetchManifestURL retrieves the listing JSON and extracts the manifest URL
// of the first thing's video.
func (r *Resolver) fetchManifestURL(ctx context.Context, listingURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return "", fmt.Errorf("build listing request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: listing fetch returned %d", ErrBadListing, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return "", fmt.Errorf("read listing: %w", err)
	}

	var listings []Listing
	if err := json.Unmarshal(body, &listings); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadListing, err)
	}
	if err := validateListings(listings); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadListing, err)
	}

	return manifestURLFromThing(listings[0].Data.Children[0])
}

// validateListings rejects responses that are not a listing sequence with at
// least one thing of a known kind. Only the first listing's first thing is
// ever consulted.
func validateListings(listings []Listing) error {
	if len(listings) == 0 {
		return errors.New("empty listing sequence")
	}
	first := listings[0]
	if first.Kind != kindListing {
		return fmt.Errorf("unexpected kind %q", first.Kind)
	}
	if len(first.Data.Children) == 0 {
		return errors.New("listing has no children")
	}
	switch first.Data.Children[0].Kind {
	case kindPost, kindComment, kindMore:
		return nil
	}
	return fmt.Errorf("unknown thing kind %q", first.Data.Children[0].Kind)
}

// manifestURLFromThing extracts the manifest URL from a listing's first
// thing. Only posts carry media; a cross-post defers to its first parent.
func manifestURLFromThing(thing Thing) (string, error) {
	if thing.Kind != kindPost {
		return "", fmt.Errorf("%w: first child is %q, not a post", ErrUnexpectedShape, thing.Kind)
	}
	post := thing.Data
	if len(post.CrosspostParentList) > 0 {
		post = post.CrosspostParentList[0]
	}
	if post.SecureMedia == nil || post.SecureMedia.RedditVideo == nil || post.SecureMedia.RedditVideo.DashURL == "" {
		return "", fmt.Errorf("%w: post carries no video media", ErrUnexpectedShape)
	}
	return post.SecureMedia.RedditVideo.DashURL, nil
}
