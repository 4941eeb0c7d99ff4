package muxer

import (
	"encoding/xml"
	"errors"
	"regexp"
)

// MediaID names a video resource on the streaming host. It is the only value
// ever interpolated into upstream URLs or artifact paths, so it is validated
// on construction and never built any other way.
type MediaID string

var mediaIDPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// ErrInvalidMediaID is returned for identifiers that do not match the
// lowercase-alphanumeric pattern.
var ErrInvalidMediaID = errors.New("invalid media id")

// ParseMediaID validates s as a media identifier.
func ParseMediaID(s string) (MediaID, error) {
	if !mediaIDPattern.MatchString(s) {
		return "", ErrInvalidMediaID
	}
	return MediaID(s), nil
}

// Content kinds an AdaptationSet may carry.
const (
	contentTypeAudio = "audio"
	contentTypeVideo = "video"
)

// Manifest is a DASH manifest document as served by the streaming host.
// Only the first Period is ever consulted.
type Manifest struct {
	XMLName xml.Name `xml:"MPD"`
	Periods []Period `xml:"Period"`
}

// Period holds the adaptation sets of one media period.
type Period struct {
	AdaptationSets []AdaptationSet `xml:"AdaptationSet"`
}

// AdaptationSet groups the representations of one content kind.
type AdaptationSet struct {
	ContentType     string           `xml:"contentType,attr"`
	Representations []Representation `xml:"Representation"`
}

// Representation is one encoded rendition alternative. Bandwidth is kept as
// the attribute's text and parsed base-10 during selection; the first BaseURL
// is the rendition's path fragment under the identifier.
type Representation struct {
	Bandwidth string   `xml:"bandwidth,attr"`
	BaseURLs  []string `xml:"BaseURL"`
}

// FindAdaptationSet returns the first adaptation set of the given content
// kind in the manifest's first period.
func (m *Manifest) FindAdaptationSet(contentType string) (AdaptationSet, bool) {
	for _, set := range m.Periods[0].AdaptationSets {
		if set.ContentType == contentType {
			return set, true
		}
	}
	return AdaptationSet{}, false
}

// Thing kinds in a reddit listing.
const (
	kindListing = "Listing"
	kindPost    = "t3"
	kindComment = "t1"
	kindMore    = "more"
)

// Listing is one page of the content API's response for a post path.
type Listing struct {
	Kind string      `json:"kind"`
	Data ListingData `json:"data"`
}

// ListingData carries the ordered things of a listing.
type ListingData struct {
	Children []Thing `json:"children"`
}

// Thing is one tagged entry in a listing: a post ("t3"), a comment ("t1"),
// or a pagination stub ("more"). Only posts carry a payload this service
// looks at.
type Thing struct {
	Kind string `json:"kind"`
	Data Post   `json:"data"`
}

// Post is the payload of a t3 thing. A regular post carries its own secure
// media; a cross-post instead carries the parent posts it re-shares.
type Post struct {
	SecureMedia         *SecureMedia `json:"secure_media"`
	CrosspostParentList []Post       `json:"crosspost_parent_list"`
}

// SecureMedia wraps the hosted-video block of a post.
type SecureMedia struct {
	RedditVideo *RedditVideo `json:"reddit_video"`
}

// RedditVideo points at the DASH manifest of a hosted video.
type RedditVideo struct {
	DashURL string `json:"dash_url"`
}
