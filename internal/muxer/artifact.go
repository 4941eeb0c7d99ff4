package muxer

import (
	"net/http"
	"os"
)

const contentTypeMP4 = "video/mp4"

// Artifact is a muxed output file owned by exactly one request. It exists
// only for the duration of that request's response.
type Artifact struct {
	Path string
}

// ServeAndRemove streams the artifact as the response body and removes the
// file afterwards. Removal runs on every exit path, including a client abort
// partway through the transfer.
func (a Artifact) ServeAndRemove(w http.ResponseWriter, r *http.Request) {
	defer os.Remove(a.Path)
	w.Header().Set("Content-Type", contentTypeMP4)
	http.ServeFile(w, r, a.Path)
}

// Remove deletes the artifact without serving it, for error paths where a
// file was produced but will not be delivered, such as a failed encoder run.
func (a Artifact) Remove() error {
	return os.Remove(a.Path)
}
