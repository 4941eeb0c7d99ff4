package muxer

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNoRepresentations is returned when selection is attempted on a set with
// no usable representations. Manifest validation guarantees that consulted
// adaptation sets are nonempty with integer bandwidths, so hitting this
// indicates a bug rather than bad upstream data.
var ErrNoRepresentations = errors.New("no representations to select from")

// BestRepresentation returns the base URL of the representation with the
// strictly highest bandwidth. Ties keep the earliest-seen maximum.
func BestRepresentation(reps []Representation) (string, error) {
	best := -1
	var bestURL string

	for _, rep := range reps {
		if len(rep.BaseURLs) == 0 {
			continue
		}
		bw, err := strconv.Atoi(strings.TrimSpace(rep.Bandwidth))
		if err != nil || bw < 0 {
			continue
		}
		if bw > best {
			best = bw
			bestURL = rep.BaseURLs[0]
		}
	}

	if best < 0 {
		return "", ErrNoRepresentations
	}
	return bestURL, nil
}
