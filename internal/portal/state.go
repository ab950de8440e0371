package portal

import (
	"fmt"
	"strings"
)

// State is the set of opaque hidden fields (__VIEWSTATE and friends)
// the server expects echoed back verbatim on the next postback. Stale
// values make the portal silently serve a page without the usual
// markers, so callers always post the freshest full set.
type State map[string]string

func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge overlays upd onto s. Fields missing from upd keep their prior
// value; the protocol omits unchanged fields from delta payloads
// rather than blanking them.
func (s State) Merge(upd State) {
	for k, v := range upd {
		s[k] = v
	}
}

// Require checks that every named field is present and non-empty,
// reporting the first miss as a protocol mismatch.
func (s State) Require(names ...string) error {
	for _, n := range names {
		if s[n] == "" {
			return fmt.Errorf("%w: missing %s", ErrProtocolMismatch, n)
		}
	}
	return nil
}

// StripCoordinates removes image-button click offsets (NAME.x/NAME.y)
// before a form is resubmitted; the server rejects a postback that
// replays a click it did not just render.
func StripCoordinates(s State) {
	for k := range s {
		if strings.HasSuffix(k, ".x") || strings.HasSuffix(k, ".y") {
			delete(s, k)
		}
	}
}
