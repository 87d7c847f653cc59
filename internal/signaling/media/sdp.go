package media

import (
	"fmt"

	"github.com/pion/sdp/v3"
)

// OfferMediaKinds parses an SDP offer and returns its media kinds
// ("audio", "video", ...) in order. Used for diagnostics and payload sanity
// checks; the core never interprets the SDP beyond this.
func OfferMediaKinds(sdpText string) ([]string, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(sdpText)); err != nil {
		return nil, fmt.Errorf("parse sdp: %w", err)
	}

	kinds := make([]string, 0, len(desc.MediaDescriptions))
	for _, m := range desc.MediaDescriptions {
		kinds = append(kinds, m.MediaName.Media)
	}
	return kinds, nil
}
