package trystero

// sdpPayload mirrors the RTCSessionDescriptionInit-ish shape carried inside
// an offer or answer frame, with Sdp replaced by the signed envelope text
// produced by sdpcrypto.Sign.
type sdpPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// offerEntry is one element of an announce frame's "offers" array.
type offerEntry struct {
	OfferID string     `json:"offer_id"`
	Offer   sdpPayload `json:"offer"`
}

// frame is the tracker wire protocol: one JSON shape reused for outbound
// announce frames, outbound answer frames, and every inbound frame a
// tracker may deliver. Fields irrelevant to a given message are left at
// their zero value and omitted from the JSON.
type frame struct {
	Action        string       `json:"action,omitempty"`
	InfoHash      string       `json:"info_hash,omitempty"`
	PeerID        string       `json:"peer_id,omitempty"`
	ToPeerID      string       `json:"to_peer_id,omitempty"`
	NumWant       int          `json:"numwant,omitempty"`
	Offers        []offerEntry `json:"offers,omitempty"`
	OfferID       string       `json:"offer_id,omitempty"`
	Offer         *sdpPayload  `json:"offer,omitempty"`
	Answer        *sdpPayload  `json:"answer,omitempty"`
	Interval      int          `json:"interval,omitempty"`
	FailureReason string       `json:"failure reason,omitempty"`
}
