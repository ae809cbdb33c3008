package domain

// CaptureMode selects how capture events are interpreted.
type CaptureMode int

const (
	// SingleSided yields one finished item per capture event.
	SingleSided CaptureMode = iota

	// TwoSided pairs consecutive capture events into front/back pairs.
	TwoSided
)

// String returns a human-readable representation of the mode.
func (m CaptureMode) String() string {
	switch m {
	case SingleSided:
		return "single-sided"
	case TwoSided:
		return "two-sided"
	default:
		return "unknown"
	}
}

// CaptureItem is one captured card image. The payload is opaque to the
// pipeline; ownership belongs to whichever queue currently holds the item
// until it is consumed or discarded.
type CaptureItem struct {
	// Bytes is the encoded image payload.
	Bytes []byte

	// Seq is the capture sequence position, assigned at capture time.
	Seq uint64
}

// CapturePair is a completed front/back pair awaiting merge.
type CapturePair struct {
	Front CaptureItem
	Back  CaptureItem
}

// Identity identifies the capturing account on staging calls.
type Identity struct {
	// Token is the bearer session token issued by the backend.
	Token string
}

// ScanResult is the immediate-path response for a non-bulk capture.
type ScanResult struct {
	// RawText is the OCR text extracted from the card.
	RawText string `json:"raw_text"`

	// Structured holds the parsed contact fields.
	Structured map[string]interface{} `json:"structured"`
}
