package domain

import "time"

// Management frame subtypes the dissector is asked for.
const (
	SubtypeProbeResponse = 0x05
	SubtypeBeacon        = 0x08
	SubtypeAction        = 0x0d
)

// VendorElement is one vendor-specific information element (tag 221)
// lifted out of a management frame, with the OUI separated from the
// remaining payload bytes.
type VendorElement struct {
	OUI  [3]byte
	Data []byte
}

// FrameRecord is one captured 802.11 management frame as reported by the
// dissector. Immutable after creation; the capture driver is the only
// producer.
type FrameRecord struct {
	Timestamp time.Time
	Subtype   uint8
	SourceMAC string // canonical lowercase colon-separated
	Channel   int
	RSSI      *int // dBm, nil when the radio header carried no signal field
	SSID      string

	// Fields holds the raw dissector output keyed by field name, kept at
	// full fidelity for the report's raw_fields map.
	Fields map[string]string

	// VendorElements are the decoded vendor-specific elements of the frame,
	// in frame order.
	VendorElements []VendorElement
}
