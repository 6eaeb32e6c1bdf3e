package domain

// MessageType is the ASTM F3411 broadcast message type.
type MessageType uint8

const (
	MessageBasicID    MessageType = 0
	MessageLocation   MessageType = 1
	MessageAuth       MessageType = 2
	MessageSelfID     MessageType = 3
	MessageSystem     MessageType = 4
	MessageOperatorID MessageType = 5
	MessagePack       MessageType = 0xF
)

// IDType qualifies the Basic-ID identifier.
type IDType uint8

const (
	IDTypeNone         IDType = 0
	IDTypeSerialNumber IDType = 1 // CTA-2063-A serial
	IDTypeRegistration IDType = 2 // CAA registration
	IDTypeUTMUUID      IDType = 3
	IDTypeSessionID    IDType = 4
)

// Operational status values from the Location message.
const (
	StatusUndeclared = 0
	StatusGround     = 1
	StatusAirborne   = 2
	StatusEmergency  = 3
)

// Height reference from the Location message.
const (
	HeightAboveTakeoff = 0
	HeightAGL          = 1
)

// RemoteIDMessage is one decoded ASTM F3411 message. Only the fields of the
// carried variant are populated; everything optional is a pointer so that a
// present-but-zero value stays distinguishable from absent.
type RemoteIDMessage struct {
	Type MessageType

	// Basic-ID
	IDType IDType
	UAType *int
	ID     string

	// Location / Vector
	Status           *int
	HeightType       *int
	Track            *float64 // deg, 0-359
	Speed            *float64 // m/s horizontal
	VerticalSpeed    *float64 // m/s, up positive
	Latitude         *float64
	Longitude        *float64
	AltitudePressure *float64
	AltitudeGeodetic *float64
	Height           *float64
	HorizAccuracy    *float64 // meters
	VertAccuracy     *float64
	BaroAccuracy     *float64
	SpeedAccuracy    *float64 // m/s

	// Authentication
	AuthType *int
	AuthData []byte

	// Self-ID
	SelfIDType  *int
	Description string

	// System
	OperatorLatitude     *float64
	OperatorLongitude    *float64
	OperatorAltitude     *float64
	OperatorLocationType *int
	AreaCount            *int
	AreaRadius           *float64 // meters
	AreaCeiling          *float64
	AreaFloor            *float64
	CategoryEU           *int
	ClassEU              *int

	// Operator-ID
	OperatorIDType *int
	OperatorID     string
}

// DetectionSource tells which decode path produced an event.
type DetectionSource string

const (
	SourceRemoteID        DetectionSource = "RemoteIdWiFi"
	SourceDJIDroneID      DetectionSource = "DJIProprietaryDroneID"
	SourceWiFiFingerprint DetectionSource = "WiFiFingerprint"
)

// DetectionEvent is the parser's output for one frame: attribution plus the
// decoded messages. A fingerprint-only event carries no messages.
type DetectionEvent struct {
	Source   DetectionSource
	Frame    *FrameRecord
	Messages []RemoteIDMessage

	// DesignationHint is a best-effort model name contributed by the DJI
	// product table or the fingerprint tables (SSID pattern or vendor OUI
	// match).
	DesignationHint string
}
