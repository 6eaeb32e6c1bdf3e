package domain

import "time"

// Wire protocol constants shared with the collector.
const (
	ProtocolVersion = 1

	TopicUAV       = "uav"
	TopicHeartbeat = "heartbeat"
	TopicAlert     = "alert" // reserved

	ReportTypeUAV       = "uav_report"
	ReportTypeHeartbeat = "tap_heartbeat"
)

// UavReport is the full per-detection document published on the "uav"
// topic. Every field is always present on the wire; absent values encode as
// nil. Receivers ignore unknown fields, so additions here are non-breaking.
type UavReport struct {
	Type            string `msgpack:"type"`
	ProtocolVersion int    `msgpack:"protocol_version"`
	TapUUID         string `msgpack:"tap_uuid"`
	Timestamp       string `msgpack:"timestamp"` // ISO-8601 UTC
	MAC             string `msgpack:"mac"`
	Identifier      string `msgpack:"identifier"`
	DetectionSource string `msgpack:"detection_source"`

	Latitude         *float64 `msgpack:"latitude"`
	Longitude        *float64 `msgpack:"longitude"`
	AltitudeGeodetic *float64 `msgpack:"altitude_geodetic"`
	AltitudePressure *float64 `msgpack:"altitude_pressure"`
	Height           *float64 `msgpack:"height"`
	HeightType       *int     `msgpack:"height_type"`

	GroundTrack   *float64 `msgpack:"ground_track"`
	Speed         *float64 `msgpack:"speed"`
	VerticalSpeed *float64 `msgpack:"vertical_speed"`

	IDSerial          *string `msgpack:"id_serial"`
	IDRegistration    *string `msgpack:"id_registration"`
	IDUTM             *string `msgpack:"id_utm"`
	IDSession         *string `msgpack:"id_session"`
	UAVType           *int    `msgpack:"uav_type"`
	OperationalStatus *int    `msgpack:"operational_status"`

	OperatorLatitude     *float64 `msgpack:"operator_latitude"`
	OperatorLongitude    *float64 `msgpack:"operator_longitude"`
	OperatorAltitude     *float64 `msgpack:"operator_altitude"`
	OperatorID           *string  `msgpack:"operator_id"`
	OperatorLocationType *int     `msgpack:"operator_location_type"`

	RSSI *int   `msgpack:"rssi"`
	SSID string `msgpack:"ssid"`

	AccuracyHorizontal *float64 `msgpack:"accuracy_horizontal"`
	AccuracyVertical   *float64 `msgpack:"accuracy_vertical"`
	AccuracyBarometer  *float64 `msgpack:"accuracy_barometer"`
	AccuracySpeed      *float64 `msgpack:"accuracy_speed"`

	CategoryEU *int `msgpack:"category_eu"`
	ClassEU    *int `msgpack:"class_eu"`

	AreaCount   *int     `msgpack:"area_count"`
	AreaRadius  *float64 `msgpack:"area_radius"`
	AreaCeiling *float64 `msgpack:"area_ceiling"`
	AreaFloor   *float64 `msgpack:"area_floor"`

	SpoofFlags []string `msgpack:"spoof_flags"`
	TrustScore int      `msgpack:"trust_score"`
	AuthType   *int     `msgpack:"auth_type"`
	AuthData   []byte   `msgpack:"auth_data"`

	Designation       string  `msgpack:"designation"`
	MessageTypesSeen  []int   `msgpack:"message_types_seen"`
	SelfIDDescription *string `msgpack:"self_id_description"`
	SelfIDType        *int    `msgpack:"self_id_type"`

	RawFields map[string]string `msgpack:"raw_fields"`
}

// Heartbeat is the periodic tap status document published on the
// "heartbeat" topic.
type Heartbeat struct {
	Type            string `msgpack:"type"`
	ProtocolVersion int    `msgpack:"protocol_version"`
	TapUUID         string `msgpack:"tap_uuid"`
	TapName         string `msgpack:"tap_name"`
	Timestamp       string `msgpack:"timestamp"`
	Version         string `msgpack:"version"`
	Interface       string `msgpack:"interface"`
	Channel         int    `msgpack:"channel"`

	CPULoad       *float64 `msgpack:"cpu_load"`
	CPUPercent    *float64 `msgpack:"cpu_percent"`
	MemoryUsed    *uint64  `msgpack:"memory_used"`
	MemoryPercent *float64 `msgpack:"memory_percent"`
	Temperature   *float64 `msgpack:"temperature"`
	DiskFree      *uint64  `msgpack:"disk_free"`
	DiskWrites    *uint64  `msgpack:"disk_writes_total"`

	Latitude  float64 `msgpack:"latitude"`
	Longitude float64 `msgpack:"longitude"`

	FramesTotal   uint64  `msgpack:"frames_total"`
	FramesParsed  uint64  `msgpack:"frames_parsed"`
	TsharkRunning bool    `msgpack:"tshark_running"`
	TapUptime     float64 `msgpack:"tap_uptime"`
	Channels      []int   `msgpack:"channels"`
	CaptureErrors uint64  `msgpack:"capture_errors"`
}

// WireTimestamp renders a timestamp the way the collector expects it.
func WireTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Report builds the wire document for the state's current values.
func (u *UavState) Report(tapUUID string, now time.Time) *UavReport {
	return &UavReport{
		Type:            ReportTypeUAV,
		ProtocolVersion: ProtocolVersion,
		TapUUID:         tapUUID,
		Timestamp:       WireTimestamp(now),
		MAC:             u.MAC,
		Identifier:      u.Identifier,
		DetectionSource: string(u.Source),

		Latitude:         u.Latitude,
		Longitude:        u.Longitude,
		AltitudeGeodetic: u.AltitudeGeodetic,
		AltitudePressure: u.AltitudePressure,
		Height:           u.Height,
		HeightType:       u.HeightType,

		GroundTrack:   u.Track,
		Speed:         u.Speed,
		VerticalSpeed: u.VerticalSpeed,

		IDSerial:          u.Serial,
		IDRegistration:    u.Registration,
		IDUTM:             u.UTMID,
		IDSession:         u.SessionID,
		UAVType:           u.UAType,
		OperationalStatus: u.Status,

		OperatorLatitude:     u.OperatorLatitude,
		OperatorLongitude:    u.OperatorLongitude,
		OperatorAltitude:     u.OperatorAltitude,
		OperatorID:           u.OperatorID,
		OperatorLocationType: u.OperatorLocationType,

		RSSI: u.RSSI,
		SSID: u.SSID,

		AccuracyHorizontal: u.HorizAccuracy,
		AccuracyVertical:   u.VertAccuracy,
		AccuracyBarometer:  u.BaroAccuracy,
		AccuracySpeed:      u.SpeedAccuracy,

		CategoryEU: u.CategoryEU,
		ClassEU:    u.ClassEU,

		AreaCount:   u.AreaCount,
		AreaRadius:  u.AreaRadius,
		AreaCeiling: u.AreaCeiling,
		AreaFloor:   u.AreaFloor,

		SpoofFlags: u.SpoofFlagList(),
		TrustScore: u.TrustScore,
		AuthType:   u.AuthType,
		AuthData:   u.AuthData,

		Designation:       u.Designation,
		MessageTypesSeen:  u.MessageTypeList(),
		SelfIDDescription: u.SelfIDDescription,
		SelfIDType:        u.SelfIDType,

		RawFields: u.RawFields,
	}
}
