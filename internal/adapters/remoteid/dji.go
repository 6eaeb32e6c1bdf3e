package remoteid

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/K13094/tap/internal/core/domain"
)

// DJIOUI marks the proprietary DroneID vendor element DJI airframes
// broadcast alongside (or instead of) standard Remote-ID.
var DJIOUI = [3]byte{0x60, 0x60, 0x1F}

// DroneID flight-info payload layout (bytes after the OUI). The same frame
// is emitted by v1 and v2 firmware; v2 only reshuffles the state bitfield,
// which we do not consume.
const (
	djiSubtypeFlightInfo = 0x10
	djiMinPayload        = 68

	djiOffSerial   = 8
	djiOffLon      = 24
	djiOffLat      = 28
	djiOffAltitude = 32
	djiOffHeight   = 34
	djiOffVNorth   = 36
	djiOffVEast    = 38
	djiOffVUp      = 40
	djiOffYaw      = 42
	djiOffPilotLat = 52
	djiOffPilotLon = 56
	djiOffHomeLon  = 60
	djiOffHomeLat  = 64
	djiOffProduct  = 68
)

// djiLatLonScale converts the DroneID angle encoding (radians * 1e7, i.e.
// degrees * 1e7 / 57.2957795) back to degrees.
const djiLatLonScale = 174533.0

// djiProducts maps the DroneID product-type byte to a model name.
var djiProducts = map[byte]string{
	1:  "DJI Inspire 1",
	2:  "DJI Phantom 3 Series",
	3:  "DJI Phantom 3 Standard",
	4:  "DJI Phantom 4",
	5:  "DJI Matrice 100",
	6:  "DJI Phantom 4 Pro",
	7:  "DJI Matrice 600",
	9:  "DJI Matrice 200",
	10: "DJI Spark",
	11: "DJI Matrice 600 Pro",
	12: "DJI Mavic Air",
	14: "DJI Phantom 4 Advanced",
	16: "DJI Mavic Pro",
	17: "DJI Inspire 2",
	18: "DJI Phantom 4 RTK",
	20: "DJI Matrice 210",
	21: "DJI Phantom 4 Multispectral",
	23: "DJI Matrice 210 RTK",
	24: "DJI Mavic 2",
	25: "DJI Mavic 2 Enterprise",
	26: "DJI Mavic Mini",
	27: "DJI Matrice 300 RTK",
	29: "DJI Mavic Air 2",
	30: "DJI Mini 2",
	31: "DJI FPV",
	32: "DJI Air 2S",
	33: "DJI Mini SE",
	34: "DJI Mavic 3",
	35: "DJI Mini 3 Pro",
}

// DecodeDJI decodes a proprietary DroneID vendor payload into the common
// message shape: a Basic-ID with the airframe serial, a Location, and a
// System message carrying the pilot position. The designation hint is the
// product lookup, when the type byte is known.
func DecodeDJI(data []byte) ([]domain.RemoteIDMessage, string, error) {
	if len(data) < djiMinPayload {
		return nil, "", fmt.Errorf("droneid payload too short: %d bytes", len(data))
	}
	if data[0] != djiSubtypeFlightInfo {
		return nil, "", fmt.Errorf("unsupported droneid subtype 0x%02x", data[0])
	}

	serial := trimID(data[djiOffSerial : djiOffSerial+16])
	basic := domain.RemoteIDMessage{
		Type:   domain.MessageBasicID,
		IDType: domain.IDTypeSerialNumber,
		ID:     serial,
	}

	loc := domain.RemoteIDMessage{Type: domain.MessageLocation}
	lat := djiAngle(data[djiOffLat : djiOffLat+4])
	lon := djiAngle(data[djiOffLon : djiOffLon+4])
	if lat != nil && lon != nil {
		loc.Latitude = lat
		loc.Longitude = lon
	}

	alt := float64(int16(binary.LittleEndian.Uint16(data[djiOffAltitude:djiOffAltitude+2]))) / 10
	height := float64(int16(binary.LittleEndian.Uint16(data[djiOffHeight:djiOffHeight+2]))) / 10
	heightType := domain.HeightAboveTakeoff
	loc.AltitudeGeodetic = &alt
	loc.Height = &height
	loc.HeightType = &heightType

	vn := float64(int16(binary.LittleEndian.Uint16(data[djiOffVNorth:djiOffVNorth+2]))) / 100
	ve := float64(int16(binary.LittleEndian.Uint16(data[djiOffVEast:djiOffVEast+2]))) / 100
	vu := float64(int16(binary.LittleEndian.Uint16(data[djiOffVUp:djiOffVUp+2]))) / 100
	speed := math.Hypot(vn, ve)
	loc.Speed = &speed
	loc.VerticalSpeed = &vu

	yaw := float64(int16(binary.LittleEndian.Uint16(data[djiOffYaw:djiOffYaw+2]))) / 100
	track := math.Mod(yaw+360, 360)
	loc.Track = &track

	msgs := []domain.RemoteIDMessage{basic, loc}

	pilotLat := djiAngle(data[djiOffPilotLat : djiOffPilotLat+4])
	pilotLon := djiAngle(data[djiOffPilotLon : djiOffPilotLon+4])
	if pilotLat != nil && pilotLon != nil {
		locType := 1 // dynamic: the DJI pilot position follows the controller
		msgs = append(msgs, domain.RemoteIDMessage{
			Type:                 domain.MessageSystem,
			OperatorLatitude:     pilotLat,
			OperatorLongitude:    pilotLon,
			OperatorLocationType: &locType,
		})
	}

	designation := ""
	if len(data) > djiOffProduct {
		designation = djiProducts[data[djiOffProduct]]
	}

	return msgs, designation, nil
}

// djiAngle converts a DroneID scaled angle; zero means no fix.
func djiAngle(b []byte) *float64 {
	raw := int32(binary.LittleEndian.Uint32(b))
	if raw == 0 {
		return nil
	}
	v := float64(raw) / djiLatLonScale
	if math.Abs(v) > 180 {
		return nil
	}
	return &v
}
