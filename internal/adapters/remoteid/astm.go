package remoteid

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/K13094/tap/internal/core/domain"
)

// ASTM F3411 broadcast constants. Remote-ID rides in a vendor-specific
// element under the OUI assigned to ASTM International, with a one-byte
// vendor type followed by a message counter and the message data.
const (
	astmVendorType = 0x0D
	messageLen     = 25
)

// ASTMOUI is the vendor-specific element OUI carrying Remote-ID.
var ASTMOUI = [3]byte{0xFA, 0x0B, 0xBC}

// Accuracy enums map to the metric bounds of the ASTM tables. Index 0 is
// "unknown" and decodes to nil.
var (
	horizAccuracyMeters = []float64{0, 18520, 7408, 3704, 1852, 926, 555.6, 185.2, 92.6, 30, 10, 3, 1}
	vertAccuracyMeters  = []float64{0, 150, 45, 25, 10, 3, 1}
	speedAccuracyMS     = []float64{0, 10, 3, 1, 0.3}
)

// DecodeASTM decodes the payload of a Remote-ID vendor element (bytes after
// the OUI). It returns every message present, including all members of a
// message pack.
func DecodeASTM(data []byte) ([]domain.RemoteIDMessage, error) {
	if len(data) < 2+messageLen {
		return nil, fmt.Errorf("remote-id element too short: %d bytes", len(data))
	}
	if data[0] != astmVendorType {
		return nil, fmt.Errorf("unexpected vendor type 0x%02x", data[0])
	}
	// data[1] is the message counter; it only matters for de-duplication on
	// lossy links and is ignored here.
	return decodeMessages(data[2:])
}

// decodeMessages handles a single message or a message pack.
func decodeMessages(data []byte) ([]domain.RemoteIDMessage, error) {
	if len(data) < messageLen {
		return nil, fmt.Errorf("truncated message: %d bytes", len(data))
	}
	mtype := domain.MessageType(data[0] >> 4)
	if mtype != domain.MessagePack {
		msg, err := decodeMessage(data[:messageLen])
		if err != nil {
			return nil, err
		}
		return []domain.RemoteIDMessage{msg}, nil
	}

	// Message pack: header byte, message size, message count, then the
	// packed fixed-length messages.
	if len(data) < 3 {
		return nil, fmt.Errorf("truncated message pack header")
	}
	size := int(data[1])
	count := int(data[2])
	if size != messageLen {
		return nil, fmt.Errorf("message pack size %d, want %d", size, messageLen)
	}
	if count <= 0 || len(data) < 3+count*size {
		return nil, fmt.Errorf("message pack claims %d messages in %d bytes", count, len(data))
	}

	out := make([]domain.RemoteIDMessage, 0, count)
	for i := 0; i < count; i++ {
		chunk := data[3+i*size : 3+(i+1)*size]
		msg, err := decodeMessage(chunk)
		if err != nil {
			return nil, fmt.Errorf("pack member %d: %w", i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func decodeMessage(b []byte) (domain.RemoteIDMessage, error) {
	mtype := domain.MessageType(b[0] >> 4)
	switch mtype {
	case domain.MessageBasicID:
		return decodeBasicID(b), nil
	case domain.MessageLocation:
		return decodeLocation(b), nil
	case domain.MessageAuth:
		return decodeAuth(b), nil
	case domain.MessageSelfID:
		return decodeSelfID(b), nil
	case domain.MessageSystem:
		return decodeSystem(b), nil
	case domain.MessageOperatorID:
		return decodeOperatorID(b), nil
	case domain.MessagePack:
		return domain.RemoteIDMessage{}, fmt.Errorf("nested message pack")
	default:
		return domain.RemoteIDMessage{}, fmt.Errorf("unknown message type %d", mtype)
	}
}

func decodeBasicID(b []byte) domain.RemoteIDMessage {
	ua := int(b[1] & 0x0F)
	return domain.RemoteIDMessage{
		Type:   domain.MessageBasicID,
		IDType: domain.IDType(b[1] >> 4),
		UAType: &ua,
		ID:     trimID(b[2:22]),
	}
}

func decodeLocation(b []byte) domain.RemoteIDMessage {
	status := int(b[1] >> 4)
	heightType := int(b[1]>>2) & 0x1
	ewDir := (b[1] >> 1) & 0x1
	speedMult := b[1] & 0x1

	msg := domain.RemoteIDMessage{
		Type:       domain.MessageLocation,
		Status:     &status,
		HeightType: &heightType,
	}

	if b[2] <= 179 {
		track := float64(b[2])
		if ewDir == 1 {
			track += 180
		}
		msg.Track = &track
	}

	if b[3] != 255 {
		var speed float64
		if speedMult == 0 {
			speed = float64(b[3]) * 0.25
		} else {
			speed = float64(b[3])*0.75 + 255*0.25
		}
		msg.Speed = &speed
	}

	if vs := int8(b[4]); vs != 63 { // 63 = invalid/no value
		v := float64(vs) * 0.5
		msg.VerticalSpeed = &v
	}

	lat := decodeLatLon(b[5:9])
	lon := decodeLatLon(b[9:13])
	if lat != nil || lon != nil {
		msg.Latitude = lat
		msg.Longitude = lon
	}

	msg.AltitudePressure = decodeAltitude(b[13:15])
	msg.AltitudeGeodetic = decodeAltitude(b[15:17])
	msg.Height = decodeAltitude(b[17:19])

	msg.VertAccuracy = accuracyLookup(vertAccuracyMeters, int(b[19]>>4))
	msg.HorizAccuracy = accuracyLookup(horizAccuracyMeters, int(b[19]&0x0F))
	msg.BaroAccuracy = accuracyLookup(vertAccuracyMeters, int(b[20]>>4))
	msg.SpeedAccuracy = accuracyLookup(speedAccuracyMS, int(b[20]&0x0F))

	return msg
}

func decodeAuth(b []byte) domain.RemoteIDMessage {
	authType := int(b[1] >> 4)
	page := int(b[1] & 0x0F)
	msg := domain.RemoteIDMessage{
		Type:     domain.MessageAuth,
		AuthType: &authType,
	}
	if page == 0 {
		// Page 0 carries page count, total length and a timestamp before
		// the first data chunk.
		msg.AuthData = append([]byte(nil), b[8:25]...)
	} else {
		msg.AuthData = append([]byte(nil), b[2:25]...)
	}
	return msg
}

func decodeSelfID(b []byte) domain.RemoteIDMessage {
	descType := int(b[1])
	return domain.RemoteIDMessage{
		Type:        domain.MessageSelfID,
		SelfIDType:  &descType,
		Description: trimID(b[2:25]),
	}
}

func decodeSystem(b []byte) domain.RemoteIDMessage {
	locType := int(b[1] & 0x03)
	classType := int(b[1]>>2) & 0x07

	msg := domain.RemoteIDMessage{
		Type:                 domain.MessageSystem,
		OperatorLocationType: &locType,
	}

	msg.OperatorLatitude = decodeLatLon(b[2:6])
	msg.OperatorLongitude = decodeLatLon(b[6:10])

	count := int(binary.LittleEndian.Uint16(b[10:12]))
	msg.AreaCount = &count

	radius := float64(b[12]) * 10
	msg.AreaRadius = &radius

	msg.AreaCeiling = decodeAltitude(b[13:15])
	msg.AreaFloor = decodeAltitude(b[15:17])

	// EU category/class are only meaningful under the EU classification
	// regime.
	if classType == 1 {
		cat := int(b[17] >> 4)
		class := int(b[17] & 0x0F)
		msg.CategoryEU = &cat
		msg.ClassEU = &class
	}

	msg.OperatorAltitude = decodeAltitude(b[18:20])

	return msg
}

func decodeOperatorID(b []byte) domain.RemoteIDMessage {
	opType := int(b[1])
	return domain.RemoteIDMessage{
		Type:           domain.MessageOperatorID,
		OperatorIDType: &opType,
		OperatorID:     trimID(b[2:22]),
	}
}

// decodeLatLon reads a 1e-7 degree scaled int32. Zero is the ASTM "unknown"
// sentinel.
func decodeLatLon(b []byte) *float64 {
	raw := int32(binary.LittleEndian.Uint32(b))
	if raw == 0 {
		return nil
	}
	v := float64(raw) * 1e-7
	if math.Abs(v) > 180 {
		return nil
	}
	return &v
}

// decodeAltitude reads a 0.5 m resolution uint16 biased by +1000 m. Raw 0
// (-1000 m) is the "unknown" sentinel.
func decodeAltitude(b []byte) *float64 {
	raw := binary.LittleEndian.Uint16(b)
	if raw == 0 {
		return nil
	}
	v := float64(raw)*0.5 - 1000
	return &v
}

func accuracyLookup(table []float64, idx int) *float64 {
	if idx <= 0 || idx >= len(table) {
		return nil
	}
	v := table[idx]
	return &v
}

// trimID strips the null padding of fixed-width ASTM text fields.
func trimID(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}
