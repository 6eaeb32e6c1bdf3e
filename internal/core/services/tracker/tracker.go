package tracker

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/K13094/tap/internal/core/domain"
)

// Tracker owns the per-airframe state table. It is confined to the
// processor task: no locking, updates for one MAC are applied in arrival
// order.
type Tracker struct {
	log    zerolog.Logger
	ttl    time.Duration
	states map[string]*domain.UavState
}

// New creates a tracker evicting airframes not seen for ttl.
func New(log zerolog.Logger, ttl time.Duration) *Tracker {
	return &Tracker{
		log:    log.With().Str("component", "tracker").Logger(),
		ttl:    ttl,
		states: make(map[string]*domain.UavState),
	}
}

// Len returns the number of tracked airframes.
func (t *Tracker) Len() int { return len(t.states) }

// Update fuses one detection event into the state table and returns the
// state ready to be reported.
func (t *Tracker) Update(ev *domain.DetectionEvent) *domain.UavState {
	frame := ev.Frame
	mac := strings.ToLower(frame.SourceMAC)

	st, ok := t.states[mac]
	if !ok {
		st = domain.NewUavState(mac, frame.Timestamp)
		t.states[mac] = st
		t.log.Debug().Str("mac", mac).Str("source", string(ev.Source)).Msg("new airframe")
	}

	// Snapshot the slice of previous state the spoof heuristics compare
	// against, before any mutation.
	obs := Observation{
		PrevSerial:      st.Serial,
		PrevFix:         st.LastFix(),
		PrevOperatorLat: st.OperatorLatitude,
		PrevOperatorLon: st.OperatorLongitude,
	}

	st.LastSeen = frame.Timestamp
	if sourceRank(ev.Source) > sourceRank(st.Source) {
		st.Source = ev.Source
	}

	if frame.RSSI != nil {
		st.RSSI = frame.RSSI
	}
	if frame.SSID != "" {
		st.SSID = frame.SSID
	}
	for k, v := range frame.Fields {
		st.RawFields[k] = v
	}

	var eventLat, eventLon, eventAlt *float64
	for i := range ev.Messages {
		m := &ev.Messages[i]
		st.MessageTypes[int(m.Type)] = struct{}{}

		switch m.Type {
		case domain.MessageBasicID:
			applyBasicID(st, m)
		case domain.MessageLocation:
			obs.HasLocation = true
			if m.Latitude != nil && m.Longitude != nil {
				obs.HasPosition = true
				eventLat, eventLon = m.Latitude, m.Longitude
			}
			if m.AltitudeGeodetic != nil {
				eventAlt = m.AltitudeGeodetic
			}
			applyLocation(st, m)
		case domain.MessageAuth:
			setInt(&st.AuthType, m.AuthType)
			if m.AuthData != nil {
				st.AuthData = m.AuthData
			}
		case domain.MessageSelfID:
			setInt(&st.SelfIDType, m.SelfIDType)
			setString(&st.SelfIDDescription, m.Description)
		case domain.MessageSystem:
			applySystem(st, m)
		case domain.MessageOperatorID:
			setString(&st.OperatorID, m.OperatorID)
		}
	}

	// The new fix, when the event carried a position.
	if eventLat != nil && eventLon != nil {
		alt := 0.0
		if eventAlt != nil {
			alt = *eventAlt
		}
		fix := domain.PositionFix{
			Timestamp: frame.Timestamp,
			Latitude:  *eventLat,
			Longitude: *eventLon,
			Altitude:  alt,
		}
		obs.NewFix = &fix
		st.PushFix(fix)
	}

	obs.NewSerial = st.Serial
	obs.NewOperatorLat = st.OperatorLatitude
	obs.NewOperatorLon = st.OperatorLongitude
	obs.Speed = st.Speed
	obs.AltitudeGeodetic = st.AltitudeGeodetic
	obs.Status = st.Status

	for _, flag := range DetectSpoof(obs) {
		if _, dup := st.SpoofFlags[flag]; !dup {
			t.log.Warn().Str("mac", mac).Str("flag", flag).Msg("spoof heuristic raised")
		}
		st.SpoofFlags[flag] = struct{}{}
	}
	st.TrustScore = Score(st.SpoofFlags)

	st.Identifier = st.ElectIdentifier()
	if d := designate(ev.DesignationHint, st.Serial); d != "" {
		st.Designation = d
	}

	return st
}

// applyBasicID routes the identifier by its declared type.
func applyBasicID(st *domain.UavState, m *domain.RemoteIDMessage) {
	if m.ID != "" {
		id := m.ID
		switch m.IDType {
		case domain.IDTypeSerialNumber:
			st.Serial = &id
		case domain.IDTypeRegistration:
			st.Registration = &id
		case domain.IDTypeUTMUUID:
			st.UTMID = &id
		case domain.IDTypeSessionID:
			st.SessionID = &id
		}
	}
	setInt(&st.UAType, m.UAType)
}

func applyLocation(st *domain.UavState, m *domain.RemoteIDMessage) {
	setInt(&st.Status, m.Status)
	setInt(&st.HeightType, m.HeightType)
	setFloat(&st.Track, m.Track)
	setFloat(&st.Speed, m.Speed)
	setFloat(&st.VerticalSpeed, m.VerticalSpeed)
	setFloat(&st.Latitude, m.Latitude)
	setFloat(&st.Longitude, m.Longitude)
	setFloat(&st.AltitudePressure, m.AltitudePressure)
	setFloat(&st.AltitudeGeodetic, m.AltitudeGeodetic)
	setFloat(&st.Height, m.Height)
	setFloat(&st.HorizAccuracy, m.HorizAccuracy)
	setFloat(&st.VertAccuracy, m.VertAccuracy)
	setFloat(&st.BaroAccuracy, m.BaroAccuracy)
	setFloat(&st.SpeedAccuracy, m.SpeedAccuracy)
}

func applySystem(st *domain.UavState, m *domain.RemoteIDMessage) {
	setFloat(&st.OperatorLatitude, m.OperatorLatitude)
	setFloat(&st.OperatorLongitude, m.OperatorLongitude)
	setFloat(&st.OperatorAltitude, m.OperatorAltitude)
	setInt(&st.OperatorLocationType, m.OperatorLocationType)
	setInt(&st.AreaCount, m.AreaCount)
	setFloat(&st.AreaRadius, m.AreaRadius)
	setFloat(&st.AreaCeiling, m.AreaCeiling)
	setFloat(&st.AreaFloor, m.AreaFloor)
	setInt(&st.CategoryEU, m.CategoryEU)
	setInt(&st.ClassEU, m.ClassEU)
}

// Evict removes airframes whose last update is older than the ttl and
// returns how many were dropped. Eviction emits nothing; staleness is the
// collector's concern.
func (t *Tracker) Evict(now time.Time) int {
	n := 0
	for mac, st := range t.states {
		if now.Sub(st.LastSeen) > t.ttl {
			delete(t.states, mac)
			n++
			t.log.Debug().Str("mac", mac).Msg("airframe evicted")
		}
	}
	return n
}

// Non-null overwrite: a later observation only replaces a field when it
// actually carries a value.

func setFloat(dst **float64, src *float64) {
	if src != nil {
		*dst = src
	}
}

func setInt(dst **int, src *int) {
	if src != nil {
		*dst = src
	}
}

func setString(dst **string, src string) {
	if src != "" {
		s := src
		*dst = &s
	}
}

func sourceRank(s domain.DetectionSource) int {
	switch s {
	case domain.SourceRemoteID:
		return 3
	case domain.SourceDJIDroneID:
		return 2
	case domain.SourceWiFiFingerprint:
		return 1
	default:
		return 0
	}
}
