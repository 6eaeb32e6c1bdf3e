package tracker

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K13094/tap/internal/core/domain"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func basicID(serial string) domain.RemoteIDMessage {
	return domain.RemoteIDMessage{
		Type:   domain.MessageBasicID,
		IDType: domain.IDTypeSerialNumber,
		UAType: i(2),
		ID:     serial,
	}
}

func location(lat, lon, alt, speed float64) domain.RemoteIDMessage {
	status := domain.StatusAirborne
	return domain.RemoteIDMessage{
		Type:             domain.MessageLocation,
		Status:           &status,
		Latitude:         f64(lat),
		Longitude:        f64(lon),
		AltitudeGeodetic: f64(alt),
		Speed:            f64(speed),
	}
}

func event(mac string, at time.Time, msgs ...domain.RemoteIDMessage) *domain.DetectionEvent {
	rssi := -62
	return &domain.DetectionEvent{
		Source: domain.SourceRemoteID,
		Frame: &domain.FrameRecord{
			Timestamp: at,
			Subtype:   domain.SubtypeBeacon,
			SourceMAC: mac,
			Channel:   6,
			RSSI:      &rssi,
			Fields:    map[string]string{"wlan.sa": mac},
		},
		Messages: msgs,
	}
}

func newTracker() *Tracker {
	return New(zerolog.Nop(), 60*time.Second)
}

func TestUpdate_BasicRemoteIDBeacon(t *testing.T) {
	tr := newTracker()

	st := tr.Update(event("aa:bb:cc:00:00:01", t0,
		basicID("1596F3BCDE000001"),
		location(47.6062, -122.3321, 120, 8),
	))

	assert.Equal(t, "1596F3BCDE000001", st.Identifier)
	assert.Equal(t, domain.SourceRemoteID, st.Source)
	assert.Empty(t, st.SpoofFlagList())
	assert.Equal(t, 100, st.TrustScore)
	assert.Equal(t, []int{0, 1}, st.MessageTypeList())
	require.NotNil(t, st.Latitude)
	assert.InDelta(t, 47.6062, *st.Latitude, 1e-9)
	assert.Equal(t, "DJI", st.Designation) // serial prefix lookup

	report := st.Report("tap-1", t0)
	assert.Equal(t, "uav_report", report.Type)
	assert.Equal(t, 1, report.ProtocolVersion)
	assert.Equal(t, st.Identifier, report.Identifier)
	assert.Equal(t, "RemoteIdWiFi", report.DetectionSource)
}

func TestUpdate_SameFrameTwiceAgreesExceptTimestamp(t *testing.T) {
	tr := newTracker()
	mk := func(at time.Time) *domain.DetectionEvent {
		return event("aa:bb:cc:00:00:09", at, basicID("1596AAAA00000001"), location(47.6, -122.3, 100, 5))
	}

	r1 := tr.Update(mk(t0)).Report("tap-1", t0)
	r2 := tr.Update(mk(t0.Add(time.Second))).Report("tap-1", t0.Add(time.Second))

	r2.Timestamp = r1.Timestamp
	assert.Equal(t, r1, r2)
}

func TestUpdate_TeleportationFlag(t *testing.T) {
	tr := newTracker()
	mac := "aa:bb:cc:00:00:02"

	tr.Update(event(mac, t0, location(47.0, -122.0, 100, 5)))
	st := tr.Update(event(mac, t0.Add(time.Second), location(48.0, -122.0, 100, 5)))

	assert.Contains(t, st.SpoofFlags, domain.FlagTeleportation)
	assert.Equal(t, 50, st.TrustScore)
}

func TestUpdate_TeleportationBoundary(t *testing.T) {
	// ~1.1 km hop: flagged under 2 s, clean above.
	cases := []struct {
		name    string
		dt      time.Duration
		flagged bool
	}{
		{"just inside window", 1900 * time.Millisecond, true},
		{"just outside window", 2100 * time.Millisecond, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTracker()
			mac := "aa:bb:cc:00:00:03"
			tr.Update(event(mac, t0, location(47.0, -122.0, 100, 5)))
			st := tr.Update(event(mac, t0.Add(tc.dt), location(47.01, -122.0, 100, 5)))

			_, flagged := st.SpoofFlags[domain.FlagTeleportation]
			assert.Equal(t, tc.flagged, flagged)
		})
	}
}

func TestUpdate_SpeedBoundary(t *testing.T) {
	tr := newTracker()

	st := tr.Update(event("aa:bb:cc:00:00:04", t0, location(47.0, -122.0, 100, 100.0)))
	assert.NotContains(t, st.SpoofFlags, domain.FlagImpossibleSpeed)
	assert.Equal(t, 100, st.TrustScore)

	st = tr.Update(event("aa:bb:cc:00:00:05", t0, location(47.0, -122.0, 100, 100.01)))
	assert.Contains(t, st.SpoofFlags, domain.FlagImpossibleSpeed)
	assert.Equal(t, 70, st.TrustScore)
}

func TestUpdate_IdentityChurn(t *testing.T) {
	tr := newTracker()
	mac := "aa:bb:cc:00:00:06"

	tr.Update(event(mac, t0, basicID("SERIALAAAA000001")))
	st := tr.Update(event(mac, t0.Add(time.Second), basicID("SERIALBBBB000002")))

	assert.Contains(t, st.SpoofFlags, domain.FlagIdentityChurn)
	assert.Equal(t, 60, st.TrustScore)
	// The newer non-null serial still wins the field.
	require.NotNil(t, st.Serial)
	assert.Equal(t, "SERIALBBBB000002", *st.Serial)
}

func TestUpdate_ImpossibleAltitude(t *testing.T) {
	tr := newTracker()
	st := tr.Update(event("aa:bb:cc:00:00:07", t0, location(47.0, -122.0, 12000, 5)))
	assert.Contains(t, st.SpoofFlags, domain.FlagImpossibleAltitude)
}

func TestUpdate_OperatorTeleport(t *testing.T) {
	tr := newTracker()
	mac := "aa:bb:cc:00:00:08"
	sys := func(lat, lon float64) domain.RemoteIDMessage {
		return domain.RemoteIDMessage{
			Type:              domain.MessageSystem,
			OperatorLatitude:  f64(lat),
			OperatorLongitude: f64(lon),
		}
	}

	tr.Update(event(mac, t0, sys(47.0, -122.0)))
	st := tr.Update(event(mac, t0.Add(time.Second), sys(47.5, -122.0))) // ~55 km
	assert.Contains(t, st.SpoofFlags, domain.FlagOperatorTeleport)
}

func TestUpdate_MissingRequiredPosition(t *testing.T) {
	tr := newTracker()
	status := domain.StatusAirborne
	st := tr.Update(event("aa:bb:cc:00:00:0a", t0, domain.RemoteIDMessage{
		Type:   domain.MessageLocation,
		Status: &status,
		Speed:  f64(4),
	}))
	assert.Contains(t, st.SpoofFlags, domain.FlagMissingRequired)
	assert.Equal(t, 90, st.TrustScore)
}

func TestUpdate_FlagsPersistAndFloorAtZero(t *testing.T) {
	tr := newTracker()
	mac := "aa:bb:cc:00:00:0b"

	// Teleport + churn + impossible speed and altitude: 50+40+30+20 > 100.
	tr.Update(event(mac, t0, basicID("SERIALAAAA000001"), location(47.0, -122.0, 100, 5)))
	st := tr.Update(event(mac, t0.Add(time.Second),
		basicID("SERIALBBBB000002"), location(48.0, -122.0, 12000, 140)))

	assert.Equal(t, 0, st.TrustScore)

	// A clean follow-up does not clear the flags.
	st = tr.Update(event(mac, t0.Add(10*time.Second), location(48.001, -122.0, 100, 5)))
	assert.Contains(t, st.SpoofFlags, domain.FlagTeleportation)
	assert.Equal(t, 0, st.TrustScore)
}

func TestUpdate_NoFieldRegression(t *testing.T) {
	tr := newTracker()
	mac := "aa:bb:cc:00:00:0c"

	tr.Update(event(mac, t0, basicID("1596F3BCDE000001"), location(47.6, -122.3, 120, 8)))
	// A later Basic-ID-only frame must not null out the position.
	st := tr.Update(event(mac, t0.Add(time.Second), basicID("1596F3BCDE000001")))

	require.NotNil(t, st.Latitude)
	assert.InDelta(t, 47.6, *st.Latitude, 1e-9)
	require.NotNil(t, st.Speed)
}

func TestUpdate_MessageTypesGrowMonotonically(t *testing.T) {
	tr := newTracker()
	mac := "aa:bb:cc:00:00:0d"

	st := tr.Update(event(mac, t0, basicID("1596F3BCDE000001")))
	assert.Equal(t, []int{0}, st.MessageTypeList())

	st = tr.Update(event(mac, t0.Add(time.Second), location(47.6, -122.3, 100, 5)))
	assert.Equal(t, []int{0, 1}, st.MessageTypeList())

	st = tr.Update(event(mac, t0.Add(2*time.Second), basicID("1596F3BCDE000001")))
	assert.Equal(t, []int{0, 1}, st.MessageTypeList())
}

func TestUpdate_IdentifierPrecedence(t *testing.T) {
	tr := newTracker()
	mac := "aa:bb:cc:00:00:0e"

	// Operator ID only.
	opType := 0
	st := tr.Update(event(mac, t0, domain.RemoteIDMessage{
		Type:           domain.MessageOperatorID,
		OperatorIDType: &opType,
		OperatorID:     "FIN87astrdge12k8",
	}))
	assert.Equal(t, "FIN87astrdge12k8", st.Identifier)

	// UTM beats operator.
	st = tr.Update(event(mac, t0, domain.RemoteIDMessage{
		Type:   domain.MessageBasicID,
		IDType: domain.IDTypeUTMUUID,
		ID:     "9e7ea81f-74e2-4dcf-a8d5-f3bc17e410b1",
	}))
	assert.Equal(t, "9e7ea81f-74e2-4dcf-a8d5-f3bc17e410b1", st.Identifier)

	// Registration beats UTM.
	st = tr.Update(event(mac, t0, domain.RemoteIDMessage{
		Type:   domain.MessageBasicID,
		IDType: domain.IDTypeRegistration,
		ID:     "N123UAV",
	}))
	assert.Equal(t, "N123UAV", st.Identifier)

	// Serial beats everything.
	st = tr.Update(event(mac, t0, basicID("1596F3BCDE000001")))
	assert.Equal(t, "1596F3BCDE000001", st.Identifier)
}

func TestUpdate_FingerprintFallbackIdentifier(t *testing.T) {
	tr := newTracker()
	ev := &domain.DetectionEvent{
		Source: domain.SourceWiFiFingerprint,
		Frame: &domain.FrameRecord{
			Timestamp: t0,
			SourceMAC: "60:60:1f:11:22:33",
			SSID:      "Mavic-Air",
			Fields:    map[string]string{},
		},
		DesignationHint: "DJI Mavic",
	}

	st := tr.Update(ev)
	assert.Equal(t, domain.HashMAC("60:60:1f:11:22:33"), st.Identifier)
	assert.Regexp(t, "^uav-[0-9a-f]{8}$", st.Identifier)
	assert.Equal(t, "DJI Mavic", st.Designation)
	assert.Equal(t, domain.SourceWiFiFingerprint, st.Source)
	assert.Equal(t, "Mavic-Air", st.SSID)
}

func TestUpdate_SourceNeverDowngrades(t *testing.T) {
	tr := newTracker()
	mac := "aa:bb:cc:00:00:0f"

	tr.Update(event(mac, t0, basicID("1596F3BCDE000001")))
	st := tr.Update(&domain.DetectionEvent{
		Source: domain.SourceWiFiFingerprint,
		Frame: &domain.FrameRecord{
			Timestamp: t0.Add(time.Second),
			SourceMAC: mac,
			Fields:    map[string]string{},
		},
	})
	assert.Equal(t, domain.SourceRemoteID, st.Source)
}

func TestEvict(t *testing.T) {
	tr := newTracker()
	tr.Update(event("aa:bb:cc:00:00:10", t0, basicID("1596F3BCDE000001")))
	tr.Update(event("aa:bb:cc:00:00:11", t0.Add(50*time.Second), basicID("1596F3BCDE000002")))
	require.Equal(t, 2, tr.Len())

	evicted := tr.Evict(t0.Add(70 * time.Second))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, tr.Len())
}

func TestPositionRingBounded(t *testing.T) {
	tr := newTracker()
	mac := "aa:bb:cc:00:00:12"

	var st *domain.UavState
	for k := 0; k < domain.PositionFixRingSize+5; k++ {
		st = tr.Update(event(mac, t0.Add(time.Duration(k)*10*time.Second),
			location(47.0+float64(k)*0.0001, -122.0, 100, 1)))
	}
	assert.Len(t, st.Fixes, domain.PositionFixRingSize)
	// Newest fix is at the tail.
	assert.InDelta(t, 47.0+float64(domain.PositionFixRingSize+4)*0.0001, st.LastFix().Latitude, 1e-9)
}
