package tracker

import (
	"math"

	"github.com/K13094/tap/internal/core/domain"
)

// Heuristic thresholds. Civilian multirotors do not cross these.
const (
	teleportDistanceM   = 1000
	teleportWindowS     = 2.0
	maxPlausibleSpeedMS = 100
	maxAltitudeM        = 10000
	minAltitudeM        = -500
	operatorJumpM       = 10000
)

// spoofWeights are subtracted from the trust base of 100 per flag present.
var spoofWeights = map[string]int{
	domain.FlagTeleportation:      50,
	domain.FlagImpossibleSpeed:    30,
	domain.FlagImpossibleAltitude: 20,
	domain.FlagIdentityChurn:      40,
	domain.FlagOperatorTeleport:   20,
	domain.FlagMissingRequired:    10,
}

// Observation is the spoof detector's view of one update: the relevant
// slice of the previous state and the values the new event carries.
type Observation struct {
	PrevSerial      *string
	PrevFix         *domain.PositionFix
	PrevOperatorLat *float64
	PrevOperatorLon *float64

	NewSerial      *string
	NewFix         *domain.PositionFix
	NewOperatorLat *float64
	NewOperatorLon *float64

	Speed            *float64
	AltitudeGeodetic *float64

	// Location-message context for the missing-required rule.
	HasLocation bool
	HasPosition bool
	Status      *int
}

// DetectSpoof is a pure function of one observation; it returns the flags
// the update raises. Accumulation and scoring live on the state.
func DetectSpoof(obs Observation) []string {
	var flags []string

	if obs.PrevFix != nil && obs.NewFix != nil {
		dt := obs.NewFix.Timestamp.Sub(obs.PrevFix.Timestamp).Seconds()
		dist := haversineMeters(obs.PrevFix.Latitude, obs.PrevFix.Longitude,
			obs.NewFix.Latitude, obs.NewFix.Longitude)
		if dist > teleportDistanceM && dt >= 0 && dt < teleportWindowS {
			flags = append(flags, domain.FlagTeleportation)
		}
	}

	if obs.Speed != nil && *obs.Speed > maxPlausibleSpeedMS {
		flags = append(flags, domain.FlagImpossibleSpeed)
	}

	if obs.AltitudeGeodetic != nil &&
		(*obs.AltitudeGeodetic > maxAltitudeM || *obs.AltitudeGeodetic < minAltitudeM) {
		flags = append(flags, domain.FlagImpossibleAltitude)
	}

	if obs.PrevSerial != nil && obs.NewSerial != nil &&
		*obs.PrevSerial != "" && *obs.NewSerial != "" &&
		*obs.PrevSerial != *obs.NewSerial {
		flags = append(flags, domain.FlagIdentityChurn)
	}

	if obs.PrevOperatorLat != nil && obs.PrevOperatorLon != nil &&
		obs.NewOperatorLat != nil && obs.NewOperatorLon != nil {
		dist := haversineMeters(*obs.PrevOperatorLat, *obs.PrevOperatorLon,
			*obs.NewOperatorLat, *obs.NewOperatorLon)
		if dist > operatorJumpM {
			flags = append(flags, domain.FlagOperatorTeleport)
		}
	}

	if obs.HasLocation && !obs.HasPosition &&
		obs.Status != nil && *obs.Status == domain.StatusAirborne {
		flags = append(flags, domain.FlagMissingRequired)
	}

	return flags
}

// Score computes 100 minus the accumulated flag weights, floored at 0.
func Score(flags map[string]struct{}) int {
	score := 100
	for f := range flags {
		score -= spoofWeights[f]
	}
	if score < 0 {
		score = 0
	}
	return score
}

const earthRadiusM = 6371000

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
