package remoteid

import "strings"

// ssidPatterns maps SSID prefixes broadcast by UAV access points to a model
// family. Matching is case-insensitive prefix match. Loaded once at
// startup; not a plug-in surface.
var ssidPatterns = map[string]string{
	"dji-":     "DJI",
	"dji_":     "DJI",
	"mavic":    "DJI Mavic",
	"phantom":  "DJI Phantom",
	"spark-":   "DJI Spark",
	"tello-":   "Ryze Tello",
	"anafi":    "Parrot Anafi",
	"bebop":    "Parrot Bebop",
	"parrot":   "Parrot",
	"skydio":   "Skydio",
	"autel":    "Autel",
	"evo-":     "Autel EVO",
	"yuneec":   "Yuneec",
	"breeze":   "Yuneec Breeze",
	"poweregg": "PowerVision PowerEgg",
}

// ouiVendors maps the first three MAC octets of known UAV radios to a
// vendor name. Only manufacturers that ship airframes, not generic WiFi
// chipset OUIs.
var ouiVendors = map[string]string{
	"60:60:1f": "DJI",
	"34:d2:62": "DJI",
	"48:1c:b9": "DJI",
	"e4:7a:2c": "DJI",
	"90:3a:e6": "Parrot",
	"a0:14:3d": "Parrot",
	"00:12:1c": "Parrot",
	"00:26:7e": "Parrot",
	"38:e2:6e": "Skydio",
	"d8:12:65": "Autel Robotics",
	"e0:b6:f5": "Yuneec",
}

// Fingerprint applies the WiFi-only heuristics: an SSID pattern or a UAV
// vendor OUI that strongly indicates an airframe with no Remote-ID
// broadcast. Returns the designation hint and whether anything matched.
func Fingerprint(mac, ssid string) (string, bool) {
	lower := strings.ToLower(ssid)
	for prefix, model := range ssidPatterns {
		if strings.HasPrefix(lower, prefix) {
			return model, true
		}
	}
	if len(mac) >= 8 {
		if vendor, ok := ouiVendors[mac[:8]]; ok {
			return vendor, true
		}
	}
	return "", false
}
