package tracker

// serialPrefixModels maps CTA-2063-A manufacturer codes (the first four
// characters of a serial) to a maker name. Used when no richer hint is
// available from the DJI product table or the fingerprint patterns.
var serialPrefixModels = map[string]string{
	"1581": "DJI",
	"1596": "DJI",
	"15D8": "DJI",
	"1749": "Parrot",
	"1788": "Skydio",
	"1824": "Autel Robotics",
	"187E": "Yuneec",
	"1CB9": "Wing",
}

// designate picks the best-effort model name: an explicit hint from the
// decoder (DJI product table, fingerprint match) wins over the serial
// prefix lookup.
func designate(hint string, serial *string) string {
	if hint != "" {
		return hint
	}
	if serial != nil && len(*serial) >= 4 {
		if maker, ok := serialPrefixModels[(*serial)[:4]]; ok {
			return maker
		}
	}
	return ""
}
