package capture

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/K13094/tap/internal/core/domain"
)

// The dissector is driven with a kernel-level capture filter only. A
// display filter (-Y) would discard frames before the parser sees them, so
// one is never passed.
const captureFilter = "type mgt"

// fieldList is the deterministic per-line field order requested from the
// dissector. Parsing below indexes into it.
var fieldList = []string{
	"frame.time_epoch",
	"wlan.sa",
	"wlan_radio.channel",
	"wlan_radio.signal_dbm",
	"wlan.fc.type_subtype",
	"wlan.ssid",
	"wlan.tag.oui",
	"wlan.tag.vendor.data",
}

// Args builds the dissector command line for an interface.
func Args(iface string) []string {
	args := []string{
		"-i", iface,
		"-I", // monitor mode
		"-l", // line-buffered stdout
		"-n",
		"-f", captureFilter,
		"-T", "fields",
		"-E", "separator=/t",
		"-E", "occurrence=a",
		"-E", "aggregator=,",
	}
	for _, f := range fieldList {
		args = append(args, "-e", f)
	}
	return args
}

// parseLine turns one dissector output line into a frame record.
func parseLine(line string) (*domain.FrameRecord, error) {
	cols := strings.Split(line, "\t")
	if len(cols) != len(fieldList) {
		return nil, fmt.Errorf("got %d columns, want %d", len(cols), len(fieldList))
	}

	epoch, err := strconv.ParseFloat(cols[0], 64)
	if err != nil {
		return nil, fmt.Errorf("timestamp %q: %w", cols[0], err)
	}
	sec, frac := math.Modf(epoch)
	ts := time.Unix(int64(sec), int64(frac*1e9))

	mac := strings.ToLower(strings.TrimSpace(cols[1]))
	if mac == "" {
		return nil, fmt.Errorf("frame without source address")
	}

	rec := &domain.FrameRecord{
		Timestamp: ts,
		SourceMAC: mac,
		Fields:    make(map[string]string, len(fieldList)),
	}
	for i, name := range fieldList {
		if cols[i] != "" {
			rec.Fields[name] = cols[i]
		}
	}

	if cols[2] != "" {
		if ch, err := strconv.Atoi(cols[2]); err == nil {
			rec.Channel = ch
		}
	}
	if cols[3] != "" {
		// Some radios report fractional dBm; the report field is integer.
		if dbm, err := strconv.ParseFloat(strings.Split(cols[3], ",")[0], 64); err == nil {
			v := int(dbm)
			rec.RSSI = &v
		}
	}
	if cols[4] != "" {
		if st, err := strconv.ParseUint(strings.TrimPrefix(cols[4], "0x"), 16, 16); err == nil {
			rec.Subtype = uint8(st)
		}
	}
	if cols[5] != "" {
		rec.SSID = strings.Split(cols[5], ",")[0]
	}

	rec.VendorElements = vendorElements(cols[6], cols[7])
	return rec, nil
}

// vendorElements zips the aggregated OUI and vendor-data columns. The
// dissector emits one occurrence of each per vendor tag, in frame order.
func vendorElements(ouiCol, dataCol string) []domain.VendorElement {
	if ouiCol == "" || dataCol == "" {
		return nil
	}
	ouis := strings.Split(ouiCol, ",")
	datas := strings.Split(dataCol, ",")

	n := len(ouis)
	if len(datas) < n {
		n = len(datas)
	}

	var out []domain.VendorElement
	for i := 0; i < n; i++ {
		oui, ok := parseOUI(ouis[i])
		if !ok {
			continue
		}
		data, err := parseHexBytes(datas[i])
		if err != nil || len(data) == 0 {
			continue
		}
		out = append(out, domain.VendorElement{OUI: oui, Data: data})
	}
	return out
}

// parseOUI accepts both renderings the dissector uses for a 24-bit OUI:
// colon-separated hex and a plain decimal integer.
func parseOUI(s string) ([3]byte, bool) {
	var oui [3]byte
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		b, err := parseHexBytes(s)
		if err != nil || len(b) != 3 {
			return oui, false
		}
		copy(oui[:], b)
		return oui, true
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v > 0xFFFFFF {
		return oui, false
	}
	oui[0] = byte(v >> 16)
	oui[1] = byte(v >> 8)
	oui[2] = byte(v)
	return oui, true
}

// parseHexBytes decodes hex with or without colon separators.
func parseHexBytes(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ":", "")
	return hex.DecodeString(s)
}
