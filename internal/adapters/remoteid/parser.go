package remoteid

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/K13094/tap/internal/core/domain"
)

// Parser turns frame records into detection events. It holds no state
// beyond its logger; decoding never blocks and never panics on malformed
// payloads.
type Parser struct {
	log zerolog.Logger
}

// NewParser creates a parser logging through the given logger.
func NewParser(log zerolog.Logger) *Parser {
	return &Parser{log: log.With().Str("component", "parser").Logger()}
}

// Parse decodes one frame. It returns (nil, nil) for frames that carry
// nothing of interest, (event, nil) on success, and (nil, err) for payloads
// that looked like Remote-ID or DroneID but failed to decode — the caller
// counts those.
func (p *Parser) Parse(frame *domain.FrameRecord) (*domain.DetectionEvent, error) {
	var (
		messages []domain.RemoteIDMessage
		source   domain.DetectionSource
		hint     string
	)

	for _, ve := range frame.VendorElements {
		switch ve.OUI {
		case ASTMOUI:
			msgs, err := DecodeASTM(ve.Data)
			if err != nil {
				return nil, fmt.Errorf("astm: %w", err)
			}
			messages = append(messages, msgs...)
			// Standard Remote-ID wins the source attribution when a frame
			// carries both element kinds.
			source = domain.SourceRemoteID
		case DJIOUI:
			msgs, designation, err := DecodeDJI(ve.Data)
			if err != nil {
				return nil, fmt.Errorf("dji: %w", err)
			}
			messages = append(messages, msgs...)
			hint = designation
			if source == "" {
				source = domain.SourceDJIDroneID
			}
		}
	}

	if source == domain.SourceRemoteID && !usableRemoteID(messages) {
		// A Remote-ID broadcast with no identity and no position tells the
		// collector nothing it can correlate on.
		return nil, nil
	}

	if len(messages) > 0 {
		p.log.Trace().Str("mac", frame.SourceMAC).Int("messages", len(messages)).
			Str("source", string(source)).Msg("decoded remote-id payload")
		return &domain.DetectionEvent{
			Source:          source,
			Frame:           frame,
			Messages:        messages,
			DesignationHint: hint,
		}, nil
	}

	// No Remote-ID present: fall back to the WiFi fingerprint heuristics.
	if model, ok := Fingerprint(frame.SourceMAC, frame.SSID); ok {
		p.log.Trace().Str("mac", frame.SourceMAC).Str("ssid", frame.SSID).
			Msg("fingerprint match")
		return &domain.DetectionEvent{
			Source:          domain.SourceWiFiFingerprint,
			Frame:           frame,
			DesignationHint: model,
		}, nil
	}

	return nil, nil
}

// usableRemoteID applies the minimum-content rule: a standard Remote-ID
// event must carry a serial, a registration, or a position fix.
func usableRemoteID(msgs []domain.RemoteIDMessage) bool {
	for _, m := range msgs {
		switch m.Type {
		case domain.MessageBasicID:
			if m.ID != "" && (m.IDType == domain.IDTypeSerialNumber || m.IDType == domain.IDTypeRegistration) {
				return true
			}
		case domain.MessageLocation:
			if m.Latitude != nil {
				return true
			}
		}
	}
	return false
}
