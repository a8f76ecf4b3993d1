// Package capability holds the static model-capability table: read-only
// metadata keyed by the model identifier a device reports in its state
// responses. The table is embedded JSON, validated against a JSON Schema at
// load, and injected into the session and state layers — never mutated at
// runtime.
package capability

import (
	"github.com/ledstack/ledwifi/pkg/protocol"
)

// ColorMode is a logical color mode a fixture can run in.
type ColorMode string

const (
	ColorModeRGB   ColorMode = "RGB"
	ColorModeRGBW  ColorMode = "RGBW"
	ColorModeRGBWW ColorMode = "RGBWW"
	ColorModeCCT   ColorMode = "CCT"
	ColorModeDIM   ColorMode = "DIM"
)

// Entry describes what one model supports.
type Entry struct {
	Model   byte
	Name    string
	Dialect protocol.Dialect

	// ColorModes is the supported set; pairs like {RGB,CCT} are split
	// modes where the active white channel decides which one applies.
	ColorModes []ColorMode

	// ModeToColorMode maps the raw mode byte to a color mode for models
	// that report it explicitly. Consulted after the split-mode special
	// cases.
	ModeToColorMode map[byte]ColorMode

	// AlwaysWritesWhiteAndColors forces WriteMaskAll on every levels
	// command: some firmware ignores partial masks.
	AlwaysWritesWhiteAndColors bool

	// ChannelRemap maps logical channel fields to the wire position the
	// firmware actually uses (e.g. single-channel dimmers report their
	// level on the red byte).
	ChannelRemap map[string]string

	Addressable bool
	Microphone  bool
	SwitchOnly  bool

	// PushUpdates marks firmware that sends unsolicited state messages;
	// sessions suppress active polling for these beyond a liveness
	// interval.
	PushUpdates bool
}

// Supports reports whether the entry's color-mode set contains m.
func (e Entry) Supports(m ColorMode) bool {
	for _, cm := range e.ColorModes {
		if cm == m {
			return true
		}
	}
	return false
}

// RemapField resolves the wire field backing a logical channel field.
func (e Entry) RemapField(field string) string {
	if mapped, ok := e.ChannelRemap[field]; ok {
		return mapped
	}
	return field
}
