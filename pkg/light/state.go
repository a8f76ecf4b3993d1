package light

import (
	"time"

	"github.com/ledstack/ledwifi/pkg/capability"
	"github.com/ledstack/ledwifi/pkg/protocol"
)

// Mode is the operating mode derived from a raw state snapshot.
type Mode string

const (
	ModeColor     Mode = "color"
	ModeWarmWhite Mode = "warm_white"
	ModeCustom    Mode = "custom"
	ModeMusic     Mode = "music"
	ModePreset    Mode = "preset"
	ModeSunrise   Mode = "sunrise"
	ModeSunset    Mode = "sunset"
	ModeSwitch    Mode = "switch"
	ModeUnknown   Mode = ""
)

// State turns validated RawState snapshots into derived attributes and
// arbitrates whether a new snapshot may overwrite the cached one. It is not
// safe for concurrent use; the session serializes access.
type State struct {
	entry capability.Entry

	raw    protocol.RawState
	hasRaw bool

	// transitionComplete gates channel overwrites: while a physical fade
	// is in progress the device reports misleading intermediate levels.
	transitionComplete time.Time
}

// NewState creates a state model for one capability entry.
func NewState(entry capability.Entry) *State {
	return &State{entry: entry}
}

// Entry returns the capability entry the model was built with.
func (s *State) Entry() capability.Entry { return s.entry }

// Raw returns the cached snapshot.
func (s *State) Raw() (protocol.RawState, bool) { return s.raw, s.hasRaw }

// ApplyResponse merges an inbound state response. While a transition is in
// flight only the non-channel fields are taken; the cached channel bytes
// survive until the fade deadline passes. The return value reports whether
// the snapshot produced a recognizable mode; an unknown mode is a failed
// update and the caller re-queries.
func (s *State) ApplyResponse(raw protocol.RawState, now time.Time) bool {
	if s.hasRaw && now.Before(s.transitionComplete) {
		for _, f := range protocol.ChannelFields {
			raw = raw.WithChannel(f, s.raw.Channel(f))
		}
	}
	prev, hadPrev := s.raw, s.hasRaw
	s.raw, s.hasRaw = raw, true

	if s.DetermineMode() == ModeUnknown {
		// Roll back; a structurally valid response with an
		// unrecognizable mode must not corrupt good state.
		s.raw, s.hasRaw = prev, hadPrev
		return false
	}
	return true
}

// ApplyLevels records the locally commanded channel values, rewriting only
// the named logical fields through the capability remap table so a partial
// update cannot corrupt channels it did not touch.
func (s *State) ApplyLevels(changed map[string]byte) {
	for field, v := range changed {
		s.raw = s.raw.WithChannel(s.entry.RemapField(field), v)
	}
	s.hasRaw = true
}

// ApplyPattern records a locally commanded effect pattern.
func (s *State) ApplyPattern(code, speed byte) {
	s.raw.Pattern = code
	s.raw.Speed = speed
	s.hasRaw = true
}

// SetPower overwrites the cached power bit, used when the power-retry
// protocol accepts a response that disagrees with the request.
func (s *State) SetPower(on bool) {
	if on {
		s.raw.Power = protocol.PowerOn
	} else {
		s.raw.Power = protocol.PowerOff
	}
	s.hasRaw = true
}

// MarkTransition sets the fade deadline after an outbound state-mutating
// command: fixture latency plus a fade time proportional to the effect
// speed.
func (s *State) MarkTransition(now time.Time, latency, fadePerUnit time.Duration) {
	s.transitionComplete = now.Add(latency + time.Duration(s.raw.Speed)*fadePerUnit)
}

// TransitionComplete returns the current fade deadline.
func (s *State) TransitionComplete() time.Time { return s.transitionComplete }

// channel reads a logical channel through the remap table.
func (s *State) channel(field string) byte {
	return s.raw.Channel(s.entry.RemapField(field))
}

// IsOn reports the cached power bit.
func (s *State) IsOn() bool { return s.raw.IsOn() }

// EffectiveColorMode derives the color mode currently in effect. Split
// capability sets are decided by which channel group is active; otherwise
// the capability mode table keyed by the raw mode byte applies.
func (s *State) EffectiveColorMode() capability.ColorMode {
	e := s.entry
	r, g, b := s.channel(protocol.FieldRed), s.channel(protocol.FieldGreen), s.channel(protocol.FieldBlue)
	ww, cw := s.channel(protocol.FieldWarmWhite), s.channel(protocol.FieldCoolWhite)
	colorActive := r > 0 || g > 0 || b > 0
	whiteActive := ww > 0 || cw > 0

	switch {
	case e.Supports(capability.ColorModeRGBWW):
		if colorActive {
			return capability.ColorModeRGBWW
		}
		return capability.ColorModeCCT
	case e.Supports(capability.ColorModeRGB) && e.Supports(capability.ColorModeCCT):
		if whiteActive {
			return capability.ColorModeCCT
		}
		return capability.ColorModeRGB
	case e.Supports(capability.ColorModeRGB) && e.Supports(capability.ColorModeDIM):
		if whiteActive {
			return capability.ColorModeDIM
		}
		return capability.ColorModeRGB
	}
	if cm, ok := e.ModeToColorMode[s.raw.Mode]; ok {
		return cm
	}
	if len(e.ColorModes) > 0 {
		return e.ColorModes[0]
	}
	return ""
}

// DetermineMode derives the operating mode from device class, preset
// pattern code and color mode. ModeUnknown means the combination is not
// recognizable and the update counts as failed.
func (s *State) DetermineMode() Mode {
	if s.entry.SwitchOnly {
		return ModeSwitch
	}
	p := s.raw.Pattern
	switch {
	case p == protocol.PatternSolid || p == protocol.PatternSolidWarm:
		switch s.EffectiveColorMode() {
		case capability.ColorModeCCT, capability.ColorModeDIM:
			return ModeWarmWhite
		case "":
			return ModeUnknown
		}
		return ModeColor
	case p == protocol.PatternCustom:
		return ModeCustom
	case p == protocol.PatternMusic:
		return ModeMusic
	case p >= protocol.PresetPatternMin && p <= protocol.PresetPatternMax:
		return ModePreset
	case p == protocol.PatternSunrise:
		return ModeSunrise
	case p == protocol.PatternSunset:
		return ModeSunset
	}
	if s.entry.Addressable {
		// Addressable firmware reports effect codes outside the classic
		// preset range.
		return ModePreset
	}
	return ModeUnknown
}

// Brightness derives a 0..255 brightness from the active color mode.
func (s *State) Brightness() byte {
	r, g, b := s.channel(protocol.FieldRed), s.channel(protocol.FieldGreen), s.channel(protocol.FieldBlue)
	ww, cw := s.channel(protocol.FieldWarmWhite), s.channel(protocol.FieldCoolWhite)
	v := maxByte(r, g, b) // HSV value channel

	switch s.EffectiveColorMode() {
	case capability.ColorModeDIM:
		return ww
	case capability.ColorModeCCT:
		return clampByte(int(ww) + int(cw))
	case capability.ColorModeRGBW:
		return byte((int(v) + int(ww)) / 2)
	case capability.ColorModeRGBWW:
		return byte((int(v) + int(ww) + int(cw)) / 3)
	default:
		return v
	}
}

// Snapshot is the immutable caller-facing view of a session's state.
type Snapshot struct {
	Model      byte
	Dialect    protocol.Dialect
	Available  bool
	IsOn       bool
	Mode       Mode
	ColorMode  capability.ColorMode
	Brightness byte
	Red        byte
	Green      byte
	Blue       byte
	WarmWhite  byte
	CoolWhite  byte
	Pattern    byte
	Speed      byte
	Raw        protocol.RawState
}

func (s *State) snapshot(dialect protocol.Dialect, available bool) Snapshot {
	return Snapshot{
		Model:      s.raw.Model,
		Dialect:    dialect,
		Available:  available,
		IsOn:       s.IsOn(),
		Mode:       s.DetermineMode(),
		ColorMode:  s.EffectiveColorMode(),
		Brightness: s.Brightness(),
		Red:        s.channel(protocol.FieldRed),
		Green:      s.channel(protocol.FieldGreen),
		Blue:       s.channel(protocol.FieldBlue),
		WarmWhite:  s.channel(protocol.FieldWarmWhite),
		CoolWhite:  s.channel(protocol.FieldCoolWhite),
		Pattern:    s.raw.Pattern,
		Speed:      s.raw.Speed,
		Raw:        s.raw,
	}
}

func maxByte(vs ...byte) byte {
	var m byte
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}

func clampByte(v int) byte {
	if v > 255 {
		return 255
	}
	return byte(v)
}
