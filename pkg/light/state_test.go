package light

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledstack/ledwifi/pkg/capability"
	"github.com/ledstack/ledwifi/pkg/protocol"
)

func rgbEntry() capability.Entry {
	return capability.Entry{
		Model:      0x45,
		Name:       "test rgb",
		Dialect:    protocol.DialectStandard8,
		ColorModes: []capability.ColorMode{capability.ColorModeRGB},
	}
}

func rawColor(r, g, b, ww byte) protocol.RawState {
	return protocol.RawState{
		Head: 0x81, Model: 0x45, Power: protocol.PowerOn,
		Pattern: protocol.PatternSolid, Mode: 0x21,
		Red: r, Green: g, Blue: b, WarmWhite: ww,
	}
}

func TestApplyResponse(t *testing.T) {
	s := NewState(rgbEntry())
	now := time.Now()

	require.True(t, s.ApplyResponse(rawColor(10, 20, 30, 0), now))
	raw, ok := s.Raw()
	require.True(t, ok)
	assert.Equal(t, byte(10), raw.Red)
	assert.Equal(t, ModeColor, s.DetermineMode())
}

// Issuing a levels change opens the transition gate: a stale state response
// must not overwrite the channel bytes until the fade deadline passes.
func TestTransitionGating(t *testing.T) {
	s := NewState(rgbEntry())
	now := time.Now()

	require.True(t, s.ApplyResponse(rawColor(0, 0, 0, 0), now))
	s.ApplyLevels(map[string]byte{
		protocol.FieldRed: 200, protocol.FieldGreen: 100, protocol.FieldBlue: 50,
	})
	s.MarkTransition(now, time.Second, 0)

	// Mid-fade response reporting intermediate channel values.
	stale := rawColor(90, 45, 20, 0)
	stale.Power = protocol.PowerOff
	require.True(t, s.ApplyResponse(stale, now.Add(500*time.Millisecond)))

	raw, _ := s.Raw()
	assert.Equal(t, byte(200), raw.Red, "channel overwritten during fade")
	assert.Equal(t, byte(100), raw.Green)
	assert.Equal(t, byte(50), raw.Blue)
	assert.False(t, s.IsOn(), "non-channel fields must still update mid-fade")

	// After the deadline a fresh response applies in full.
	fresh := rawColor(91, 46, 21, 0)
	require.True(t, s.ApplyResponse(fresh, now.Add(2*time.Second)))
	raw, _ = s.Raw()
	assert.Equal(t, byte(91), raw.Red)
	assert.Equal(t, byte(46), raw.Green)
}

func TestApplyResponseUnknownModeRollsBack(t *testing.T) {
	s := NewState(rgbEntry())
	now := time.Now()
	require.True(t, s.ApplyResponse(rawColor(1, 2, 3, 0), now))

	bad := rawColor(9, 9, 9, 0)
	bad.Pattern = 0xEE // no mode maps to this
	require.False(t, s.ApplyResponse(bad, now))

	raw, _ := s.Raw()
	assert.Equal(t, byte(1), raw.Red, "failed update must leave prior state intact")
}

func TestEffectiveColorMode(t *testing.T) {
	tests := []struct {
		name  string
		modes []capability.ColorMode
		raw   protocol.RawState
		want  capability.ColorMode
	}{
		{"rgbww with color active", []capability.ColorMode{capability.ColorModeRGBWW},
			rawColor(10, 0, 0, 0), capability.ColorModeRGBWW},
		{"rgbww all channels dark", []capability.ColorMode{capability.ColorModeRGBWW},
			rawColor(0, 0, 0, 120), capability.ColorModeCCT},
		{"rgb/cct white active", []capability.ColorMode{capability.ColorModeRGB, capability.ColorModeCCT},
			rawColor(0, 0, 0, 90), capability.ColorModeCCT},
		{"rgb/cct color active", []capability.ColorMode{capability.ColorModeRGB, capability.ColorModeCCT},
			rawColor(5, 5, 5, 0), capability.ColorModeRGB},
		{"rgb/dim white active", []capability.ColorMode{capability.ColorModeRGB, capability.ColorModeDIM},
			rawColor(0, 0, 0, 30), capability.ColorModeDIM},
		{"single mode", []capability.ColorMode{capability.ColorModeDIM},
			rawColor(0, 0, 0, 30), capability.ColorModeDIM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := rgbEntry()
			e.ColorModes = tt.modes
			s := NewState(e)
			require.True(t, s.ApplyResponse(tt.raw, time.Now()))
			assert.Equal(t, tt.want, s.EffectiveColorMode())
		})
	}
}

func TestEffectiveColorModeFromModeTable(t *testing.T) {
	e := rgbEntry()
	e.ColorModes = []capability.ColorMode{capability.ColorModeRGBW, capability.ColorModeCCT}
	e.ModeToColorMode = map[byte]capability.ColorMode{
		0x02: capability.ColorModeCCT,
		0x03: capability.ColorModeRGBW,
	}
	s := NewState(e)
	raw := rawColor(1, 2, 3, 0)
	raw.Mode = 0x02
	require.True(t, s.ApplyResponse(raw, time.Now()))
	assert.Equal(t, capability.ColorModeCCT, s.EffectiveColorMode())
}

func TestDetermineMode(t *testing.T) {
	tests := []struct {
		name    string
		entry   func(capability.Entry) capability.Entry
		pattern byte
		want    Mode
	}{
		{"solid rgb", nil, protocol.PatternSolid, ModeColor},
		{"solid alt", nil, protocol.PatternSolidWarm, ModeColor},
		{"custom", nil, protocol.PatternCustom, ModeCustom},
		{"music", nil, protocol.PatternMusic, ModeMusic},
		{"preset low", nil, protocol.PresetPatternMin, ModePreset},
		{"preset high", nil, protocol.PresetPatternMax, ModePreset},
		{"sunrise", nil, protocol.PatternSunrise, ModeSunrise},
		{"sunset", nil, protocol.PatternSunset, ModeSunset},
		{"unknown", nil, 0xEE, ModeUnknown},
		{"switch ignores pattern", func(e capability.Entry) capability.Entry {
			e.SwitchOnly = true
			return e
		}, 0xEE, ModeSwitch},
		{"addressable fallback", func(e capability.Entry) capability.Entry {
			e.Addressable = true
			return e
		}, 0xEE, ModePreset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := rgbEntry()
			if tt.entry != nil {
				e = tt.entry(e)
			}
			s := NewState(e)
			raw := rawColor(1, 2, 3, 0)
			raw.Pattern = tt.pattern
			s.raw = raw
			s.hasRaw = true
			assert.Equal(t, tt.want, s.DetermineMode())
		})
	}
}

// Pattern 0x61 reports warm-white mode when the effective color mode is a
// white one.
func TestDetermineModeWarmWhite(t *testing.T) {
	e := rgbEntry()
	e.ColorModes = []capability.ColorMode{capability.ColorModeDIM}
	s := NewState(e)
	require.True(t, s.ApplyResponse(rawColor(0, 0, 0, 200), time.Now()))
	assert.Equal(t, ModeWarmWhite, s.DetermineMode())
}

func TestBrightness(t *testing.T) {
	tests := []struct {
		name  string
		modes []capability.ColorMode
		raw   protocol.RawState
		want  byte
	}{
		{"rgb uses hsv value", []capability.ColorMode{capability.ColorModeRGB},
			rawColor(10, 200, 30, 0), 200},
		{"dim uses warm white", []capability.ColorMode{capability.ColorModeDIM},
			rawColor(0, 0, 0, 77), 77},
		{"cct sums whites", []capability.ColorMode{capability.ColorModeCCT},
			protocol.RawState{Pattern: protocol.PatternSolid, WarmWhite: 100, CoolWhite: 80}, 180},
		{"cct clamps", []capability.ColorMode{capability.ColorModeCCT},
			protocol.RawState{Pattern: protocol.PatternSolid, WarmWhite: 200, CoolWhite: 180}, 255},
		{"rgbww averages", []capability.ColorMode{capability.ColorModeRGBWW},
			protocol.RawState{Pattern: protocol.PatternSolid, Red: 90, WarmWhite: 60, CoolWhite: 60}, 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := rgbEntry()
			e.ColorModes = tt.modes
			s := NewState(e)
			s.raw = tt.raw
			s.hasRaw = true
			assert.Equal(t, tt.want, s.Brightness())
		})
	}
}

// Single-channel dimmers report their level on the red wire byte; the
// remap table hides that from logical reads and writes.
func TestChannelRemap(t *testing.T) {
	e := capability.Entry{
		Model:        0x41,
		Name:         "dimmer",
		Dialect:      protocol.DialectStandard8,
		ColorModes:   []capability.ColorMode{capability.ColorModeDIM},
		ChannelRemap: map[string]string{protocol.FieldWarmWhite: protocol.FieldRed},
	}
	s := NewState(e)
	s.ApplyLevels(map[string]byte{protocol.FieldWarmWhite: 210})

	raw, _ := s.Raw()
	assert.Equal(t, byte(210), raw.Red, "level must land on the remapped wire byte")
	assert.Equal(t, byte(0), raw.WarmWhite)
	assert.Equal(t, byte(210), s.Brightness())
}
