package protocol

import (
	"fmt"
	"time"
)

// Construct* functions build outbound command byte sequences for the
// dialect. Out-of-range inputs are programmer errors and fail fast before
// any I/O; the decode path never does.

// ConstructStateQuery builds the state poll message. Queries are never
// enveloped, which keeps dialect detection uniform across generations.
func (d Dialect) ConstructStateQuery() []byte {
	if d == DialectOriginal {
		return []byte{0xEF, 0x01, 0x77}
	}
	return appendChecksum([]byte{0x81, 0x8A, 0x8B})
}

// ConstructStateChange builds the power on/off command.
func (d Dialect) ConstructStateChange(turnOn bool) []byte {
	power := byte(PowerOff)
	if turnOn {
		power = PowerOn
	}
	if d == DialectOriginal {
		return []byte{0xCC, power, 0x33}
	}
	return d.finish(appendChecksum([]byte{0x71, power, 0x0F}))
}

// ConstructLevelsChange builds the channel-level command sequence. The
// result may contain more than one discrete message: dimmable-effects
// hardware takes the effect-brightness rescale as a separate send. mask
// selects which channel group the device should latch (WriteMaskAll,
// WriteMaskColors or WriteMaskWhites).
func (d Dialect) ConstructLevelsChange(persist bool, r, g, b, w, w2 byte, mask byte) ([][]byte, error) {
	switch mask {
	case WriteMaskAll, WriteMaskColors, WriteMaskWhites:
	default:
		return nil, fmt.Errorf("invalid write mask 0x%02X", mask)
	}

	if d == DialectOriginal {
		// Original hardware has no persistence selector, no masks and no
		// white write via this opcode.
		return [][]byte{{0x56, r, g, b, 0xAA}}, nil
	}

	head := byte(volatileWrite)
	if persist {
		head = persistWrite
	}

	var msg []byte
	if d == DialectStandard8 || d == DialectDimmableEffects8 {
		msg = []byte{head, r, g, b, w, mask, 0x0F}
	} else {
		// Standard9 and the addressable family carry a cool-white byte.
		msg = []byte{head, r, g, b, w, w2, mask, 0x0F}
	}
	out := [][]byte{d.finish(appendChecksum(msg))}

	if d == DialectDimmableEffects8 {
		out = append(out, appendChecksum([]byte{0x35, 0xB1, maxByte(r, g, b, w), 0x00, 0x00}))
	}
	return out, nil
}

// ConstructPresetPattern builds the built-in effect command. brightness is
// only carried by the dimmable-effects layout and ignored elsewhere.
func (d Dialect) ConstructPresetPattern(code, speed, brightness byte) ([]byte, error) {
	if code < PresetPatternMin || code > PresetPatternMax {
		return nil, fmt.Errorf("preset code 0x%02X outside 0x%02X..0x%02X", code, PresetPatternMin, PresetPatternMax)
	}
	if speed > 100 {
		return nil, fmt.Errorf("speed %d outside 0..100", speed)
	}
	if brightness > 100 {
		return nil, fmt.Errorf("brightness %d outside 0..100", brightness)
	}
	if d == DialectOriginal {
		return []byte{0x61, code, speed, 0x0F}, nil
	}
	if d == DialectDimmableEffects8 {
		return appendChecksum([]byte{0x38, code, speed, brightness}), nil
	}
	return d.finish(appendChecksum([]byte{0x61, code, speed, 0x0F})), nil
}

// ConstructCustomEffect builds the 16-slot custom color sequence command.
// Unused slots are filled with the 0x01/0x02/0x03 sentinel the firmware
// expects.
func (d Dialect) ConstructCustomEffect(colors [][3]byte, speed, transition byte) ([]byte, error) {
	if len(colors) == 0 || len(colors) > customEffectSlots {
		return nil, fmt.Errorf("custom effect needs 1..%d colors, got %d", customEffectSlots, len(colors))
	}
	if speed > 100 {
		return nil, fmt.Errorf("speed %d outside 0..100", speed)
	}
	switch transition {
	case TransitionGradual, TransitionJump, TransitionStrobe:
	default:
		return nil, fmt.Errorf("invalid transition type 0x%02X", transition)
	}
	if d == DialectOriginal {
		return nil, fmt.Errorf("custom effects unsupported by the %s dialect", d)
	}

	msg := make([]byte, 0, 1+customEffectSlots*3+5)
	msg = append(msg, 0x51)
	for _, c := range colors {
		msg = append(msg, c[0], c[1], c[2])
	}
	for i := len(colors); i < customEffectSlots; i++ {
		msg = append(msg, 0x01, 0x02, 0x03)
	}
	msg = append(msg, 0x00, speed, transition, 0xFF, 0x0F)
	return d.finish(appendChecksum(msg)), nil
}

// The clock, timer and configuration messages below exist only in the
// checksummed standard family; the original dialect has no layouts for
// them and callers must not send them to original-generation hardware.

// ConstructGetTime builds the device clock query.
func (d Dialect) ConstructGetTime() []byte {
	return appendChecksum([]byte{0x11, 0x1A, 0x1B, 0x0F})
}

// ConstructSetTime builds the clock set command. The device stores years
// as an offset from 2000 and weekdays as 1..7 starting Monday.
func (d Dialect) ConstructSetTime(t time.Time) []byte {
	weekday := byte(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return appendChecksum([]byte{
		0x10, 0x14,
		byte(t.Year() - 2000), byte(t.Month()), byte(t.Day()),
		byte(t.Hour()), byte(t.Minute()), byte(t.Second()),
		weekday, 0x00, 0x0F,
	})
}

// ConstructGetTimers builds the timer table query.
func (d Dialect) ConstructGetTimers() []byte {
	return appendChecksum([]byte{0x22, 0x2A, 0x2B, 0x0F})
}

// ConstructDeviceConfigQuery builds the addressable strip-settings query.
func (d Dialect) ConstructDeviceConfigQuery() []byte {
	return appendChecksum([]byte{0x63, 0x12, 0x21, 0x0F})
}

// ConstructPowerRestoreQuery builds the mains-restore behavior query.
func (d Dialect) ConstructPowerRestoreQuery() []byte {
	return appendChecksum([]byte{0x32, 0x3A, 0x3B, 0x0F})
}

// ConstructRemoteConfigQuery builds the 2.4GHz remote pairing-mode query.
func (d Dialect) ConstructRemoteConfigQuery() []byte {
	return appendChecksum([]byte{0x2B, 0x2C, 0x2D, 0x0F})
}

// ConstructZoneChange builds a per-zone color command for addressable
// hardware: one RGB triplet per zone plus an effect and speed.
func (d Dialect) ConstructZoneChange(zones [][3]byte, effect, speed byte) ([]byte, error) {
	if !d.Addressable() {
		return nil, fmt.Errorf("zone commands unsupported by the %s dialect", d)
	}
	if len(zones) == 0 || len(zones) > 64 {
		return nil, fmt.Errorf("zone count %d outside 1..64", len(zones))
	}
	if speed > 100 {
		return nil, fmt.Errorf("speed %d outside 0..100", speed)
	}
	body := make([]byte, 0, 3+len(zones)*3+4)
	n := len(zones) * 3
	body = append(body, 0x59, byte(n>>8), byte(n&0xFF))
	for _, z := range zones {
		body = append(body, z[0], z[1], z[2])
	}
	body = append(body, effect, speed, 0x0F)
	return d.finish(appendChecksum(body)), nil
}

// finish applies the outer envelope on dialects that require it. Control
// messages only; queries stay bare.
func (d Dialect) finish(msg []byte) []byte {
	if d.Enveloped() {
		return WrapOuterMessage(msg)
	}
	return msg
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
