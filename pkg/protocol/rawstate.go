package protocol

// RawState is an immutable snapshot decoded from a single validated state
// response. Fields beyond the original 11 are only populated by the
// standard-family dialects; addressable dialects additionally split the
// speed byte into a speed/zone encoding.
type RawState struct {
	Head      byte
	Model     byte
	Power     byte
	Pattern   byte
	Mode      byte
	Speed     byte
	Red       byte
	Green     byte
	Blue      byte
	WarmWhite byte

	// Standard-family only.
	Version   byte
	CoolWhite byte
	ColorMode byte
	Checksum  byte

	// Addressable only: zone-count code recovered from the low nibble of
	// the wire speed byte.
	ZoneCode byte
}

// IsOn reports the decoded power bit.
func (s RawState) IsOn() bool { return s.Power == PowerOn }

// Channel names used in changed-field sets for selective remap. The session
// passes these when a levels command touches only part of the state.
const (
	FieldRed       = "red"
	FieldGreen     = "green"
	FieldBlue      = "blue"
	FieldWarmWhite = "warm_white"
	FieldCoolWhite = "cool_white"
)

// ChannelFields lists every remappable channel field.
var ChannelFields = []string{FieldRed, FieldGreen, FieldBlue, FieldWarmWhite, FieldCoolWhite}

// Channel returns the named channel's value.
func (s RawState) Channel(field string) byte {
	switch field {
	case FieldRed:
		return s.Red
	case FieldGreen:
		return s.Green
	case FieldBlue:
		return s.Blue
	case FieldWarmWhite:
		return s.WarmWhite
	case FieldCoolWhite:
		return s.CoolWhite
	}
	return 0
}

// WithChannel returns a copy of s with the named channel replaced. RawState
// values are never mutated in place.
func (s RawState) WithChannel(field string, v byte) RawState {
	switch field {
	case FieldRed:
		s.Red = v
	case FieldGreen:
		s.Green = v
	case FieldBlue:
		s.Blue = v
	case FieldWarmWhite:
		s.WarmWhite = v
	case FieldCoolWhite:
		s.CoolWhite = v
	}
	return s
}
