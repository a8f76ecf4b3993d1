package protocol

// MessageClass is the response category a complete inbound message belongs
// to. The session keys its pending-request slots by class.
type MessageClass int

const (
	ClassUnknown MessageClass = iota
	ClassState
	ClassPower
	ClassTimers
	ClassClock
	ClassDeviceConfig
	ClassPowerRestore
	ClassRemoteConfig
)

func (c MessageClass) String() string {
	switch c {
	case ClassState:
		return "state"
	case ClassPower:
		return "power"
	case ClassTimers:
		return "timers"
	case ClassClock:
		return "clock"
	case ClassDeviceConfig:
		return "device_config"
	case ClassPowerRestore:
		return "power_restore"
	case ClassRemoteConfig:
		return "remote_config"
	default:
		return "unknown"
	}
}

// NextMessageLength reports how many bytes the next inbound message needs,
// given the buffered prefix. The returned length may exceed len(buf), in
// which case the caller waits for more bytes. ok=false means the prefix
// cannot begin any message known to this dialect and the buffer should be
// discarded.
func (d Dialect) NextMessageLength(buf []byte) (int, bool) {
	if len(buf) == 0 {
		return 1, true
	}
	switch buf[0] {
	case headStateStandard:
		if d == DialectOriginal {
			return 0, false
		}
		return standardStateLen, true
	case headStateOriginal:
		if d != DialectOriginal {
			return 0, false
		}
		return originalStateLen, true
	case headPushPrefix:
		// 0x0F-prefixed replies need the second byte to size.
		if len(buf) < 2 {
			return 2, true
		}
		switch buf[1] {
		case headPower:
			return powerStateLen, true
		case headTimers:
			return timersResponseLen, true
		case headClock:
			return clockResponseLen, true
		}
		return 0, false
	case headDeviceConfig:
		return deviceConfigLen, true
	case headPowerRestore:
		return powerRestoreLen, true
	case headRemoteConfig:
		return remoteConfigLen, true
	case envelopeMarker[0]:
		// Envelope header carries its own length field.
		if !d.Enveloped() {
			return 0, false
		}
		if len(buf) < 7 {
			return 7, true
		}
		return (int(buf[5])<<8 | int(buf[6])) + envelopeOverhead, true
	}
	return 0, false
}

// Classify assigns a complete message to its response category without
// validating it.
func (d Dialect) Classify(msg []byte) MessageClass {
	if len(msg) == 0 {
		return ClassUnknown
	}
	switch msg[0] {
	case headStateStandard:
		if d != DialectOriginal && len(msg) == standardStateLen {
			return ClassState
		}
	case headStateOriginal:
		if d == DialectOriginal && len(msg) == originalStateLen {
			return ClassState
		}
	case headPushPrefix:
		if len(msg) < 2 {
			return ClassUnknown
		}
		switch {
		case msg[1] == headPower && len(msg) == powerStateLen:
			return ClassPower
		case msg[1] == headTimers && len(msg) == timersResponseLen:
			return ClassTimers
		case msg[1] == headClock && len(msg) == clockResponseLen:
			return ClassClock
		}
	case headDeviceConfig:
		if len(msg) == deviceConfigLen {
			return ClassDeviceConfig
		}
	case headPowerRestore:
		if len(msg) == powerRestoreLen {
			return ClassPowerRestore
		}
	case headRemoteConfig:
		if len(msg) == remoteConfigLen {
			return ClassRemoteConfig
		}
	}
	return ClassUnknown
}

// IsValidStateResponse reports whether msg is a structurally valid state
// response for the dialect: exact length, identifying header byte, and a
// correct checksum where the dialect uses one. It never panics on
// malformed input; a failed check simply means the message is dropped.
func (d Dialect) IsValidStateResponse(msg []byte) bool {
	if d == DialectOriginal {
		// The original generation has no checksum; the dialect mark is the
		// fixed 0x01 at offset 1.
		return len(msg) == originalStateLen && msg[0] == headStateOriginal && msg[1] == 0x01
	}
	return len(msg) == standardStateLen && msg[0] == headStateStandard && checksumOK(msg)
}

// IsValidResponse checks the non-state response categories: exact class
// length plus checksum for checksummed dialects.
func (d Dialect) IsValidResponse(msg []byte) bool {
	if d.Classify(msg) == ClassUnknown {
		return false
	}
	if msg[0] == headStateStandard || msg[0] == headStateOriginal {
		return d.IsValidStateResponse(msg)
	}
	if !d.Checksummed() {
		return true
	}
	return checksumOK(msg)
}

// NamedRawState decodes a state response into its RawState shape. Only
// call it after IsValidStateResponse accepts the message.
func (d Dialect) NamedRawState(msg []byte) RawState {
	if d == DialectOriginal {
		return RawState{
			Head:      msg[0],
			Model:     msg[1],
			Power:     msg[2],
			Pattern:   msg[3],
			Mode:      msg[4],
			Speed:     msg[5],
			Red:       msg[6],
			Green:     msg[7],
			Blue:      msg[8],
			WarmWhite: msg[9],
			Checksum:  msg[10],
		}
	}
	s := RawState{
		Head:      msg[0],
		Model:     msg[1],
		Power:     msg[2],
		Pattern:   msg[3],
		Mode:      msg[4],
		Speed:     msg[5],
		Red:       msg[6],
		Green:     msg[7],
		Blue:      msg[8],
		WarmWhite: msg[9],
		Version:   msg[10],
		CoolWhite: msg[11],
		ColorMode: msg[12],
		Checksum:  msg[13],
	}
	if d.Addressable() {
		// Addressable firmware packs effect speed in the high nibble and
		// the configured zone-count code in the low nibble.
		s.Speed = msg[5] >> 4
		s.ZoneCode = msg[5] & 0x0F
	}
	return s
}

// ParsePowerState extracts the power byte from a validated power-state
// message.
func ParsePowerState(msg []byte) (byte, bool) {
	if len(msg) != powerStateLen || msg[0] != headPushPrefix || msg[1] != headPower {
		return 0, false
	}
	return msg[2], true
}
