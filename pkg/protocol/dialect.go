package protocol

import "fmt"

// Dialect identifies one of the incompatible binary message layouts used by
// different firmware generations of the controller family. A session fixes
// its dialect once at detection time and never changes it implicitly.
type Dialect int

const (
	// DialectUnknown is the zero value before detection completes.
	DialectUnknown Dialect = iota
	// DialectOriginal is the first-generation layout: no checksums,
	// 11-byte state responses.
	DialectOriginal
	// DialectStandard8 is the common checksummed layout with a single
	// warm-white channel.
	DialectStandard8
	// DialectStandard9 adds a second (cool) white channel to levels
	// commands.
	DialectStandard9
	// DialectDimmableEffects8 is Standard8 plus effect-brightness
	// scaling on preset and levels commands.
	DialectDimmableEffects8
	// DialectAddressableA1, A2, A3 are the addressable-strip layouts.
	// A3 wraps every message in the outer envelope.
	DialectAddressableA1
	DialectAddressableA2
	DialectAddressableA3
	// DialectAddressableChristmas is the enveloped layout used by
	// string-light controllers.
	DialectAddressableChristmas
)

func (d Dialect) String() string {
	switch d {
	case DialectOriginal:
		return "original"
	case DialectStandard8:
		return "standard_8"
	case DialectStandard9:
		return "standard_9"
	case DialectDimmableEffects8:
		return "dimmable_effects_8"
	case DialectAddressableA1:
		return "addressable_a1"
	case DialectAddressableA2:
		return "addressable_a2"
	case DialectAddressableA3:
		return "addressable_a3"
	case DialectAddressableChristmas:
		return "addressable_christmas"
	default:
		return "unknown"
	}
}

// ParseDialect maps the string form used by the capability table back to a
// Dialect value.
func ParseDialect(s string) (Dialect, error) {
	for d := DialectOriginal; d <= DialectAddressableChristmas; d++ {
		if d.String() == s {
			return d, nil
		}
	}
	return DialectUnknown, fmt.Errorf("unknown dialect %q", s)
}

// Checksummed reports whether messages in this dialect carry a trailing
// sum-mod-256 checksum byte.
func (d Dialect) Checksummed() bool {
	return d != DialectOriginal && d != DialectUnknown
}

// Enveloped reports whether messages in this dialect are wrapped in the
// outer marker+nonce+length envelope.
func (d Dialect) Enveloped() bool {
	return d == DialectAddressableA3 || d == DialectAddressableChristmas
}

// Addressable reports whether the dialect belongs to the addressable-strip
// family, whose state responses carry a zone/speed encoding.
func (d Dialect) Addressable() bool {
	switch d {
	case DialectAddressableA1, DialectAddressableA2, DialectAddressableA3, DialectAddressableChristmas:
		return true
	}
	return false
}

// StateResponseLength is the exact length of a valid state response in this
// dialect, before any envelope stripping.
func (d Dialect) StateResponseLength() int {
	if d == DialectOriginal {
		return originalStateLen
	}
	return standardStateLen
}
