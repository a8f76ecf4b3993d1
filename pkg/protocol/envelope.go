package protocol

import "math/rand"

// Outer envelope used by the A3 and Christmas controllers:
// B0 B1 B2 B3 <nonce> <len_hi> <len_lo> <inner...> <checksum>.
// The checksum covers every preceding byte, inner message included.

var envelopeMarker = []byte{0xB0, 0xB1, 0xB2, 0xB3}

const envelopeOverhead = 8 // marker(4) + nonce + length(2) + checksum

// WrapOuterMessage wraps inner in the outer envelope with a fresh nonce.
func WrapOuterMessage(inner []byte) []byte {
	out := make([]byte, 0, len(inner)+envelopeOverhead)
	out = append(out, envelopeMarker...)
	out = append(out, byte(rand.Intn(256)))
	out = append(out, byte(len(inner)>>8), byte(len(inner)&0xFF))
	out = append(out, inner...)
	return appendChecksum(out)
}

// IsValidOuterMessage reports whether msg is a complete, well-formed
// envelope: marker, declared length matching the actual inner length, and
// a valid trailing checksum.
func IsValidOuterMessage(msg []byte) bool {
	if len(msg) < envelopeOverhead+1 {
		return false
	}
	for i, m := range envelopeMarker {
		if msg[i] != m {
			return false
		}
	}
	declared := int(msg[5])<<8 | int(msg[6])
	if len(msg) != declared+envelopeOverhead {
		return false
	}
	return checksumOK(msg)
}

// ExtractInnerMessage strips the envelope from a message that passed
// IsValidOuterMessage.
func ExtractInnerMessage(msg []byte) []byte {
	inner := make([]byte, len(msg)-envelopeOverhead)
	copy(inner, msg[7:len(msg)-1])
	return inner
}
