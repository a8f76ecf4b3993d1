package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledstack/ledwifi/pkg/protocol"
)

func withSum(msg ...byte) []byte {
	var sum byte
	for _, b := range msg {
		sum += b
	}
	return append(msg, sum)
}

func TestFramerSingleChunk(t *testing.T) {
	state := withSum(0x81, 0x45, 0x23, 0x61, 0x21, 0x10, 0x67, 0xFF, 0x68, 0x00, 0x04, 0x00, 0xF0)
	f := newFramer(protocol.DialectStandard8)

	msgs := f.Feed(state)
	require.Len(t, msgs, 1)
	assert.Equal(t, state, msgs[0])
}

// A message split across arbitrary chunk boundaries must decode identically
// to the same bytes arriving at once.
func TestFramerReassembly(t *testing.T) {
	state := withSum(0x81, 0x45, 0x23, 0x61, 0x21, 0x10, 0x67, 0xFF, 0x68, 0x00, 0x04, 0x00, 0xF0)
	f := newFramer(protocol.DialectStandard8)

	require.Empty(t, f.Feed(state[:3]))
	require.Empty(t, f.Feed(state[3:9]))
	msgs := f.Feed(state[9:])
	require.Len(t, msgs, 1)
	assert.Equal(t, state, msgs[0])
}

func TestFramerBackToBackMessages(t *testing.T) {
	state := withSum(0x81, 0x45, 0x23, 0x61, 0x21, 0x10, 0x67, 0xFF, 0x68, 0x00, 0x04, 0x00, 0xF0)
	power := withSum(0x0F, 0x71, 0x23)
	f := newFramer(protocol.DialectStandard8)

	msgs := f.Feed(append(append([]byte{}, state...), power...))
	require.Len(t, msgs, 2)
	assert.Equal(t, state, msgs[0])
	assert.Equal(t, power, msgs[1])
}

func TestFramerDiscardsUnknownPrefix(t *testing.T) {
	f := newFramer(protocol.DialectStandard8)
	assert.Empty(t, f.Feed([]byte{0xDE, 0xAD, 0xBE, 0xEF}))

	// The next reply realigns the stream.
	power := withSum(0x0F, 0x71, 0x24)
	msgs := f.Feed(power)
	require.Len(t, msgs, 1)
	assert.Equal(t, power, msgs[0])
}

func TestFramerStripsEnvelope(t *testing.T) {
	inner := withSum(0x81, 0xA3, 0x23, 0x25, 0x01, 0x32, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x0F)
	outer := protocol.WrapOuterMessage(inner)
	f := newFramer(protocol.DialectAddressableA3)

	msgs := f.Feed(outer[:5])
	require.Empty(t, msgs)
	msgs = f.Feed(outer[5:])
	require.Len(t, msgs, 1)
	assert.Equal(t, inner, msgs[0], "downstream must see the inner message")
}
