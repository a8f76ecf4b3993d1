package light

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledstack/ledwifi/pkg/protocol"
)

func setupSession(t *testing.T, respond func(req []byte) [][]byte) *Session {
	dev := newFakeDevice(t, respond)
	s := NewSession(dev.addr(), mustTable(t), testTuning())
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Setup(context.Background()))
	return s
}

func TestSetPowerConfirmedByPowerMessage(t *testing.T) {
	s := setupSession(t, func(req []byte) [][]byte {
		switch req[0] {
		case 0x81:
			return [][]byte{stateResp(protocol.PowerOff, 0, 0, 0)}
		case 0x71:
			return [][]byte{withSum(0x0F, 0x71, req[1])}
		case 0x32:
			return [][]byte{powerRestoreResp()}
		}
		return nil
	})

	require.NoError(t, s.SetPower(context.Background(), true))
	assert.True(t, s.Snapshot().IsOn)

	require.NoError(t, s.SetPower(context.Background(), false))
	assert.False(t, s.Snapshot().IsOn)
}

// Some firmware confirms a power change only through the full state
// response to the follow-up query.
func TestSetPowerConfirmedByStateResponse(t *testing.T) {
	s := setupSession(t, func(req []byte) [][]byte {
		switch req[0] {
		case 0x81:
			return [][]byte{stateResp(protocol.PowerOn, 0, 0, 0)}
		case 0x32:
			return [][]byte{powerRestoreResp()}
		case 0x71:
			// Unusable echo; forces the explicit re-query phase.
			return [][]byte{withSum(0x0F, 0x71, 0x00)}
		}
		return nil
	})

	require.NoError(t, s.SetPower(context.Background(), true))
	assert.True(t, s.Snapshot().IsOn)
}

// Firmware that always echoes the opposite power bit never confirms
// strictly. Past the lenient threshold any power-state response counts and
// the cached bit is corrected to the requested direction.
func TestSetPowerLenientAcceptsContradictoryEcho(t *testing.T) {
	var powerCmds atomic.Int32
	s := setupSession(t, func(req []byte) [][]byte {
		switch req[0] {
		case 0x81:
			return [][]byte{stateResp(protocol.PowerOff, 0, 0, 0)}
		case 0x32:
			return [][]byte{powerRestoreResp()}
		case 0x71:
			powerCmds.Add(1)
			return [][]byte{withSum(0x0F, 0x71, protocol.PowerOff)}
		}
		return nil
	})

	require.NoError(t, s.SetPower(context.Background(), true))
	assert.True(t, s.Snapshot().IsOn, "cached bit must follow the request, not the echo")
	assert.Greater(t, int(powerCmds.Load()), 3, "strict attempts must be exhausted before leniency")
}

func TestSetPowerExhaustsAttempts(t *testing.T) {
	var powerCmds atomic.Int32
	s := setupSession(t, func(req []byte) [][]byte {
		switch req[0] {
		case 0x81:
			return [][]byte{stateResp(protocol.PowerOff, 0, 0, 0)}
		case 0x32:
			return [][]byte{powerRestoreResp()}
		case 0x71:
			powerCmds.Add(1)
		}
		return nil
	})

	err := s.SetPower(context.Background(), true)
	assert.ErrorIs(t, err, ErrPowerChangeFailed)
	assert.Equal(t, testTuning().PowerAttempts, int(powerCmds.Load()))
	assert.False(t, s.Snapshot().IsOn)
}

func TestSetPowerContextCancel(t *testing.T) {
	s := setupSession(t, func(req []byte) [][]byte {
		switch req[0] {
		case 0x81:
			return [][]byte{stateResp(protocol.PowerOff, 0, 0, 0)}
		case 0x32:
			return [][]byte{powerRestoreResp()}
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.SetPower(ctx, true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
