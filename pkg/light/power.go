package light

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ledstack/ledwifi/pkg/protocol"
)

// SetPower drives the power-change retry protocol. Each attempt sends the
// state-change command and races a short window against two possible
// confirmations: a dedicated power-state message or a full state response
// carrying the expected power bit. If the short window closes without a
// confirmation but the device said anything at all, an explicit state
// query opens a second, longer window. Some firmware echoes confirmations
// inconsistently, so after the lenient threshold any power-state response
// counts as success and the local bit is corrected to the requested
// direction.
func (s *Session) SetPower(ctx context.Context, on bool) error {
	tun := s.tuning
	for attempt := 1; attempt <= tun.PowerAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lenient := attempt > tun.LenientAfter

		confirmed, err := s.powerAttempt(ctx, on, lenient)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrClosed) {
				return err
			}
			log.Debug().Err(err).Int("attempt", attempt).Msg("power attempt failed")
			continue
		}
		if confirmed {
			s.mu.Lock()
			s.state.SetPower(on)
			s.noResponse = 0
			snap := s.state.snapshot(s.dialect, s.status == StatusReady)
			s.mu.Unlock()
			s.notify(snap)
			return nil
		}
		log.Debug().Int("attempt", attempt).Bool("on", on).Msg("power change unconfirmed, retrying")
	}
	return ErrPowerChangeFailed
}

// powerAttempt runs one two-phase confirmation attempt.
func (s *Session) powerAttempt(ctx context.Context, on, lenient bool) (bool, error) {
	start := time.Now()
	powerCh := s.pending.issue(protocol.ClassPower)
	stateCh := s.pending.issue(protocol.ClassState)

	if err := s.send(ctx, s.Dialect().ConstructStateChange(on)); err != nil {
		return false, err
	}

	if ok, got := s.awaitPowerConfirm(ctx, powerCh, stateCh, s.tuning.phase1(), on, lenient); ok {
		return true, nil
	} else if !got && !s.sawInboundSince(start) {
		// Dead air: no point re-querying a device that says nothing.
		return false, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	// Something arrived but not a usable confirmation; ask explicitly.
	powerCh = s.pending.issue(protocol.ClassPower)
	stateCh = s.pending.issue(protocol.ClassState)
	if err := s.send(ctx, s.Dialect().ConstructStateQuery()); err != nil {
		return false, err
	}
	ok, _ := s.awaitPowerConfirm(ctx, powerCh, stateCh, s.tuning.phase2(), on, lenient)
	return ok, nil
}

// awaitPowerConfirm waits up to window for a confirmation on either
// channel. got reports whether any correlated response arrived at all.
func (s *Session) awaitPowerConfirm(ctx context.Context, powerCh, stateCh chan []byte, window time.Duration, on, lenient bool) (confirmed, got bool) {
	want := byte(protocol.PowerOff)
	if on {
		want = protocol.PowerOn
	}
	deadline := time.NewTimer(window)
	defer deadline.Stop()

	for {
		select {
		case msg := <-powerCh:
			got = true
			p, ok := protocol.ParsePowerState(msg)
			if !ok {
				continue
			}
			if p == want || lenient {
				// Lenient acceptance: trust that the command landed even
				// when the echo disagrees; the caller corrects the local
				// bit to the requested direction.
				return true, true
			}
		case msg := <-stateCh:
			got = true
			if len(msg) > 2 && msg[2] == want {
				return true, true
			}
		case <-deadline.C:
			return false, got
		case <-ctx.Done():
			return false, got
		}
	}
}

// sawInboundSince reports whether any message, correlated or not, arrived
// after t.
func (s *Session) sawInboundSince(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInbound.After(t)
}
