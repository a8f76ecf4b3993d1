package light

import (
	"context"
	"fmt"
	"time"

	"github.com/ledstack/ledwifi/pkg/capability"
	"github.com/ledstack/ledwifi/pkg/protocol"
)

// Levels is a channel-level command. Zero-value masks are computed from
// which group the helper was called for; use SetLevels directly for full
// control.
type Levels struct {
	Red       byte
	Green     byte
	Blue      byte
	WarmWhite byte
	CoolWhite byte
	// Persist writes the levels to the power-on default instead of the
	// volatile register.
	Persist bool
	Mask    byte
}

// SetRGB sets the color channels.
func (s *Session) SetRGB(ctx context.Context, r, g, b byte) error {
	return s.SetLevels(ctx, Levels{Red: r, Green: g, Blue: b, Persist: true, Mask: protocol.WriteMaskColors})
}

// SetWhites sets the white channel(s).
func (s *Session) SetWhites(ctx context.Context, warm, cool byte) error {
	return s.SetLevels(ctx, Levels{WarmWhite: warm, CoolWhite: cool, Persist: true, Mask: protocol.WriteMaskWhites})
}

// SetLevels issues a levels-change. Capability misuse (color writes to a
// white-only fixture, any levels write to a switch) is rejected before
// I/O. The local cache takes the commanded values immediately, restricted
// to the channels the mask touches, and the transition gate opens.
func (s *Session) SetLevels(ctx context.Context, lv Levels) error {
	entry := s.Entry()
	if entry.SwitchOnly {
		return fmt.Errorf("%w: switch has no channels", ErrUnsupported)
	}
	colorCapable := entry.Supports(capability.ColorModeRGB) ||
		entry.Supports(capability.ColorModeRGBW) || entry.Supports(capability.ColorModeRGBWW)
	whiteCapable := entry.Supports(capability.ColorModeCCT) || entry.Supports(capability.ColorModeDIM) ||
		entry.Supports(capability.ColorModeRGBW) || entry.Supports(capability.ColorModeRGBWW)

	switch lv.Mask {
	case protocol.WriteMaskColors:
		if !colorCapable {
			return fmt.Errorf("%w: no color channels", ErrUnsupported)
		}
	case protocol.WriteMaskWhites:
		if !whiteCapable {
			return fmt.Errorf("%w: no white channels", ErrUnsupported)
		}
	}

	mask := lv.Mask
	if entry.AlwaysWritesWhiteAndColors && mask != protocol.WriteMaskAll {
		// Firmware quirk: these boards ignore partial masks, so every
		// write carries the full channel set. Channel groups the caller
		// did not name keep their cached levels.
		s.mu.Lock()
		switch lv.Mask {
		case protocol.WriteMaskColors:
			if whiteCapable {
				lv.WarmWhite = s.state.channel(protocol.FieldWarmWhite)
				lv.CoolWhite = s.state.channel(protocol.FieldCoolWhite)
			}
		case protocol.WriteMaskWhites:
			if colorCapable {
				lv.Red = s.state.channel(protocol.FieldRed)
				lv.Green = s.state.channel(protocol.FieldGreen)
				lv.Blue = s.state.channel(protocol.FieldBlue)
			}
		}
		s.mu.Unlock()
		mask = protocol.WriteMaskAll
	}

	// Channel groups the fixture does not have are left out so a remapped
	// white cannot be clobbered through its borrowed wire slot.
	changed := map[string]byte{}
	if lv.Mask == protocol.WriteMaskColors || (mask == protocol.WriteMaskAll && colorCapable) {
		changed[protocol.FieldRed] = lv.Red
		changed[protocol.FieldGreen] = lv.Green
		changed[protocol.FieldBlue] = lv.Blue
	}
	if lv.Mask == protocol.WriteMaskWhites || (mask == protocol.WriteMaskAll && whiteCapable) {
		changed[protocol.FieldWarmWhite] = lv.WarmWhite
		changed[protocol.FieldCoolWhite] = lv.CoolWhite
	}

	// Remapped fixtures store logical channels in borrowed wire slots;
	// write the bytes where the firmware expects them.
	wr, wg, wb := lv.Red, lv.Green, lv.Blue
	www, wcw := lv.WarmWhite, lv.CoolWhite
	if len(entry.ChannelRemap) > 0 {
		var wire protocol.RawState
		for f, v := range changed {
			wire = wire.WithChannel(entry.RemapField(f), v)
		}
		wr, wg, wb = wire.Red, wire.Green, wire.Blue
		www, wcw = wire.WarmWhite, wire.CoolWhite
	}

	msgs, err := s.Dialect().ConstructLevelsChange(lv.Persist, wr, wg, wb, www, wcw, mask)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msgs...); err != nil {
		return err
	}

	s.mu.Lock()
	s.state.ApplyLevels(changed)
	s.state.MarkTransition(time.Now(), s.tuning.DeviceLatency, s.tuning.FadePerSpeedUnit)
	snap := s.state.snapshot(s.dialect, s.status == StatusReady)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// SetPreset starts a built-in effect pattern.
func (s *Session) SetPreset(ctx context.Context, code, speed, brightness byte) error {
	entry := s.Entry()
	if entry.SwitchOnly {
		return fmt.Errorf("%w: switch has no effects", ErrUnsupported)
	}
	msg, err := s.Dialect().ConstructPresetPattern(code, speed, brightness)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return err
	}

	s.mu.Lock()
	s.state.ApplyPattern(code, speed)
	s.state.MarkTransition(time.Now(), s.tuning.DeviceLatency, s.tuning.FadePerSpeedUnit)
	snap := s.state.snapshot(s.dialect, s.status == StatusReady)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// SetCustomEffect uploads a custom color sequence.
func (s *Session) SetCustomEffect(ctx context.Context, colors [][3]byte, speed, transition byte) error {
	if s.Entry().SwitchOnly {
		return fmt.Errorf("%w: switch has no effects", ErrUnsupported)
	}
	msg, err := s.Dialect().ConstructCustomEffect(colors, speed, transition)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return err
	}
	s.mu.Lock()
	s.state.ApplyPattern(protocol.PatternCustom, speed)
	s.state.MarkTransition(time.Now(), s.tuning.DeviceLatency, s.tuning.FadePerSpeedUnit)
	snap := s.state.snapshot(s.dialect, s.status == StatusReady)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// SetZones writes per-zone colors on addressable hardware.
func (s *Session) SetZones(ctx context.Context, zones [][3]byte, effect, speed byte) error {
	if !s.Entry().Addressable {
		return fmt.Errorf("%w: not an addressable model", ErrUnsupported)
	}
	msg, err := s.Dialect().ConstructZoneChange(zones, effect, speed)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

// requireChecksummed rejects clock, schedule and configuration operations
// on the original dialect, which has no message layouts for them.
func (s *Session) requireChecksummed() error {
	if s.Dialect() == protocol.DialectOriginal {
		return fmt.Errorf("%w: not available on the original dialect", ErrUnsupported)
	}
	return nil
}

// GetTimers reads the six-slot schedule table.
func (s *Session) GetTimers(ctx context.Context) ([]protocol.Timer, error) {
	if err := s.requireChecksummed(); err != nil {
		return nil, err
	}
	ch := s.pending.issue(protocol.ClassTimers)
	if err := s.send(ctx, s.Dialect().ConstructGetTimers()); err != nil {
		return nil, err
	}
	msg, err := s.pending.await(ctx, protocol.ClassTimers, ch, s.tuning.ResponseTimeout)
	if err != nil {
		return nil, err
	}
	timers, ok := protocol.ParseTimersResponse(msg)
	if !ok {
		return nil, ErrTimeout
	}
	return timers, nil
}

// SetTimers writes the schedule table. Fire and forget: the firmware does
// not acknowledge timer writes.
func (s *Session) SetTimers(ctx context.Context, timers []protocol.Timer) error {
	if err := s.requireChecksummed(); err != nil {
		return err
	}
	msg, err := s.Dialect().ConstructSetTimers(timers)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

// GetClock reads the device clock.
func (s *Session) GetClock(ctx context.Context) (time.Time, error) {
	if err := s.requireChecksummed(); err != nil {
		return time.Time{}, err
	}
	ch := s.pending.issue(protocol.ClassClock)
	if err := s.send(ctx, s.Dialect().ConstructGetTime()); err != nil {
		return time.Time{}, err
	}
	msg, err := s.pending.await(ctx, protocol.ClassClock, ch, s.tuning.ResponseTimeout)
	if err != nil {
		return time.Time{}, err
	}
	t, ok := protocol.ParseClockResponse(msg)
	if !ok {
		return time.Time{}, ErrTimeout
	}
	return t, nil
}

// SetClock sets the device clock. Fire and forget.
func (s *Session) SetClock(ctx context.Context, t time.Time) error {
	if err := s.requireChecksummed(); err != nil {
		return err
	}
	return s.send(ctx, s.Dialect().ConstructSetTime(t))
}

// QueryDeviceConfig reads the addressable strip geometry. Serialized on a
// dedicated lock because setup retries the read and must not race an
// explicit one.
func (s *Session) QueryDeviceConfig(ctx context.Context) (protocol.DeviceConfig, error) {
	if err := s.requireChecksummed(); err != nil {
		return protocol.DeviceConfig{}, err
	}
	s.deviceConfigMu.Lock()
	defer s.deviceConfigMu.Unlock()

	ch := s.pending.issue(protocol.ClassDeviceConfig)
	if err := s.send(ctx, s.Dialect().ConstructDeviceConfigQuery()); err != nil {
		return protocol.DeviceConfig{}, err
	}
	msg, err := s.pending.await(ctx, protocol.ClassDeviceConfig, ch, s.tuning.ResponseTimeout)
	if err != nil {
		return protocol.DeviceConfig{}, err
	}
	cfg, ok := protocol.ParseDeviceConfig(msg)
	if !ok {
		return protocol.DeviceConfig{}, ErrTimeout
	}
	return cfg, nil
}

// QueryPowerRestore reads the mains-restore behavior, on its own lock for
// the same reason as QueryDeviceConfig.
func (s *Session) QueryPowerRestore(ctx context.Context) (protocol.PowerRestoreState, error) {
	if err := s.requireChecksummed(); err != nil {
		return 0, err
	}
	s.powerRestoreMu.Lock()
	defer s.powerRestoreMu.Unlock()

	ch := s.pending.issue(protocol.ClassPowerRestore)
	if err := s.send(ctx, s.Dialect().ConstructPowerRestoreQuery()); err != nil {
		return 0, err
	}
	msg, err := s.pending.await(ctx, protocol.ClassPowerRestore, ch, s.tuning.ResponseTimeout)
	if err != nil {
		return 0, err
	}
	st, ok := protocol.ParsePowerRestore(msg)
	if !ok {
		return 0, ErrTimeout
	}
	return st, nil
}

// QueryRemoteConfig reads the 2.4GHz remote pairing mode.
func (s *Session) QueryRemoteConfig(ctx context.Context) (protocol.RemoteConfig, error) {
	if err := s.requireChecksummed(); err != nil {
		return 0, err
	}
	ch := s.pending.issue(protocol.ClassRemoteConfig)
	if err := s.send(ctx, s.Dialect().ConstructRemoteConfigQuery()); err != nil {
		return 0, err
	}
	msg, err := s.pending.await(ctx, protocol.ClassRemoteConfig, ch, s.tuning.ResponseTimeout)
	if err != nil {
		return 0, err
	}
	rc, ok := protocol.ParseRemoteConfig(msg)
	if !ok {
		return 0, ErrTimeout
	}
	return rc, nil
}
