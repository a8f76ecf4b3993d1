package protocol

import "fmt"

// Timer is one slot of the device's fixed six-slot schedule table. A slot
// either fires once at an absolute date or repeats on the weekday mask;
// when it fires it turns the device on with the given pattern/levels, or
// off.
type Timer struct {
	Active bool

	// Absolute trigger date (Year is the full year). Ignored for weekday
	// repeats except hour/minute.
	Year   int
	Month  byte
	Day    byte
	Hour   byte
	Minute byte

	// Repeat is the weekday bitmask (RepeatMonday..RepeatSunday); zero
	// means a one-shot timer.
	Repeat byte

	// Pattern fired on trigger; PatternSolid selects the static color
	// levels below.
	Pattern   byte
	Red       byte
	Green     byte
	Blue      byte
	WarmWhite byte

	// TurnOn false means the slot switches the device off instead.
	TurnOn bool
}

// encodeSlot packs a timer into its 14-byte wire slot. Inactive slots are
// all zeroes.
func encodeSlot(t Timer) [timerSlotLen]byte {
	var slot [timerSlotLen]byte
	if !t.Active {
		return slot
	}
	slot[0] = timerActive
	if t.Repeat == 0 {
		slot[1] = byte(t.Year - 2000)
		slot[2] = t.Month
		slot[3] = t.Day
	}
	slot[4] = t.Hour
	slot[5] = t.Minute
	slot[7] = t.Repeat
	slot[8] = t.Pattern
	slot[9] = t.Red
	slot[10] = t.Green
	slot[11] = t.Blue
	slot[12] = t.WarmWhite
	if t.TurnOn {
		slot[13] = timerTurnOn
	} else {
		slot[13] = timerTurnOff
	}
	return slot
}

// decodeSlot unpacks a 14-byte wire slot.
func decodeSlot(slot []byte) Timer {
	if slot[0] != timerActive {
		return Timer{}
	}
	t := Timer{
		Active:    true,
		Month:     slot[2],
		Day:       slot[3],
		Hour:      slot[4],
		Minute:    slot[5],
		Repeat:    slot[7],
		Pattern:   slot[8],
		Red:       slot[9],
		Green:     slot[10],
		Blue:      slot[11],
		WarmWhite: slot[12],
		TurnOn:    slot[13] == timerTurnOn,
	}
	if t.Repeat == 0 {
		t.Year = 2000 + int(slot[1])
	}
	return t
}

// ConstructSetTimers builds the timer table write command. Fewer than six
// timers pads with inactive slots; more is a caller error.
func (d Dialect) ConstructSetTimers(timers []Timer) ([]byte, error) {
	if len(timers) > TimerSlots {
		return nil, fmt.Errorf("timer table holds %d slots, got %d", TimerSlots, len(timers))
	}
	for i, t := range timers {
		if !t.Active {
			continue
		}
		if t.Month > 12 || t.Day > 31 || t.Hour > 23 || t.Minute > 59 {
			return nil, fmt.Errorf("timer slot %d has an out-of-range trigger time", i)
		}
		if t.Repeat == 0 && (t.Year < 2000 || t.Year > 2255) {
			return nil, fmt.Errorf("timer slot %d year %d outside 2000..2255", i, t.Year)
		}
	}

	msg := make([]byte, 0, 1+TimerSlots*timerSlotLen+3)
	msg = append(msg, 0x21)
	for i := 0; i < TimerSlots; i++ {
		var slot [timerSlotLen]byte
		if i < len(timers) {
			slot = encodeSlot(timers[i])
		}
		msg = append(msg, slot[:]...)
	}
	msg = append(msg, 0x00, 0xF0)
	return appendChecksum(msg), nil
}

// ParseTimersResponse decodes a timer table read response into its six
// slots. ok=false means the message failed structural validation and must
// be dropped.
func ParseTimersResponse(msg []byte) ([]Timer, bool) {
	if len(msg) != timersResponseLen || msg[0] != headPushPrefix || msg[1] != headTimers || !checksumOK(msg) {
		return nil, false
	}
	timers := make([]Timer, TimerSlots)
	for i := 0; i < TimerSlots; i++ {
		off := 2 + i*timerSlotLen
		timers[i] = decodeSlot(msg[off : off+timerSlotLen])
	}
	return timers, true
}
