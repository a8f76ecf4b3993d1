package protocol

import "testing"

// Round-trip a mixed timer table: one absolute color slot, one weekday
// repeat, one off slot, rest inactive. Adjacent slots must come back
// untouched.
func TestTimersRoundTrip(t *testing.T) {
	in := []Timer{
		{
			Active: true, Year: 2026, Month: 9, Day: 1,
			Hour: 7, Minute: 30,
			Pattern: PatternSolid, Red: 255, Green: 160, Blue: 0,
			TurnOn: true,
		},
		{}, // inactive
		{
			Active: true, Hour: 22, Minute: 15,
			Repeat:  RepeatMonday | RepeatFriday,
			Pattern: PatternSolid, WarmWhite: 128,
			TurnOn: true,
		},
		{
			Active: true, Year: 2027, Month: 1, Day: 2,
			Hour: 23, Minute: 0,
			TurnOn: false,
		},
	}

	msg, err := DialectStandard8.ConstructSetTimers(in)
	if err != nil {
		t.Fatal(err)
	}
	if !checksumOK(msg) {
		t.Fatalf("set-timers message violates checksum invariant: % X", msg)
	}

	// Reframe the write body as a read response and decode it back.
	resp := make([]byte, 0, timersResponseLen)
	resp = append(resp, headPushPrefix, headTimers)
	resp = append(resp, msg[1:1+TimerSlots*timerSlotLen]...)
	resp = append(resp, 0x00)
	resp = appendChecksum(resp)

	out, ok := ParseTimersResponse(resp)
	if !ok {
		t.Fatal("synthesized timers response rejected")
	}
	if len(out) != TimerSlots {
		t.Fatalf("got %d slots, want %d", len(out), TimerSlots)
	}

	for i, want := range in {
		if out[i] != want {
			t.Errorf("slot %d: got %+v, want %+v", i, out[i], want)
		}
	}
	for i := len(in); i < TimerSlots; i++ {
		if out[i].Active {
			t.Errorf("padding slot %d came back active", i)
		}
	}
}

func TestConstructSetTimersRejects(t *testing.T) {
	tooMany := make([]Timer, TimerSlots+1)
	if _, err := DialectStandard8.ConstructSetTimers(tooMany); err == nil {
		t.Error("expected error for too many slots")
	}

	bad := []Timer{{Active: true, Year: 2026, Month: 13, Day: 1, TurnOn: true}}
	if _, err := DialectStandard8.ConstructSetTimers(bad); err == nil {
		t.Error("expected error for out-of-range month")
	}
}

func TestParseTimersResponseRejects(t *testing.T) {
	msg, err := DialectStandard8.ConstructSetTimers(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ParseTimersResponse(msg); ok {
		t.Error("set-timers command accepted as a read response")
	}
}
