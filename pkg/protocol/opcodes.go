package protocol

// Wire constants shared across dialects. Standard-family messages carry a
// trailing checksum; the original dialect never does.
const (
	// Power-state bytes used in both commands and responses.
	PowerOn  = 0x23
	PowerOff = 0x24

	// Levels persistence selector.
	persistWrite  = 0x31
	volatileWrite = 0x41

	// Levels write masks.
	WriteMaskAll    = 0x00
	WriteMaskColors = 0xF0
	WriteMaskWhites = 0x0F

	// Message heads.
	headStateStandard = 0x81
	headStateOriginal = 0x66
	tailOriginal      = 0x99
	headPushPrefix    = 0x0F
	headPower         = 0x71
	headTimers        = 0x22
	headClock         = 0x11
	headDeviceConfig  = 0x63
	headPowerRestore  = 0x32
	headRemoteConfig  = 0x2B

	// Fixed message lengths.
	standardStateLen  = 14
	originalStateLen  = 11
	powerStateLen     = 4
	clockResponseLen  = 12
	timersResponseLen = 88
	deviceConfigLen   = 11
	powerRestoreLen   = 10
	remoteConfigLen   = 12

	// Preset pattern codes.
	PatternSolidWarm  = 0x41 // solid color, single-channel fixtures
	PatternSolid      = 0x61 // solid color / warm white
	PatternCustom     = 0x60
	PatternMusic      = 0x62
	PatternSunrise    = 0xA1
	PatternSunset     = 0xA2
	PresetPatternMin  = 0x25
	PresetPatternMax  = 0x38

	// Custom effect transition types.
	TransitionGradual = 0x3A
	TransitionJump    = 0x3B
	TransitionStrobe  = 0x3C

	customEffectSlots = 16

	// Timer block geometry.
	TimerSlots   = 6
	timerSlotLen = 14

	timerActive   = 0xF0
	timerInactive = 0x0F
	timerTurnOn   = 0xF0
	timerTurnOff  = 0x0F
)

// Timer repeat-mask weekday bits.
const (
	RepeatMonday    = 0x02
	RepeatTuesday   = 0x04
	RepeatWednesday = 0x08
	RepeatThursday  = 0x10
	RepeatFriday    = 0x20
	RepeatSaturday  = 0x40
	RepeatSunday    = 0x80
)
