package light

import "time"

// Tuning carries the reverse-engineered timing constants of the session
// engine. The defaults match observed firmware behavior but none of them
// are protocol requirements, so they are configurable rather than baked
// in.
type Tuning struct {
	// ConnectTimeout bounds the TCP dial.
	ConnectTimeout time.Duration
	// ResponseTimeout is the base wait for a pending response; the two
	// power-retry phases use fractions of it.
	ResponseTimeout time.Duration
	// DetectTimeout bounds each dialect probe during setup.
	DetectTimeout time.Duration

	// PowerAttempts is the total number of power-change confirmation
	// attempts; LenientAfter is the attempt count after which any
	// power-state response is accepted as confirmation.
	PowerAttempts int
	LenientAfter  int
	// PowerPhase1Num/Den and PowerPhase2Num/Den are the fractions of
	// ResponseTimeout used for the short confirmation wait and the
	// post-re-query wait.
	PowerPhase1Num, PowerPhase1Den int
	PowerPhase2Num, PowerPhase2Den int

	// MaxNoResponse is the run of wholly unanswered update rounds after
	// which the session is marked unavailable.
	MaxNoResponse int

	// DeviceLatency and FadePerSpeedUnit shape the transition-gating
	// deadline after state-mutating commands.
	DeviceLatency    time.Duration
	FadePerSpeedUnit time.Duration

	// PollInterval drives active polling; LivenessInterval replaces it
	// for firmware that pushes state on its own.
	PollInterval     time.Duration
	LivenessInterval time.Duration
}

// DefaultTuning returns the empirically derived defaults.
func DefaultTuning() Tuning {
	return Tuning{
		ConnectTimeout:  5 * time.Second,
		ResponseTimeout: 2 * time.Second,
		DetectTimeout:   time.Second,

		PowerAttempts:  6,
		LenientAfter:   3,
		PowerPhase1Num: 3, PowerPhase1Den: 8,
		PowerPhase2Num: 5, PowerPhase2Den: 8,

		MaxNoResponse: 4,

		DeviceLatency:    600 * time.Millisecond,
		FadePerSpeedUnit: 20 * time.Millisecond,

		PollInterval:     5 * time.Second,
		LivenessInterval: 2 * time.Minute,
	}
}

// phase1 and phase2 compute the two power-retry windows.
func (t Tuning) phase1() time.Duration {
	return t.ResponseTimeout * time.Duration(t.PowerPhase1Num) / time.Duration(t.PowerPhase1Den)
}

func (t Tuning) phase2() time.Duration {
	return t.ResponseTimeout * time.Duration(t.PowerPhase2Num) / time.Duration(t.PowerPhase2Den)
}
