package light

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ledstack/ledwifi/pkg/capability"
	"github.com/ledstack/ledwifi/pkg/protocol"
)

// Status is the session lifecycle state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusDetecting
	StatusReady
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusDetecting:
		return "detecting"
	case StatusReady:
		return "ready"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "invalid"
	}
}

// detectionOrder is the fixed dialect probe priority: the standard
// checksummed family answers for every modern generation, the original
// layout is the fallback.
var detectionOrder = []protocol.Dialect{protocol.DialectStandard8, protocol.DialectOriginal}

// Session owns one device connection: dialect detection, framing,
// command/response correlation and the reconciled state model. Safe for
// concurrent callers; shared state is serialized on an internal mutex that
// is never held across a network wait (only across single sends).
type Session struct {
	addr   string
	table  *capability.Table
	tuning Tuning

	mu          sync.Mutex
	conn        net.Conn
	dialect     protocol.Dialect
	entry       capability.Entry
	state       *State
	status      Status
	closed      bool
	noResponse  int
	requeried   bool
	lastInbound time.Time

	pending *pendingTable

	// Device-config and power-restore reads happen during setup retries
	// and must not race a concurrent explicit re-query.
	deviceConfigMu sync.Mutex
	powerRestoreMu sync.Mutex

	onChange func(Snapshot)
}

// NewSession creates a session for addr ("host:port"). Nothing is dialed
// until Setup.
func NewSession(addr string, table *capability.Table, tuning Tuning) *Session {
	return &Session{
		addr:    addr,
		table:   table,
		tuning:  tuning,
		status:  StatusDisconnected,
		pending: newPendingTable(),
	}
}

// OnChange registers the state-change notification callback. It is invoked
// from the session's receive path and must not block. Call before Setup.
func (s *Session) OnChange(fn func(Snapshot)) { s.onChange = fn }

// Addr returns the device endpoint.
func (s *Session) Addr() string { return s.addr }

// Setup connects and runs dialect detection. Detection happens once; a
// later reconnect reuses the detected dialect. Failure to detect any
// dialect leaves the session unavailable.
func (s *Session) Setup(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusDetecting

	conn, err := s.dial(ctx)
	if err != nil {
		s.status = StatusUnavailable
		s.mu.Unlock()
		return fmt.Errorf("connect %s: %w", s.addr, err)
	}

	if s.dialect == protocol.DialectUnknown {
		if err := s.detectLocked(conn); err != nil {
			s.status = StatusUnavailable
			s.mu.Unlock()
			_ = conn.Close()
			return err
		}
	}

	s.conn = conn
	s.status = StatusReady
	s.noResponse = 0
	dialect := s.dialect
	entry := s.entry
	s.mu.Unlock()

	go s.readLoop(conn)

	log.Info().
		Str("addr", s.addr).
		Str("dialect", dialect.String()).
		Str("model", entry.Name).
		Msg("session ready")

	// Initial auxiliary reads. Best effort: a model that never answers
	// these still works as a light.
	if entry.Addressable {
		if _, err := s.QueryDeviceConfig(ctx); err != nil {
			log.Warn().Err(err).Str("addr", s.addr).Msg("device config read failed during setup")
		}
	}
	if dialect != protocol.DialectOriginal && !entry.SwitchOnly {
		if _, err := s.QueryPowerRestore(ctx); err != nil {
			log.Warn().Err(err).Str("addr", s.addr).Msg("power restore read failed during setup")
		}
	}
	return nil
}

func (s *Session) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: s.tuning.ConnectTimeout}
	return d.DialContext(ctx, "tcp", s.addr)
}

// detectLocked probes each dialect in priority order over the fresh
// connection, before the read loop exists, and adopts the first one whose
// state response validates. The capability table then refines the dialect
// from the reported model (a standard-family probe answers for the 9-byte
// and addressable generations too).
func (s *Session) detectLocked(conn net.Conn) error {
	for _, d := range detectionOrder {
		query := d.ConstructStateQuery()
		if _, err := conn.Write(query); err != nil {
			return fmt.Errorf("detection probe write: %w", err)
		}

		msg, err := readExact(conn, d.StateResponseLength(), s.tuning.DetectTimeout)
		if err != nil {
			log.Debug().Err(err).Str("dialect", d.String()).Msg("dialect probe unanswered")
			continue
		}
		if !d.IsValidStateResponse(msg) {
			log.Debug().
				Str("dialect", d.String()).
				Str("response", hex.EncodeToString(msg)).
				Msg("dialect probe response invalid")
			continue
		}

		raw := d.NamedRawState(msg)
		entry := s.table.LookupOrDefault(raw.Model, d)
		s.dialect = entry.Dialect
		s.entry = entry
		s.state = NewState(entry)
		s.state.ApplyResponse(raw, time.Now())
		log.Info().
			Uint8("model", raw.Model).
			Str("probe", d.String()).
			Str("dialect", entry.Dialect.String()).
			Msg("dialect detected")
		return nil
	}
	return ErrDetectionFailed
}

// readExact collects exactly n bytes within timeout.
func readExact(conn net.Conn, n int, timeout time.Duration) ([]byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})

	buf := make([]byte, 0, n)
	tmp := make([]byte, n)
	for len(buf) < n {
		k, err := conn.Read(tmp[:n-len(buf)])
		buf = append(buf, tmp[:k]...)
		if err != nil {
			return buf, err
		}
	}
	return buf, nil
}

// Close stops the session permanently.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.status = StatusDisconnected
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	return nil
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Dialect returns the detected dialect, or DialectUnknown before setup.
func (s *Session) Dialect() protocol.Dialect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialect
}

// Entry returns the capability entry adopted at detection.
func (s *Session) Entry() capability.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry
}

// Snapshot returns the current derived state view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return Snapshot{Available: false}
	}
	return s.state.snapshot(s.dialect, s.status == StatusReady)
}

// readLoop drains the connection, reassembles messages and dispatches
// them strictly in arrival order.
func (s *Session) readLoop(conn net.Conn) {
	f := newFramer(s.Dialect())
	buf := make([]byte, 512)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, msg := range f.Feed(buf[:n]) {
				s.dispatch(msg)
			}
		}
		if err != nil {
			s.handleDisconnect(conn, err)
			return
		}
	}
}

// handleDisconnect marks the session disconnected if conn is still the
// active connection. Pending slots are left to time out on their own.
func (s *Session) handleDisconnect(conn net.Conn, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		return
	}
	_ = conn.Close()
	s.conn = nil
	if !s.closed {
		s.status = StatusDisconnected
		log.Warn().Err(err).Str("addr", s.addr).Msg("connection lost")
	}
}

// dispatch classifies one reassembled message, feeds the state model and
// resolves the matching pending slot.
func (s *Session) dispatch(msg []byte) {
	s.mu.Lock()
	s.lastInbound = time.Now()
	dialect := s.dialect
	s.mu.Unlock()

	class := dialect.Classify(msg)
	if class == protocol.ClassUnknown {
		log.Debug().Str("msg", hex.EncodeToString(msg)).Msg("unknown message dropped")
		return
	}
	if class == protocol.ClassState {
		s.dispatchState(msg)
		return
	}
	if !dialect.IsValidResponse(msg) {
		log.Warn().
			Str("class", class.String()).
			Str("msg", hex.EncodeToString(msg)).
			Msg("checksum validation failed, message dropped")
		return
	}

	var snap *Snapshot
	if class == protocol.ClassPower {
		if p, ok := protocol.ParsePowerState(msg); ok {
			s.mu.Lock()
			if s.state != nil {
				s.state.SetPower(p == protocol.PowerOn)
				v := s.state.snapshot(s.dialect, s.status == StatusReady)
				snap = &v
			}
			s.mu.Unlock()
		}
	}

	s.pending.resolve(class, msg)
	if snap != nil {
		s.notify(*snap)
	}
}

func (s *Session) dispatchState(msg []byte) {
	s.mu.Lock()
	dialect := s.dialect
	if !dialect.IsValidStateResponse(msg) {
		s.mu.Unlock()
		log.Warn().Str("msg", hex.EncodeToString(msg)).Msg("invalid state response dropped")
		return
	}
	raw := dialect.NamedRawState(msg)
	ok := s.state.ApplyResponse(raw, time.Now())
	var snap Snapshot
	requery := false
	if ok {
		s.requeried = false
		snap = s.state.snapshot(dialect, s.status == StatusReady)
	} else if !s.requeried {
		s.requeried = true
		requery = true
	}
	s.mu.Unlock()

	if !ok {
		log.Warn().
			Uint8("pattern", raw.Pattern).
			Uint8("mode", raw.Mode).
			Msg("state response has unrecognizable mode, treating update as failed")
		if requery {
			if err := s.send(context.Background(), dialect.ConstructStateQuery()); err != nil {
				log.Debug().Err(err).Msg("re-query after failed update")
			}
		}
		return
	}

	s.pending.resolve(protocol.ClassState, msg)
	s.notify(snap)
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

// send writes messages to the device, lazily reconnecting once if the
// connection is gone. The session mutex is held only for the duration of
// the writes, never across a response wait.
func (s *Session) send(ctx context.Context, msgs ...[]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for try := 0; ; try++ {
		if err := s.ensureConnectedLocked(ctx); err != nil {
			return err
		}
		if err := s.writeLocked(msgs); err == nil {
			return nil
		} else if try >= 1 {
			s.status = StatusUnavailable
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
}

// ensureConnectedLocked performs the lazy reconnect. Holding the session
// mutex makes the reconnect single-flight: concurrent commands queue
// behind the first dialer.
func (s *Session) ensureConnectedLocked(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.conn != nil {
		return nil
	}
	if s.dialect == protocol.DialectUnknown {
		return fmt.Errorf("%w: setup has not run", ErrUnavailable)
	}
	conn, err := s.dial(ctx)
	if err != nil {
		s.status = StatusUnavailable
		return fmt.Errorf("%w: reconnect: %v", ErrUnavailable, err)
	}
	s.conn = conn
	s.status = StatusReady
	log.Info().Str("addr", s.addr).Msg("reconnected")
	go s.readLoop(conn)
	return nil
}

func (s *Session) writeLocked(msgs [][]byte) error {
	for _, msg := range msgs {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.tuning.ConnectTimeout))
		if _, err := s.conn.Write(msg); err != nil {
			conn := s.conn
			s.conn = nil
			s.status = StatusDisconnected
			_ = conn.Close()
			return err
		}
		log.Debug().Str("addr", s.addr).Str("tx", hex.EncodeToString(msg)).Msg("sent")
	}
	return nil
}

// Query polls the device state and waits for the response. A run of
// wholly unanswered rounds marks the session unavailable.
func (s *Session) Query(ctx context.Context) (Snapshot, error) {
	ch := s.pending.issue(protocol.ClassState)
	if err := s.send(ctx, s.Dialect().ConstructStateQuery()); err != nil {
		return s.Snapshot(), err
	}
	if _, err := s.pending.await(ctx, protocol.ClassState, ch, s.tuning.ResponseTimeout); err != nil {
		return s.Snapshot(), s.recordRoundResult(err)
	}
	s.recordRoundResult(nil)
	return s.Snapshot(), nil
}

// recordRoundResult tracks consecutive unanswered update rounds for
// availability accounting.
func (s *Session) recordRoundResult(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.noResponse = 0
		return nil
	}
	if err != ErrTimeout {
		return err
	}
	s.noResponse++
	if s.noResponse >= s.tuning.MaxNoResponse {
		s.status = StatusUnavailable
		if s.conn != nil {
			_ = s.conn.Close()
			s.conn = nil
		}
		log.Warn().
			Str("addr", s.addr).
			Int("rounds", s.noResponse).
			Msg("device stopped answering, marking unavailable")
		return ErrUnavailable
	}
	return err
}

// Poll runs the polling loop until ctx is cancelled. Firmware that pushes
// unsolicited state gets only the coarse liveness interval.
func (s *Session) Poll(ctx context.Context) {
	interval := s.tuning.PollInterval
	if s.Entry().PushUpdates {
		interval = s.tuning.LivenessInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Query(ctx); err != nil {
				log.Debug().Err(err).Str("addr", s.addr).Msg("poll round failed")
			}
		}
	}
}
