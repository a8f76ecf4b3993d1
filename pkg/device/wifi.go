package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ledstack/ledwifi/pkg/capability"
	"github.com/ledstack/ledwifi/pkg/device/schema"
	"github.com/ledstack/ledwifi/pkg/discovery"
	"github.com/ledstack/ledwifi/pkg/light"
)

// ControlPort is the controllers' TCP command port.
const ControlPort = 5577

// managedDevice pairs a caller-facing record with its session.
type managedDevice struct {
	info    Device
	session *light.Session
}

// WifiController implements Controller over one TCP session per device.
type WifiController struct {
	table     *capability.Table
	tuning    light.Tuning
	validator *schema.Validator

	devicesMu sync.RWMutex
	devices   map[string]*managedDevice
	closed    bool

	subscribersMu sync.Mutex
	subscribers   []chan DiscoveryEvent
}

// NewWifiController creates a controller with no devices. Populate it with
// AddDevice or Discover.
func NewWifiController(table *capability.Table, tuning light.Tuning) *WifiController {
	return &WifiController{
		table:     table,
		tuning:    tuning,
		validator: schema.NewValidator(),
		devices:   make(map[string]*managedDevice),
	}
}

// AddDevice connects to addr ("host" or "host:port"), detects the
// protocol dialect and registers the device under id (the address when id
// is empty).
func (c *WifiController) AddDevice(ctx context.Context, addr, id, name string) (*Device, error) {
	addr = withControlPort(addr)
	if id == "" {
		id = addr
	}
	if name == "" {
		name = id
	}

	c.devicesMu.RLock()
	existing, ok := c.devices[id]
	closed := c.closed
	c.devicesMu.RUnlock()
	if closed {
		return nil, ErrNotConnected
	}
	if ok {
		info := existing.info
		return &info, nil
	}

	sess := light.NewSession(addr, c.table, c.tuning)
	sess.OnChange(func(snap light.Snapshot) {
		c.publishEvent(DiscoveryEvent{
			Type:      EventStateChanged,
			Device:    &Device{ID: id},
			State:     snapshotToState(snap),
			Timestamp: time.Now(),
		})
	})
	if err := sess.Setup(ctx); err != nil {
		_ = sess.Close()
		return nil, err
	}

	entry := sess.Entry()
	info := Device{
		ID:          id,
		Name:        name,
		Type:        deviceType(entry),
		Protocol:    ProtocolWiFi,
		Addr:        addr,
		Model:       entry.Name,
		ModelCode:   entry.Model,
		Dialect:     sess.Dialect().String(),
		StateSchema: StateSchemaFor(entry),
	}

	c.devicesMu.Lock()
	if c.closed {
		c.devicesMu.Unlock()
		_ = sess.Close()
		return nil, ErrNotConnected
	}
	if existing, ok := c.devices[id]; ok {
		c.devicesMu.Unlock()
		_ = sess.Close()
		out := existing.info
		return &out, nil
	}
	c.devices[id] = &managedDevice{info: info, session: sess}
	c.devicesMu.Unlock()

	log.Info().
		Str("id", id).
		Str("addr", addr).
		Str("model", info.Model).
		Msg("device added")
	c.publishEvent(DiscoveryEvent{Type: EventDeviceFound, Device: &info, Timestamp: time.Now()})
	out := info
	return &out, nil
}

// Discover scans the local network and registers every controller that
// answers. Devices that answer the scan but refuse the TCP session are
// skipped with a warning.
func (c *WifiController) Discover(ctx context.Context, timeout time.Duration) ([]Device, error) {
	found, err := discovery.Scan(ctx, timeout)
	if err != nil {
		return nil, fmt.Errorf("discovery scan: %w", err)
	}

	var added []Device
	for _, d := range found {
		dev, err := c.AddDevice(ctx, d.IP, d.ID, d.Model)
		if err != nil {
			log.Warn().Err(err).Str("ip", d.IP).Str("id", d.ID).Msg("discovered device rejected session")
			continue
		}
		added = append(added, *dev)
	}
	return added, nil
}

func (c *WifiController) ListDevices(_ context.Context) ([]Device, error) {
	c.devicesMu.RLock()
	defer c.devicesMu.RUnlock()

	devices := make([]Device, 0, len(c.devices))
	for _, md := range c.devices {
		devices = append(devices, md.info)
	}
	return devices, nil
}

func (c *WifiController) GetDevice(_ context.Context, id string) (*Device, error) {
	md, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	info := md.info
	return &info, nil
}

func (c *WifiController) RenameDevice(_ context.Context, id, newName string) error {
	c.devicesMu.Lock()
	defer c.devicesMu.Unlock()

	md, ok := c.devices[id]
	if !ok {
		return ErrNotFound
	}
	md.info.Name = newName
	return nil
}

func (c *WifiController) RemoveDevice(_ context.Context, id string) error {
	c.devicesMu.Lock()
	md, ok := c.devices[id]
	if ok {
		delete(c.devices, id)
	}
	c.devicesMu.Unlock()
	if !ok {
		return ErrNotFound
	}

	_ = md.session.Close()
	c.publishEvent(DiscoveryEvent{
		Type:      EventDeviceLeft,
		Device:    &Device{ID: id},
		Timestamp: time.Now(),
	})
	return nil
}

func (c *WifiController) GetDeviceState(ctx context.Context, id string) (DeviceState, error) {
	md, err := c.lookup(id)
	if err != nil {
		return nil, err
	}

	snap, qerr := md.session.Query(ctx)
	if qerr != nil {
		// A stale snapshot is better than nothing, but total silence is
		// an error the caller needs to see.
		if !snap.Available {
			return nil, mapSessionErr(qerr)
		}
		log.Warn().Err(qerr).Str("device", id).Msg("state refresh failed, serving cached snapshot")
	}
	return snapshotToState(snap), nil
}

func (c *WifiController) SetDeviceState(ctx context.Context, id string, state map[string]any) (DeviceState, error) {
	md, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := c.validator.Validate(md.info.StateSchema, state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Power-on first so level changes are visible; power-off last so they
	// are not.
	on, hasPower := onOffValue(state["state"])
	if hasPower && on {
		if err := md.session.SetPower(ctx, true); err != nil {
			return nil, mapSessionErr(err)
		}
	}

	if err := c.applyLevels(ctx, md, state); err != nil {
		return nil, mapSessionErr(err)
	}

	if p, ok := state["preset"].(map[string]any); ok {
		code, _ := byteValue(p["code"])
		speed, hasSpeed := byteValue(p["speed"])
		if !hasSpeed {
			speed = md.session.Snapshot().Speed
		}
		if err := md.session.SetPreset(ctx, code, speed, 0xFF); err != nil {
			return nil, mapSessionErr(err)
		}
	}

	if hasPower && !on {
		if err := md.session.SetPower(ctx, false); err != nil {
			return nil, mapSessionErr(err)
		}
	}

	return snapshotToState(md.session.Snapshot()), nil
}

// applyLevels translates the color/white/brightness fields into a single
// levels command.
func (c *WifiController) applyLevels(ctx context.Context, md *managedDevice, state map[string]any) error {
	sess := md.session

	if col, ok := state["color"].(map[string]any); ok {
		r, _ := byteValue(col["r"])
		g, _ := byteValue(col["g"])
		b, _ := byteValue(col["b"])
		if bri, ok := byteValue(state["brightness"]); ok {
			r, g, b = scaleColor(r, g, b, bri)
		}
		return sess.SetRGB(ctx, r, g, b)
	}

	ww, hasWarm := byteValue(state["warm_white"])
	cw, hasCool := byteValue(state["cool_white"])
	if hasWarm || hasCool {
		return sess.SetWhites(ctx, ww, cw)
	}

	bri, ok := byteValue(state["brightness"])
	if !ok {
		return nil
	}

	// Bare brightness rescales whatever the device is currently showing.
	snap := sess.Snapshot()
	switch snap.ColorMode {
	case capability.ColorModeDIM:
		return sess.SetWhites(ctx, bri, 0)
	case capability.ColorModeCCT:
		warm, cool := scaleWhites(snap.WarmWhite, snap.CoolWhite, bri)
		return sess.SetWhites(ctx, warm, cool)
	default:
		r, g, b := scaleColor(snap.Red, snap.Green, snap.Blue, bri)
		return sess.SetRGB(ctx, r, g, b)
	}
}

func (c *WifiController) PermitJoin(_ context.Context, _ bool, _ int) error {
	// WiFi modules pair through their AP provisioning flow, not through
	// the controller.
	return ErrUnsupported
}

func (c *WifiController) IsConnected() bool {
	c.devicesMu.RLock()
	defer c.devicesMu.RUnlock()
	return !c.closed
}

// Close disconnects every device.
func (c *WifiController) Close() {
	c.devicesMu.Lock()
	if c.closed {
		c.devicesMu.Unlock()
		return
	}
	c.closed = true
	sessions := make([]*light.Session, 0, len(c.devices))
	for _, md := range c.devices {
		sessions = append(sessions, md.session)
	}
	c.devices = make(map[string]*managedDevice)
	c.devicesMu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
	log.Info().Int("devices", len(sessions)).Msg("controller closed")
}

// --- device.EventSubscriber interface ---

func (c *WifiController) Subscribe() chan DiscoveryEvent {
	ch := make(chan DiscoveryEvent, 16)
	c.subscribersMu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.subscribersMu.Unlock()
	return ch
}

func (c *WifiController) Unsubscribe(ch chan DiscoveryEvent) {
	c.subscribersMu.Lock()
	defer c.subscribersMu.Unlock()

	for i, sub := range c.subscribers {
		if sub == ch {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// publishEvent sends a discovery event to all subscribers.
func (c *WifiController) publishEvent(evt DiscoveryEvent) {
	c.subscribersMu.Lock()
	defer c.subscribersMu.Unlock()

	for _, ch := range c.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// --- Helpers ---

func (c *WifiController) lookup(id string) (*managedDevice, error) {
	c.devicesMu.RLock()
	defer c.devicesMu.RUnlock()
	if c.closed {
		return nil, ErrNotConnected
	}
	md, ok := c.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return md, nil
}

func deviceType(e capability.Entry) string {
	if e.SwitchOnly {
		return DeviceTypeSwitch
	}
	return DeviceTypeLight
}

// withControlPort appends the default TCP port when addr has none.
func withControlPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(ControlPort))
}

func snapshotToState(snap light.Snapshot) DeviceState {
	state := DeviceState{
		"state":      boolToOnOff(snap.IsOn),
		"available":  snap.Available,
		"mode":       string(snap.Mode),
		"color_mode": string(snap.ColorMode),
		"brightness": snap.Brightness,
		"color": map[string]any{
			"r": snap.Red, "g": snap.Green, "b": snap.Blue,
		},
		"warm_white": snap.WarmWhite,
		"cool_white": snap.CoolWhite,
	}
	if snap.Mode == light.ModePreset {
		state["preset"] = map[string]any{
			"code": snap.Pattern, "speed": snap.Speed,
		}
	}
	return state
}

func mapSessionErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, light.ErrTimeout), errors.Is(err, light.ErrPowerChangeFailed):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, light.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.Is(err, light.ErrClosed):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	case errors.Is(err, light.ErrUnsupported):
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	default:
		return err
	}
}

func onOffValue(v any) (on, ok bool) {
	s, ok := v.(string)
	if !ok {
		return false, false
	}
	return strings.EqualFold(s, "ON"), true
}

// byteValue accepts the numeric types a JSON payload or a Go caller can
// produce.
func byteValue(v any) (byte, bool) {
	switch n := v.(type) {
	case float64:
		return byte(n), true
	case int:
		return byte(n), true
	case int64:
		return byte(n), true
	case byte:
		return n, true
	default:
		return 0, false
	}
}

// scaleColor rescales r,g,b so the HSV value channel equals bri while the
// hue is preserved.
func scaleColor(r, g, b, bri byte) (byte, byte, byte) {
	v := r
	if g > v {
		v = g
	}
	if b > v {
		v = b
	}
	if v == 0 {
		return bri, bri, bri
	}
	scale := func(c byte) byte { return byte(int(c) * int(bri) / int(v)) }
	return scale(r), scale(g), scale(b)
}

// scaleWhites rescales a warm/cool pair so their sum equals bri while the
// color temperature is preserved.
func scaleWhites(ww, cw, bri byte) (byte, byte) {
	total := int(ww) + int(cw)
	if total == 0 {
		half := int(bri) / 2
		return byte(int(bri) - half), byte(half)
	}
	warm := int(ww) * int(bri) / total
	return byte(warm), byte(int(bri) - warm)
}

func boolToOnOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
