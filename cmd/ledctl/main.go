package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ledstack/ledwifi/pkg/capability"
	"github.com/ledstack/ledwifi/pkg/config"
	"github.com/ledstack/ledwifi/pkg/device"
	"github.com/ledstack/ledwifi/pkg/discovery"
	"github.com/ledstack/ledwifi/pkg/light"
	"github.com/ledstack/ledwifi/pkg/protocol"
)

const usageText = `usage: ledctl [flags] <command> [args]

commands:
  scan                           discover controllers on the local network
  status                         print the device state
  on | off                       switch power
  rgb R G B                      set color levels (0-255)
  white WARM [COOL]              set white levels (0-255)
  preset CODE [SPEED]            start a built-in effect (codes 0x25-0x38)
  custom RRGGBB... SPEED MODE    upload a custom effect (MODE: gradual|jump|strobe)
  timers                         print the schedule table
  clock                          print the device clock
  settime                        sync the device clock to this machine

flags:
`

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to YAML config file")
	host := flag.String("host", "", "device address (host or host:port)")
	timeout := flag.Duration("timeout", 10*time.Second, "overall command timeout")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load config")
			return 1
		}
		cfg = loaded
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if *debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return 2
	}
	cmd, cmdArgs := args[0], args[1:]

	addr := *host
	if addr == "" && len(cfg.Devices) > 0 {
		addr = cfg.Devices[0].Addr
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch cmd {
	case "scan":
		return cmdScan(ctx, *timeout)
	case "status", "on", "off", "rgb", "white", "preset":
		return cmdControl(ctx, cfg, addr, cmd, cmdArgs)
	case "custom", "timers", "clock", "settime":
		return cmdSession(ctx, cfg, addr, cmd, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		flag.Usage()
		return 2
	}
}

func cmdScan(ctx context.Context, timeout time.Duration) int {
	// Leave headroom so the scan finishes before the command deadline.
	scanWindow := timeout / 2
	devices, err := discovery.Scan(ctx, scanWindow)
	if err != nil {
		log.Error().Err(err).Msg("Scan failed")
		return 1
	}
	if len(devices) == 0 {
		fmt.Println("no controllers found")
		return 0
	}
	for _, d := range devices {
		fmt.Printf("%-16s %-14s %s\n", d.IP, d.ID, d.Model)
	}
	return 0
}

// cmdControl runs the commands that go through the controller facade, so
// payloads get schema-validated exactly like any other API caller's.
func cmdControl(ctx context.Context, cfg *config.Config, addr, cmd string, args []string) int {
	ctrl, id, ok := openController(ctx, cfg, addr)
	if !ok {
		return 1
	}
	defer ctrl.Close()

	var payload map[string]any
	switch cmd {
	case "status":
		state, err := ctrl.GetDeviceState(ctx, id)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read state")
			return 1
		}
		printState(state)
		return 0
	case "on":
		payload = map[string]any{"state": "ON"}
	case "off":
		payload = map[string]any{"state": "OFF"}
	case "rgb":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: ledctl rgb R G B")
			return 2
		}
		r, okR := parseLevel(args[0])
		g, okG := parseLevel(args[1])
		b, okB := parseLevel(args[2])
		if !okR || !okG || !okB {
			fmt.Fprintln(os.Stderr, "rgb levels must be 0-255")
			return 2
		}
		payload = map[string]any{"color": map[string]any{"r": r, "g": g, "b": b}}
	case "white":
		if len(args) < 1 || len(args) > 2 {
			fmt.Fprintln(os.Stderr, "usage: ledctl white WARM [COOL]")
			return 2
		}
		warm, okW := parseLevel(args[0])
		if !okW {
			fmt.Fprintln(os.Stderr, "white levels must be 0-255")
			return 2
		}
		payload = map[string]any{"warm_white": warm}
		if len(args) == 2 {
			cool, okC := parseLevel(args[1])
			if !okC {
				fmt.Fprintln(os.Stderr, "white levels must be 0-255")
				return 2
			}
			payload["cool_white"] = cool
		}
	case "preset":
		if len(args) < 1 || len(args) > 2 {
			fmt.Fprintln(os.Stderr, "usage: ledctl preset CODE [SPEED]")
			return 2
		}
		code, okC := parseByte(args[0])
		if !okC {
			fmt.Fprintln(os.Stderr, "preset code must be 0x25-0x38")
			return 2
		}
		preset := map[string]any{"code": float64(code)}
		if len(args) == 2 {
			speed, okS := parseLevel(args[1])
			if !okS {
				fmt.Fprintln(os.Stderr, "speed must be 0-255")
				return 2
			}
			preset["speed"] = speed
		}
		payload = map[string]any{"preset": preset}
	}

	state, err := ctrl.SetDeviceState(ctx, id, payload)
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		return 1
	}
	printState(state)
	return 0
}

// cmdSession runs the commands that need session-level operations the
// facade does not expose.
func cmdSession(ctx context.Context, cfg *config.Config, addr, cmd string, args []string) int {
	sess, ok := openSession(ctx, cfg, addr)
	if !ok {
		return 1
	}
	defer sess.Close()

	switch cmd {
	case "custom":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: ledctl custom RRGGBB[,RRGGBB...] SPEED MODE")
			return 2
		}
		colors, err := parseColorList(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		speed, okS := parseLevel(args[1])
		if !okS {
			fmt.Fprintln(os.Stderr, "speed must be 0-255")
			return 2
		}
		transition, okT := parseTransition(args[2])
		if !okT {
			fmt.Fprintln(os.Stderr, "transition must be gradual, jump or strobe")
			return 2
		}
		if err := sess.SetCustomEffect(ctx, colors, byte(speed), transition); err != nil {
			log.Error().Err(err).Msg("Custom effect failed")
			return 1
		}
		return 0

	case "timers":
		timers, err := sess.GetTimers(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read timers")
			return 1
		}
		printTimers(timers)
		return 0

	case "clock":
		now, err := sess.GetClock(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read clock")
			return 1
		}
		fmt.Println(now.Format("2006-01-02 15:04:05 Mon"))
		return 0

	case "settime":
		if err := sess.SetClock(ctx, time.Now()); err != nil {
			log.Error().Err(err).Msg("Failed to set clock")
			return 1
		}
		fmt.Println("clock synced")
		return 0
	}
	return 2
}

func openController(ctx context.Context, cfg *config.Config, addr string) (*device.WifiController, string, bool) {
	if addr == "" {
		fmt.Fprintln(os.Stderr, "no device: pass -host or configure devices in the config file")
		return nil, "", false
	}
	table, err := capability.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load capability table")
		return nil, "", false
	}
	ctrl := device.NewWifiController(table, cfg.Tuning())
	dev, err := ctrl.AddDevice(ctx, addr, "", "")
	if err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("Failed to connect")
		ctrl.Close()
		return nil, "", false
	}
	return ctrl, dev.ID, true
}

func openSession(ctx context.Context, cfg *config.Config, addr string) (*light.Session, bool) {
	if addr == "" {
		fmt.Fprintln(os.Stderr, "no device: pass -host or configure devices in the config file")
		return nil, false
	}
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, device.ControlPort)
	}
	table, err := capability.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load capability table")
		return nil, false
	}
	sess := light.NewSession(addr, table, cfg.Tuning())
	if err := sess.Setup(ctx); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("Failed to connect")
		return nil, false
	}
	return sess, true
}

func printState(state device.DeviceState) {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-12s %v\n", k, state[k])
	}
}

func printTimers(timers []protocol.Timer) {
	for i, t := range timers {
		if !t.Active {
			fmt.Printf("%d: inactive\n", i+1)
			continue
		}
		action := "off"
		if t.TurnOn {
			action = fmt.Sprintf("on pattern=0x%02X rgb(%d,%d,%d) ww=%d",
				t.Pattern, t.Red, t.Green, t.Blue, t.WarmWhite)
		}
		when := fmt.Sprintf("%04d-%02d-%02d %02d:%02d", t.Year, t.Month, t.Day, t.Hour, t.Minute)
		if t.Repeat != 0 {
			when = fmt.Sprintf("%s %02d:%02d", repeatDays(t.Repeat), t.Hour, t.Minute)
		}
		fmt.Printf("%d: %s -> %s\n", i+1, when, action)
	}
}

func repeatDays(mask byte) string {
	names := []struct {
		bit  byte
		name string
	}{
		{protocol.RepeatMonday, "Mon"},
		{protocol.RepeatTuesday, "Tue"},
		{protocol.RepeatWednesday, "Wed"},
		{protocol.RepeatThursday, "Thu"},
		{protocol.RepeatFriday, "Fri"},
		{protocol.RepeatSaturday, "Sat"},
		{protocol.RepeatSunday, "Sun"},
	}
	var days []string
	for _, n := range names {
		if mask&n.bit != 0 {
			days = append(days, n.name)
		}
	}
	return strings.Join(days, ",")
}

// parseLevel parses a 0-255 channel level into the float64 form the
// state-schema validator expects.
func parseLevel(s string) (float64, bool) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, false
	}
	return float64(v), true
}

// parseByte accepts decimal or 0x-prefixed hex.
func parseByte(s string) (byte, bool) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

func parseTransition(s string) (byte, bool) {
	switch strings.ToLower(s) {
	case "gradual":
		return protocol.TransitionGradual, true
	case "jump":
		return protocol.TransitionJump, true
	case "strobe":
		return protocol.TransitionStrobe, true
	default:
		return 0, false
	}
}

// parseColorList parses comma-separated RRGGBB hex stops.
func parseColorList(s string) ([][3]byte, error) {
	var colors [][3]byte
	for _, stop := range strings.Split(s, ",") {
		stop = strings.TrimSpace(stop)
		if len(stop) != 6 {
			return nil, fmt.Errorf("color stop %q is not RRGGBB hex", stop)
		}
		v, err := strconv.ParseUint(stop, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("color stop %q is not RRGGBB hex", stop)
		}
		colors = append(colors, [3]byte{byte(v >> 16), byte(v >> 8), byte(v)})
	}
	return colors, nil
}
