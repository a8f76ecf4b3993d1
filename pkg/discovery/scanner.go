// Package discovery finds WiFi LED controllers on the local network. The
// modules answer a fixed plaintext probe on UDP port 48899 with a
// comma-separated "ip,id,model" line.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Port is the controllers' UDP discovery port.
const Port = 48899

// probeMessage is the magic string every module firmware answers to.
const probeMessage = "HF-A11ASSISTHREAD"

// Device is one discovery reply.
type Device struct {
	IP    string
	ID    string
	Model string
}

// Scanner probes for controllers. The zero value broadcasts on the local
// network; set Target to probe a single known host.
type Scanner struct {
	// Target is the probe destination, "host:port". Defaults to the
	// limited broadcast address on Port.
	Target string
	// ProbeInterval is how often the probe is re-sent while collecting
	// replies. Modules answer every probe, so re-sending papers over
	// lost datagrams.
	ProbeInterval time.Duration
}

// Scan probes until timeout expires or ctx is cancelled and returns every
// distinct device that answered, ordered by IP. An empty result is not an
// error; a quiet network looks the same as an empty one.
func (s Scanner) Scan(ctx context.Context, timeout time.Duration) ([]Device, error) {
	target := s.Target
	if target == "" {
		target = fmt.Sprintf("255.255.255.255:%d", Port)
	}
	interval := s.ProbeInterval
	if interval <= 0 {
		interval = time.Second
	}

	dst, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("open discovery socket: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	found := map[string]Device{}
	buf := make([]byte, 256)
	nextProbe := time.Time{}
	for {
		if ctx.Err() != nil {
			break
		}
		now := time.Now()
		if !now.Before(deadline) {
			break
		}
		if !now.Before(nextProbe) {
			if _, err := conn.WriteToUDP([]byte(probeMessage), dst); err != nil {
				return nil, fmt.Errorf("send probe to %s: %w", target, err)
			}
			nextProbe = now.Add(interval)
		}

		readUntil := nextProbe
		if deadline.Before(readUntil) {
			readUntil = deadline
		}
		_ = conn.SetReadDeadline(readUntil)
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return nil, fmt.Errorf("discovery read: %w", err)
		}

		dev, ok := parseReply(string(buf[:n]))
		if !ok {
			continue
		}
		if _, seen := found[dev.ID]; !seen {
			log.Debug().
				Str("ip", dev.IP).
				Str("id", dev.ID).
				Str("model", dev.Model).
				Str("from", from.String()).
				Msg("controller discovered")
		}
		found[dev.ID] = dev
	}

	devices := make([]Device, 0, len(found))
	for _, dev := range found {
		devices = append(devices, dev)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].IP < devices[j].IP })
	return devices, nil
}

// Scan broadcasts with default settings.
func Scan(ctx context.Context, timeout time.Duration) ([]Device, error) {
	return Scanner{}.Scan(ctx, timeout)
}

// parseReply decodes one "ip,id,model" reply. The device's own probe echo
// and other hosts' probes are silently skipped.
func parseReply(line string) (Device, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line == probeMessage {
		return Device{}, false
	}
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Device{}, false
	}
	if net.ParseIP(parts[0]) == nil {
		return Device{}, false
	}
	return Device{IP: parts[0], ID: parts[1], Model: parts[2]}, true
}
