package protocol

import "time"

// Parsers for the smaller reply categories. All of them return ok=false on
// structural mismatch instead of erroring; invalid replies are dropped.

// ParseClockResponse decodes the device clock reply
// (0F 11 yy mm dd hh mm ss weekday 00 00 csum).
func ParseClockResponse(msg []byte) (time.Time, bool) {
	if len(msg) != clockResponseLen || msg[0] != headPushPrefix || msg[1] != headClock || !checksumOK(msg) {
		return time.Time{}, false
	}
	year := 2000 + int(msg[2])
	month := time.Month(msg[3])
	if month < time.January || month > time.December {
		return time.Time{}, false
	}
	return time.Date(year, month, int(msg[4]), int(msg[5]), int(msg[6]), int(msg[7]), 0, time.Local), true
}

// DeviceConfig is the addressable strip geometry reported by device-config
// replies.
type DeviceConfig struct {
	PixelsPerSegment uint16
	Segments         byte
	WiringOrder      byte
	ICType           byte
}

// ParseDeviceConfig decodes a strip-settings reply (head 0x63).
func ParseDeviceConfig(msg []byte) (DeviceConfig, bool) {
	if len(msg) != deviceConfigLen || msg[0] != headDeviceConfig || !checksumOK(msg) {
		return DeviceConfig{}, false
	}
	return DeviceConfig{
		PixelsPerSegment: uint16(msg[1])<<8 | uint16(msg[2]),
		Segments:         msg[3],
		WiringOrder:      msg[4],
		ICType:           msg[5],
	}, true
}

// PowerRestoreState describes what the device does when mains power
// returns.
type PowerRestoreState byte

const (
	PowerRestoreAlwaysOn  PowerRestoreState = 0xF0
	PowerRestoreAlwaysOff PowerRestoreState = 0x0F
	PowerRestoreLastState PowerRestoreState = 0xFF
)

// ParsePowerRestore decodes a power-restore reply (head 0x32).
func ParsePowerRestore(msg []byte) (PowerRestoreState, bool) {
	if len(msg) != powerRestoreLen || msg[0] != headPowerRestore || !checksumOK(msg) {
		return 0, false
	}
	return PowerRestoreState(msg[1]), true
}

// RemoteConfig is the 2.4GHz remote pairing mode reported by
// remote-config replies (head 0x2B).
type RemoteConfig byte

const (
	RemoteDisabled RemoteConfig = 0x01
	RemotePairable RemoteConfig = 0x02
	RemotePaired   RemoteConfig = 0x03
)

// ParseRemoteConfig decodes a remote-config reply.
func ParseRemoteConfig(msg []byte) (RemoteConfig, bool) {
	if len(msg) != remoteConfigLen || msg[0] != headRemoteConfig || !checksumOK(msg) {
		return 0, false
	}
	return RemoteConfig(msg[1]), true
}
