package device

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ledstack/ledwifi/pkg/capability"
	"github.com/ledstack/ledwifi/pkg/light"
)

// fakeLight is a minimal controller endpoint: ON, model 0x45, answers
// state queries and confirms power changes.
func fakeLight(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	stateResp := appendSum([]byte{0x81, 0x45, 0x23, 0x61, 0x21, 0x10, 0x67, 0xFF, 0x68, 0x00, 0x04, 0x00, 0xF0})
	powerRestore := appendSum([]byte{0x32, 0xF0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				buf := make([]byte, 64)
				for {
					n, err := conn.Read(buf)
					if err != nil {
						return
					}
					for i := 0; i < n; i++ {
						switch buf[i] {
						case 0x81:
							_, _ = conn.Write(stateResp)
						case 0x71:
							_, _ = conn.Write(appendSum([]byte{0x0F, 0x71, buf[i+1]}))
						case 0x32:
							_, _ = conn.Write(powerRestore)
						}
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func appendSum(msg []byte) []byte {
	var sum byte
	for _, b := range msg {
		sum += b
	}
	return append(msg, sum)
}

func fastTuning() light.Tuning {
	tun := light.DefaultTuning()
	tun.ConnectTimeout = time.Second
	tun.ResponseTimeout = 200 * time.Millisecond
	tun.DetectTimeout = 100 * time.Millisecond
	tun.DeviceLatency = 0
	return tun
}

func testController(t *testing.T) (*WifiController, *Device) {
	table, err := capability.Load()
	if err != nil {
		t.Fatalf("load capability table: %v", err)
	}
	c := NewWifiController(table, fastTuning())
	t.Cleanup(c.Close)

	dev, err := c.AddDevice(context.Background(), fakeLight(t), "lamp-1", "desk lamp")
	if err != nil {
		t.Fatalf("add device: %v", err)
	}
	return c, dev
}

func TestAddDevice(t *testing.T) {
	c, dev := testController(t)

	if dev.ID != "lamp-1" || dev.Name != "desk lamp" {
		t.Errorf("device identity wrong: %+v", dev)
	}
	if dev.Protocol != ProtocolWiFi || dev.Type != DeviceTypeLight {
		t.Errorf("device classification wrong: %+v", dev)
	}
	if dev.Dialect != "standard_8" || dev.ModelCode != 0x45 {
		t.Errorf("detection results wrong: %+v", dev)
	}
	if len(dev.StateSchema) == 0 {
		t.Error("device has no state schema")
	}

	devices, err := c.ListDevices(context.Background())
	if err != nil || len(devices) != 1 {
		t.Fatalf("ListDevices = %v, %v", devices, err)
	}
}

func TestGetDeviceState(t *testing.T) {
	c, dev := testController(t)

	state, err := c.GetDeviceState(context.Background(), dev.ID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state["state"] != "ON" {
		t.Errorf("state = %v, want ON", state["state"])
	}
	if state["mode"] != "color" {
		t.Errorf("mode = %v, want color", state["mode"])
	}
	col, ok := state["color"].(map[string]any)
	if !ok || col["r"] != byte(0x67) {
		t.Errorf("color = %v", state["color"])
	}
}

func TestSetDeviceStateValidation(t *testing.T) {
	c, dev := testController(t)

	_, err := c.SetDeviceState(context.Background(), dev.ID, map[string]any{"bogus": float64(1)})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	_, err = c.SetDeviceState(context.Background(), dev.ID, map[string]any{"state": "maybe"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestSetDeviceState(t *testing.T) {
	c, dev := testController(t)

	state, err := c.SetDeviceState(context.Background(), dev.ID, map[string]any{
		"state": "ON",
		"color": map[string]any{"r": float64(10), "g": float64(20), "b": float64(30)},
	})
	if err != nil {
		t.Fatalf("set state: %v", err)
	}
	if state["state"] != "ON" {
		t.Errorf("state = %v, want ON", state["state"])
	}
	col := state["color"].(map[string]any)
	if col["r"] != byte(10) || col["g"] != byte(20) || col["b"] != byte(30) {
		t.Errorf("color after set = %v", col)
	}
}

func TestUnknownDevice(t *testing.T) {
	c, _ := testController(t)

	if _, err := c.GetDevice(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDevice err = %v, want ErrNotFound", err)
	}
	if _, err := c.GetDeviceState(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDeviceState err = %v, want ErrNotFound", err)
	}
	if err := c.RemoveDevice(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveDevice err = %v, want ErrNotFound", err)
	}
}

func TestRemoveDevicePublishesEvent(t *testing.T) {
	c, dev := testController(t)

	events := c.Subscribe()
	defer c.Unsubscribe(events)

	if err := c.RemoveDevice(context.Background(), dev.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	select {
	case evt := <-events:
		if evt.Type != EventDeviceLeft || evt.Device.ID != dev.ID {
			t.Errorf("event = %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("no device_left event")
	}

	if _, err := c.GetDevice(context.Background(), dev.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("device still present after remove: %v", err)
	}
}

func TestRenameDevice(t *testing.T) {
	c, dev := testController(t)

	if err := c.RenameDevice(context.Background(), dev.ID, "porch"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	got, err := c.GetDevice(context.Background(), dev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "porch" {
		t.Errorf("name = %q, want porch", got.Name)
	}
}

func TestPermitJoinUnsupported(t *testing.T) {
	c, _ := testController(t)
	if err := c.PermitJoin(context.Background(), true, 60); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestClosedController(t *testing.T) {
	c, dev := testController(t)
	c.Close()

	if c.IsConnected() {
		t.Error("IsConnected after Close")
	}
	if _, err := c.GetDeviceState(context.Background(), dev.ID); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
	if _, err := c.AddDevice(context.Background(), "127.0.0.1:1", "x", ""); !errors.Is(err, ErrNotConnected) {
		t.Errorf("AddDevice err = %v, want ErrNotConnected", err)
	}
}
