package device

import "context"

// Controller defines the interface for controlling LED devices. The
// abstraction keeps callers (CLI, automations) independent of the wire
// protocol underneath.
type Controller interface {
	// ListDevices returns all known devices
	ListDevices(ctx context.Context) ([]Device, error)

	// GetDevice returns a single device by ID
	GetDevice(ctx context.Context, id string) (*Device, error)

	// RenameDevice changes a device's friendly name
	RenameDevice(ctx context.Context, id, newName string) error

	// RemoveDevice forgets a device and closes its connection
	RemoveDevice(ctx context.Context, id string) error

	// GetDeviceState retrieves the current state of a device
	GetDeviceState(ctx context.Context, id string) (DeviceState, error)

	// SetDeviceState sets the state of a device
	SetDeviceState(ctx context.Context, id string, state map[string]any) (DeviceState, error)

	// PermitJoin enables pairing mode on protocols that have one
	PermitJoin(ctx context.Context, enable bool, duration int) error

	// IsConnected returns true if the controller is running
	IsConnected() bool

	// Close disconnects every device
	Close()
}

// EventSubscriber defines the interface for subscribing to device events
type EventSubscriber interface {
	// Subscribe returns a channel that receives discovery events
	Subscribe() chan DiscoveryEvent

	// Unsubscribe removes a subscription
	Unsubscribe(ch chan DiscoveryEvent)
}
