package miraieac

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Publisher sends control messages to the cloud broker.
// *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// controlQoS is the QoS used for control messages.
const controlQoS = 0

// Details is static device metadata from the device management API.
type Details struct {
	Brand           string
	ModelName       string
	ModelNumber     string
	FirmwareVersion string
	MacAddress      string
	Category        string
}

// CallbackID identifies a registered state callback.
type CallbackID uint64

// Device is one MirAIe air conditioner.
//
// Status is updated from broker messages; every update invokes the
// registered callbacks on the broker's delivery goroutine.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Device struct {
	id           string
	name         string
	friendlyName string
	spaceName    string
	topic        string
	details      Details

	publisher func() Publisher

	mu     sync.RWMutex
	status Status

	cbMu         sync.Mutex
	callbacks    map[CallbackID]func()
	nextCallback CallbackID

	now func() time.Time
}

func newDevice(id, name, spaceName, topic string, details Details, publisher func() Publisher) *Device {
	friendly := name
	if friendly == "" {
		friendly = spaceName
	}
	return &Device{
		id:           id,
		name:         name,
		friendlyName: friendly,
		spaceName:    spaceName,
		topic:        topic,
		details:      details,
		publisher:    publisher,
		status:       defaultStatus(),
		callbacks:    make(map[CallbackID]func()),
		now:          time.Now,
	}
}

// ID returns the cloud device ID.
func (d *Device) ID() string { return d.id }

// Name returns the device name set in the MirAIe app.
func (d *Device) Name() string { return d.name }

// FriendlyName returns the name to show users. It falls back to the room
// name when the device itself is unnamed.
func (d *Device) FriendlyName() string { return d.friendlyName }

// SpaceName returns the room the device is assigned to.
func (d *Device) SpaceName() string { return d.spaceName }

// Topic returns the device's MQTT topic root.
func (d *Device) Topic() string { return d.topic }

// Details returns static device metadata.
func (d *Device) Details() Details { return d.details }

// Status returns a copy of the latest known status.
func (d *Device) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// RegisterCallback adds fn to the functions called after every status update.
func (d *Device) RegisterCallback(fn func()) CallbackID {
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	d.nextCallback++
	d.callbacks[d.nextCallback] = fn
	return d.nextCallback
}

// RemoveCallback unregisters a callback. Unknown IDs are ignored.
func (d *Device) RemoveCallback(id CallbackID) {
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	delete(d.callbacks, id)
}

// callbackCount is used by tests.
func (d *Device) callbackCount() int {
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	return len(d.callbacks)
}

// applyStatus merges a status payload and notifies callbacks if anything changed.
func (d *Device) applyStatus(payload []byte) error {
	d.mu.Lock()
	changed, err := d.status.Merge(payload, d.now())
	d.mu.Unlock()

	if changed {
		d.notify()
	}
	return err
}

func (d *Device) notify() {
	d.cbMu.Lock()
	fns := make([]func(), 0, len(d.callbacks))
	for _, fn := range d.callbacks {
		fns = append(fns, fn)
	}
	d.cbMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// =============================================================================
// Commands
// =============================================================================

// TurnOn powers the unit on.
func (d *Device) TurnOn(ctx context.Context) error {
	return d.send(ctx, powerFields(PowerOn))
}

// TurnOff powers the unit off.
func (d *Device) TurnOff(ctx context.Context) error {
	return d.send(ctx, powerFields(PowerOff))
}

// SetTemperature sets the target temperature in °C.
func (d *Device) SetTemperature(ctx context.Context, temperature float64) error {
	return d.send(ctx, temperatureFields(temperature))
}

// SetHVACMode sets the operating mode.
func (d *Device) SetHVACMode(ctx context.Context, mode HVACMode) error {
	if _, err := ParseHVACMode(string(mode)); err != nil {
		return err
	}
	return d.send(ctx, hvacFields(mode))
}

// SetFanMode sets the fan speed.
func (d *Device) SetFanMode(ctx context.Context, mode FanMode) error {
	if _, err := ParseFanMode(string(mode)); err != nil {
		return err
	}
	return d.send(ctx, fanFields(mode))
}

// SetSwingMode sets the vane position.
func (d *Device) SetSwingMode(ctx context.Context, mode SwingMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: swing mode %d", ErrInvalidValue, int(mode))
	}
	return d.send(ctx, swingFields(mode))
}

// SetPresetMode sets the energy preset.
func (d *Device) SetPresetMode(ctx context.Context, mode PresetMode) error {
	if _, err := ParsePresetMode(string(mode)); err != nil {
		return err
	}
	return d.send(ctx, presetFields(mode))
}

// SetDisplayMode turns the indoor unit display on or off.
func (d *Device) SetDisplayMode(ctx context.Context, mode DisplayMode) error {
	if _, err := ParseDisplayMode(string(mode)); err != nil {
		return err
	}
	return d.send(ctx, displayFields(mode))
}

// send publishes a control message to <topic>/control.
func (d *Device) send(ctx context.Context, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var pub Publisher
	if d.publisher != nil {
		pub = d.publisher()
	}
	if pub == nil {
		return ErrNotConnected
	}

	payload, err := controlPayload(fields)
	if err != nil {
		return err
	}
	if err := pub.Publish(d.topic+"/control", payload, controlQoS, false); err != nil {
		return fmt.Errorf("sending command to %s: %w", d.id, err)
	}
	return nil
}
