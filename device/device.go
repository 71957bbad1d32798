// Package device runs a Homie v5 device on top of an MQTT client.
//
// A Device holds the description and the current property values.  Run
// publishes the device following homie5.PublishSteps, dispatches incoming
// set commands to the registered handlers and, when the context ends,
// disconnects following homie5.DisconnectSteps.
//
// Set handlers are called in order: the global handler, the node handler and
// then the property handler.  The first handler that returns true consumes
// the command.  Handlers run on MQTT goroutines and may call SetValue.
package device

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/mqtt"
)

// Client is the transport a device publishes through.  *mqtt.Client
// implements it.
type Client interface {
	Publish(p homie5.Publish) error
	Subscribe(sub homie5.Subscription, handler mqtt.MessageHandler) error
	Unsubscribe(u homie5.Unsubscribe) error
}

// SetHandler is called with a validated value received on a property's set
// topic.  It returns true when it handled the command.
type SetHandler func(d *Device, prop homie5.PropertyRef, value homie5.Value) bool

// BroadcastHandler is called for every broadcast of the device's domain.
type BroadcastHandler func(d *Device, subtopic, data string)

const actionQueueSize = 64

// Device is a Homie v5 device.  Its methods are safe for concurrent use.
type Device struct {
	proto homie5.DeviceProtocol
	will  homie5.LastWill

	// root is set on child devices.  Children share the root's client and
	// run loop.
	root *Device

	mu       sync.RWMutex
	desc     homie5.DeviceDescription
	state    homie5.DeviceStatus
	values   map[homie5.PropertyPointer]homie5.Value
	targets  map[homie5.PropertyPointer]homie5.Value
	children map[homie5.HomieID]*Device
	order    []homie5.HomieID

	globalHandler    SetHandler
	nodeHandlers     map[homie5.HomieID]SetHandler
	propertyHandlers map[homie5.PropertyPointer]SetHandler
	broadcastHandler BroadcastHandler

	period time.Duration
	loop   func(d *Device)

	log *slog.Logger

	// run state, only used on root devices
	running   bool
	removed   bool
	done      chan struct{}
	actions   chan action
	reconnect chan struct{}
}

// New creates a root device.  The description's version is recomputed.
func New(id homie5.HomieID, domain homie5.HomieDomain, desc homie5.DeviceDescription) *Device {
	proto, will := homie5.NewDeviceProtocol(id, domain)
	return newDevice(proto, will, desc)
}

func newDevice(proto homie5.DeviceProtocol, will homie5.LastWill, desc homie5.DeviceDescription) *Device {
	desc = desc.Clone()
	desc.UpdateVersion()
	return &Device{
		proto:            proto,
		will:             will,
		desc:             desc,
		values:           make(map[homie5.PropertyPointer]homie5.Value),
		targets:          make(map[homie5.PropertyPointer]homie5.Value),
		children:         make(map[homie5.HomieID]*Device),
		nodeHandlers:     make(map[homie5.HomieID]SetHandler),
		propertyHandlers: make(map[homie5.PropertyPointer]SetHandler),
		log:              slog.New(slog.DiscardHandler),
	}
}

func (d *Device) ID() homie5.HomieID { return d.proto.ID() }

func (d *Device) Ref() homie5.DeviceRef { return d.proto.DeviceRef() }

func (d *Device) Protocol() homie5.DeviceProtocol { return d.proto }

// Will returns the last will the MQTT connection must register.
func (d *Device) Will() homie5.LastWill { return d.will }

// Description returns a copy of the current description.
func (d *Device) Description() homie5.DeviceDescription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.desc.Clone()
}

// State returns the last $state published.
func (d *Device) State() homie5.DeviceStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Value returns the current value of a property.
func (d *Device) Value(nodeID, propID homie5.HomieID) (homie5.Value, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.values[homie5.NewPropertyPointer(nodeID, propID)]
	return v, ok
}

// Target returns the current target of a property.
func (d *Device) Target(nodeID, propID homie5.HomieID) (homie5.Value, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.targets[homie5.NewPropertyPointer(nodeID, propID)]
	return v, ok
}

// PropertyRef returns the reference of a property of this device.
func (d *Device) PropertyRef(nodeID, propID homie5.HomieID) homie5.PropertyRef {
	ref := d.Ref()
	return homie5.NewPropertyRef(ref.Domain, ref.ID, nodeID, propID)
}

func (d *Device) SetLogger(log *slog.Logger) {
	d.mu.Lock()
	d.log = log.With("device", d.ID().String())
	d.mu.Unlock()
}

func (d *Device) logger() *slog.Logger {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.log
}

// SetGlobalHandler sets the first handler of the set chain.
func (d *Device) SetGlobalHandler(h SetHandler) {
	d.mu.Lock()
	d.globalHandler = h
	d.mu.Unlock()
}

func (d *Device) SetNodeHandler(nodeID homie5.HomieID, h SetHandler) {
	d.mu.Lock()
	d.nodeHandlers[nodeID] = h
	d.mu.Unlock()
}

func (d *Device) SetPropertyHandler(nodeID, propID homie5.HomieID, h SetHandler) {
	d.mu.Lock()
	d.propertyHandlers[homie5.NewPropertyPointer(nodeID, propID)] = h
	d.mu.Unlock()
}

// SetBroadcastHandler must be set before Run to subscribe to broadcasts.
func (d *Device) SetBroadcastHandler(h BroadcastHandler) {
	d.mu.Lock()
	d.broadcastHandler = h
	d.mu.Unlock()
}

// SetLoop registers fn to be called every period while the device runs.
func (d *Device) SetLoop(period time.Duration, fn func(d *Device)) {
	d.mu.Lock()
	d.period = period
	d.loop = fn
	d.mu.Unlock()
}

// Children returns the child devices in the order they were added.
func (d *Device) Children() []*Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Device, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.children[id])
	}
	return out
}

// Child looks up a child device.
func (d *Device) Child(id homie5.HomieID) (*Device, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.children[id]
	return c, ok
}

// NewChild creates a child device of d.  The child's description gets d as
// root, and as parent unless one is set.  The child is published right away
// when d is running.
func (d *Device) NewChild(id homie5.HomieID, desc homie5.DeviceDescription) (*Device, error) {
	if d.root != nil {
		return nil, ErrChildDevice
	}

	d.mu.RLock()
	_, exists := d.children[id]
	d.mu.RUnlock()
	if exists || id == d.ID() {
		return nil, ErrDuplicateChild
	}

	desc = desc.Clone()
	desc.Root = d.ID()
	if desc.Parent == "" {
		desc.Parent = d.ID()
	}
	child := newDevice(homie5.ForChild(id, d.proto), d.will, desc)
	child.root = d
	child.log = d.logger().With("child", id.String())

	add := func(c Client) error {
		d.mu.Lock()
		d.children[id] = child
		d.order = append(d.order, id)
		d.desc.AddChild(id)
		d.desc.UpdateVersion()
		d.mu.Unlock()
		if c == nil {
			return nil
		}
		if err := child.publishSequence(c); err != nil {
			return err
		}
		return d.publishDescription(c)
	}

	if err := d.doOrLocal(add); err != nil {
		return nil, err
	}
	return child, nil
}

// RemoveChild removes a child device and, when running, clears its retained
// topics from the broker.
func (d *Device) RemoveChild(id homie5.HomieID) error {
	d.mu.RLock()
	child, ok := d.children[id]
	d.mu.RUnlock()
	if !ok {
		return ErrUnknownChild
	}

	return d.doOrLocal(func(c Client) error {
		d.mu.Lock()
		delete(d.children, id)
		d.order = slices.DeleteFunc(d.order, func(x homie5.HomieID) bool { return x == id })
		d.desc.RemoveChild(id)
		d.desc.UpdateVersion()
		d.mu.Unlock()
		if c == nil {
			return nil
		}
		if err := child.removeSequence(c); err != nil {
			return err
		}
		return d.publishDescription(c)
	})
}

func (d *Device) snapshot() (homie5.DeviceDescription, map[homie5.PropertyPointer]homie5.Value, map[homie5.PropertyPointer]homie5.Value) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.desc.Clone(), maps.Clone(d.values), maps.Clone(d.targets)
}

func (d *Device) setState(s homie5.DeviceStatus) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}
