// Package controller discovers Homie devices and mirrors their state.
//
// Discovery runs in three phases.  The controller subscribes to every
// $state in its domain; the first state of a device subscribes to its
// $description, $log and $alert topics; a description subscribes to the
// value and $target topics of its properties.  A new description replaces
// the property subscriptions of the previous one and an empty $state
// removes the device again.
package controller

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/schaze/homie5"
	"github.com/schaze/homie5/ext/meta"
	"github.com/schaze/homie5/mqtt"
)

// Client is the transport the controller publishes and subscribes with.
// *mqtt.Client satisfies it.
type Client interface {
	Publish(p homie5.Publish) error
	Subscribe(s homie5.Subscription, handler mqtt.MessageHandler) error
	Unsubscribe(u homie5.Unsubscribe) error
}

type Controller struct {
	client Client
	domain homie5.HomieDomain
	proto  homie5.ControllerProtocol

	mu       sync.RWMutex
	devices  map[homie5.DeviceRef]*Device
	onEvent  func(Event)
	withMeta bool
	started  bool
	log      *slog.Logger
}

// effects are the transport calls and events resulting from a message.
// They are carried out after the lock is released.
type effects struct {
	unsubs []homie5.Unsubscribe
	subs   []homie5.Subscription
	events []Event
}

func New(client Client, domain homie5.HomieDomain) *Controller {
	return &Controller{
		client:  client,
		domain:  domain,
		proto:   homie5.NewControllerProtocol(),
		devices: make(map[homie5.DeviceRef]*Device),
		log:     slog.New(slog.DiscardHandler),
	}
}

func (c *Controller) Domain() homie5.HomieDomain { return c.domain }

func (c *Controller) SetLogger(log *slog.Logger) {
	c.mu.Lock()
	c.log = log.With("domain", c.domain.String())
	c.mu.Unlock()
}

// OnEvent registers the function called after every store update.  It runs
// on the goroutine that delivered the message.
func (c *Controller) OnEvent(fn func(Event)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// EnableMeta follows the $meta and $tags topics of discovered devices.
// Call it before Start.
func (c *Controller) EnableMeta() {
	c.mu.Lock()
	c.withMeta = true
	c.mu.Unlock()
}

func (c *Controller) logger() *slog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

// Start subscribes to device discovery and broadcasts.
func (c *Controller) Start() error {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	return c.subscribeDiscovery()
}

func (c *Controller) subscribeDiscovery() error {
	subs := append(c.proto.DiscoverDevices(c.domain), c.proto.SubscribeBroadcast(c.domain)...)
	var errs []error
	for _, s := range subs {
		if err := c.client.Subscribe(s, c.Handle); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop drops every subscription and forgets all devices.
func (c *Controller) Stop() error {
	c.mu.Lock()
	var unsubs []homie5.Unsubscribe
	for _, dev := range c.devices {
		unsubs = append(unsubs, c.deviceUnsubscriptions(dev)...)
	}
	clear(c.devices)
	c.started = false
	c.mu.Unlock()

	for _, s := range append(c.proto.DiscoverDevices(c.domain), c.proto.SubscribeBroadcast(c.domain)...) {
		unsubs = append(unsubs, homie5.Unsubscribe{Topic: s.Topic})
	}
	var errs []error
	for _, u := range unsubs {
		if err := c.client.Unsubscribe(u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reconnected starts discovery over after the transport reconnected.  The
// known devices are dropped and rediscovered from the retained messages.
func (c *Controller) Reconnected() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	clear(c.devices)
	c.mu.Unlock()

	if err := c.subscribeDiscovery(); err != nil {
		c.logger().Error("restarting discovery failed", "error", err)
	}
}

// Handle decodes a received publish and applies it.  It is the handler for
// all subscriptions made by the controller.
func (c *Controller) Handle(topic string, payload []byte) error {
	c.mu.RLock()
	withMeta := c.withMeta
	c.mu.RUnlock()

	if withMeta && meta.IsMetaTopic(topic) {
		msg, err := meta.ParseMessage(topic, payload)
		if err != nil {
			return err
		}
		return c.ApplyMeta(msg)
	}

	msg, err := homie5.ParseMessage(topic, payload)
	if err != nil {
		return err
	}
	return c.Apply(msg)
}

// Apply updates the store with a decoded message and adjusts the
// subscriptions.
func (c *Controller) Apply(msg homie5.Message) error {
	var fx effects
	c.mu.Lock()
	err := c.apply(msg, &fx)
	c.mu.Unlock()
	return errors.Join(err, c.run(fx))
}

func (c *Controller) apply(msg homie5.Message, fx *effects) error {
	switch m := msg.(type) {
	case homie5.DeviceStateMessage:
		dev, ok := c.devices[m.Device]
		if !ok {
			dev = newDevice(m.Device, m.State)
			c.devices[m.Device] = dev
			fx.subs = append(fx.subs, c.proto.SubscribeDevice(m.Device)...)
			if c.withMeta {
				fx.subs = append(fx.subs, meta.ControllerProtocol{}.SubscribeForDevice(m.Device)...)
			}
			c.log.Info("device discovered", "device", m.Device.ID.String(), "state", m.State.String())
			fx.events = append(fx.events, Event{Kind: DeviceDiscovered, Device: m.Device, Message: m})
			return nil
		}
		if dev.State != m.State {
			dev.State = m.State
			fx.events = append(fx.events, Event{Kind: DeviceStateChanged, Device: m.Device, Message: m})
		}

	case homie5.DeviceDescriptionMessage:
		dev, ok := c.devices[m.Device]
		if !ok {
			return nil
		}
		if dev.Description != nil {
			fx.unsubs = append(fx.unsubs, c.proto.UnsubscribeProps(m.Device, *dev.Description)...)
		}
		desc := m.Description
		dev.Description = &desc
		dev.pruneProperties()
		fx.subs = append(fx.subs, c.proto.SubscribeProps(m.Device, desc)...)
		c.log.Debug("description updated", "device", m.Device.ID.String(), "version", desc.Version)
		fx.events = append(fx.events, Event{Kind: DescriptionUpdated, Device: m.Device, Message: m})

	case homie5.PropertyValueMessage:
		return c.applyProperty(m.Property, m.Value, false, m, fx)

	case homie5.PropertyTargetMessage:
		return c.applyProperty(m.Property, m.Target, true, m, fx)

	case homie5.DeviceLogMessage:
		fx.events = append(fx.events, Event{Kind: DeviceLogReceived, Device: m.Device, Message: m})

	case homie5.DeviceAlertMessage:
		dev, ok := c.devices[m.Device]
		if !ok {
			return nil
		}
		if m.Text == "" {
			delete(dev.Alerts, m.AlertID)
		} else {
			dev.Alerts[m.AlertID] = m.Text
		}
		fx.events = append(fx.events, Event{Kind: DeviceAlertChanged, Device: m.Device, Message: m})

	case homie5.BroadcastMessage:
		fx.events = append(fx.events, Event{Kind: BroadcastReceived, Message: m})

	case homie5.DeviceRemovalMessage:
		dev, ok := c.devices[m.Device]
		if !ok {
			return nil
		}
		fx.unsubs = append(fx.unsubs, c.deviceUnsubscriptions(dev)...)
		delete(c.devices, m.Device)
		c.log.Info("device removed", "device", m.Device.ID.String())
		fx.events = append(fx.events, Event{Kind: DeviceRemoved, Device: m.Device, Message: m})
	}
	return nil
}

func (c *Controller) applyProperty(prop homie5.PropertyRef, raw string, target bool, msg homie5.Message, fx *effects) error {
	dev, ok := c.devices[prop.Device]
	if !ok {
		return nil
	}
	v, desc, err := dev.parseValue(prop.Pointer, raw)
	if errors.Is(err, errNoDescription) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", prop, err)
	}

	kind := PropertyValueChanged
	if target {
		kind = PropertyTargetChanged
	}
	if desc.Retained {
		if target {
			dev.Properties.Store(prop.Pointer, nil, v)
		} else {
			dev.Properties.Store(prop.Pointer, v, nil)
		}
	}
	fx.events = append(fx.events, Event{Kind: kind, Device: prop.Device, Property: prop, Value: v, Message: msg})
	return nil
}

// ApplyMeta stores $meta and $tags data of a known device.
func (c *Controller) ApplyMeta(msg meta.Message) error {
	var fx effects
	c.mu.Lock()
	ref := msg.Ref()
	if dev, ok := c.devices[ref.DeviceRef()]; ok {
		key := ref.ToTopic()
		switch m := msg.(type) {
		case meta.DeviceMeta:
			setMeta(dev.Meta, key, m.Meta)
		case meta.NodeMeta:
			setMeta(dev.Meta, key, m.Meta)
		case meta.PropertyMeta:
			setMeta(dev.Meta, key, m.Meta)
		case meta.DeviceTags:
			setTags(dev.Tags, key, m.Tags)
		case meta.NodeTags:
			setTags(dev.Tags, key, m.Tags)
		case meta.PropertyTags:
			setTags(dev.Tags, key, m.Tags)
		}
		fx.events = append(fx.events, Event{Kind: MetaUpdated, Device: ref.DeviceRef(), Message: msg})
	}
	c.mu.Unlock()
	return c.run(fx)
}

// nil data means the attribute was cleared on the broker.
func setMeta(all map[string]map[string]string, key string, m map[string]string) {
	if m == nil {
		delete(all, key)
		return
	}
	all[key] = m
}

func setTags(all map[string][]string, key string, tags []string) {
	if tags == nil {
		delete(all, key)
		return
	}
	all[key] = tags
}

func (c *Controller) deviceUnsubscriptions(dev *Device) []homie5.Unsubscribe {
	unsubs := c.proto.UnsubscribeDevice(dev.Ref)
	if dev.Description != nil {
		unsubs = append(unsubs, c.proto.UnsubscribeProps(dev.Ref, *dev.Description)...)
	}
	if c.withMeta {
		for _, s := range (meta.ControllerProtocol{}).SubscribeForDevice(dev.Ref) {
			unsubs = append(unsubs, homie5.Unsubscribe{Topic: s.Topic})
		}
	}
	return unsubs
}

func (c *Controller) run(fx effects) error {
	var errs []error
	for _, u := range fx.unsubs {
		if err := c.client.Unsubscribe(u); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range fx.subs {
		if err := c.client.Subscribe(s, c.Handle); err != nil {
			errs = append(errs, err)
		}
	}

	c.mu.RLock()
	onEvent := c.onEvent
	c.mu.RUnlock()
	if onEvent != nil {
		for _, ev := range fx.events {
			onEvent(ev)
		}
	}
	return errors.Join(errs...)
}

// Devices returns copies of all known devices ordered by topic.
func (c *Controller) Devices() []Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	refs := slices.SortedFunc(maps.Keys(c.devices), func(a, b homie5.DeviceRef) int {
		return cmp.Compare(a.ToTopic(), b.ToTopic())
	})
	out := make([]Device, 0, len(refs))
	for _, ref := range refs {
		out = append(out, c.devices[ref].Clone())
	}
	return out
}

func (c *Controller) Device(ref homie5.DeviceRef) (Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dev, ok := c.devices[ref]
	if !ok {
		return Device{}, false
	}
	return dev.Clone(), true
}

// State returns the stored value and target of a retained property.
func (c *Controller) State(prop homie5.PropertyRef) (PropertyState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dev, ok := c.devices[prop.Device]
	if !ok {
		return PropertyState{}, false
	}
	return dev.Properties.State(prop.Pointer)
}

// checkSet validates a set command against the description, when one is
// known.
func (c *Controller) checkSet(prop homie5.PropertyRef) (homie5.PropertyDescription, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dev, ok := c.devices[prop.Device]
	if !ok || dev.Description == nil {
		return homie5.PropertyDescription{}, false, nil
	}
	desc, found := dev.Description.GetProperty(prop.Pointer)
	if !found {
		return desc, false, fmt.Errorf("%w: %s", homie5.ErrPropertyNotFound, prop)
	}
	if !desc.Settable {
		return desc, false, fmt.Errorf("%w: %s", ErrNotSettable, prop)
	}
	return desc, true, nil
}

// Set publishes a set command.  For a device with a known description the
// property must exist, be settable and accept the value.
func (c *Controller) Set(prop homie5.PropertyRef, v homie5.Value) error {
	if v == nil {
		return fmt.Errorf("%w: no value for %s", homie5.ErrInvalidHomieValue, prop)
	}
	desc, known, err := c.checkSet(prop)
	if err != nil {
		return err
	}
	if known && !homie5.ValidateValue(v, desc) {
		return fmt.Errorf("%w: %q for %s", homie5.ErrInvalidHomieValue, v.String(), prop)
	}
	return c.client.Publish(c.proto.SetCommand(prop, v))
}

// SetString publishes a raw set command, parsing it first when the
// description is known.
func (c *Controller) SetString(prop homie5.PropertyRef, raw string) error {
	desc, known, err := c.checkSet(prop)
	if err != nil {
		return err
	}
	if !known {
		return c.client.Publish(c.proto.SetCommandString(prop, raw))
	}
	v, err := homie5.ParseValue(raw, desc)
	if err != nil {
		return err
	}
	return c.client.Publish(c.proto.SetCommand(prop, v))
}

// Broadcast sends data to $broadcast/subtopic of the controller's domain.
func (c *Controller) Broadcast(subtopic, data string) error {
	if c.domain.IsAll() {
		return ErrWildcardDomain
	}
	return c.client.Publish(c.proto.SendBroadcast(c.domain, subtopic, data))
}

// RemoveDevice clears the retained topics of a known device on its behalf.
// The removal comes back as an empty $state and drops the device from the
// store.
func (c *Controller) RemoveDevice(ref homie5.DeviceRef) error {
	c.mu.RLock()
	dev, ok := c.devices[ref]
	var desc homie5.DeviceDescription
	if ok && dev.Description != nil {
		desc = dev.Description.Clone()
	}
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, ref)
	}

	proto, _ := homie5.NewDeviceProtocol(ref.ID, ref.Domain)
	if desc.Root != "" {
		root, _ := homie5.NewDeviceProtocol(desc.Root, ref.Domain)
		proto = homie5.ForChild(ref.ID, root)
	}
	pubs, err := proto.RemoveDevice(desc)
	if err != nil {
		return err
	}
	for _, p := range pubs {
		if err := c.client.Publish(p); err != nil {
			return err
		}
	}
	return nil
}
