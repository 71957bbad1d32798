package device

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/schaze/homie5"
)

// action is work executed on the run loop with the device's client.  It
// keeps publishes from handlers and the application in a single order.
type action struct {
	fn     func(c Client) error
	result chan error
}

func (d *Device) owner() *Device {
	if d.root != nil {
		return d.root
	}
	return d
}

// do runs fn on the owner's run loop and waits for it.
func (d *Device) do(fn func(c Client) error) error {
	o := d.owner()
	o.mu.RLock()
	if !o.running {
		o.mu.RUnlock()
		return ErrNotRunning
	}
	actions, done := o.actions, o.done
	o.mu.RUnlock()

	a := action{fn: fn, result: make(chan error, 1)}
	select {
	case actions <- a:
	case <-done:
		return ErrNotRunning
	}
	select {
	case err := <-a.result:
		return err
	case <-done:
		select {
		case err := <-a.result:
			return err
		default:
			return ErrNotRunning
		}
	}
}

// doOrLocal runs fn on the run loop, or directly with a nil client while the
// device is not running.
func (d *Device) doOrLocal(fn func(c Client) error) error {
	err := d.do(fn)
	if errors.Is(err, ErrNotRunning) {
		return fn(nil)
	}
	return err
}

// post queues fn without waiting.  It reports false when the device is not
// running or the queue is full.
func (d *Device) post(fn func(c Client) error) bool {
	o := d.owner()
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.running {
		return false
	}
	select {
	case o.actions <- action{fn: fn, result: make(chan error, 1)}:
		return true
	default:
		return false
	}
}

// Run is RunWithContext without cancellation.
func (d *Device) Run(c Client) error {
	return d.RunWithContext(context.Background(), c)
}

// RunWithContext publishes the device and its children, then serves set
// commands until ctx is done.  On return the device has published
// $state "disconnected" and dropped its subscriptions, unless it was removed.
func (d *Device) RunWithContext(ctx context.Context, c Client) error {
	if d.root != nil {
		return ErrChildDevice
	}

	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.removed = false
	d.done = make(chan struct{})
	d.actions = make(chan action, actionQueueSize)
	d.reconnect = make(chan struct{}, 1)
	done, actions, reconnect := d.done, d.actions, d.reconnect
	period, loop := d.period, d.loop
	log := d.log
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		close(d.done)
		d.mu.Unlock()
	}()

	if err := d.subscribeBroadcast(c); err != nil {
		return fmt.Errorf("subscribing to broadcasts: %w", err)
	}
	if err := d.publishAll(c); err != nil {
		return fmt.Errorf("publishing device: %w", err)
	}
	log.Info("device ready", "children", len(d.Children()))

	if loop != nil && period > 0 {
		go d.runLoop(period, loop, done)
	}

	for {
		select {
		case <-ctx.Done():
			return d.shutdown(c)
		case a := <-actions:
			a.result <- a.fn(c)
			if d.isRemoved() {
				log.Info("device removed")
				return nil
			}
		case <-reconnect:
			log.Info("republishing after reconnect")
			if err := d.publishAll(c); err != nil {
				log.Warn("republish failed", "error", err)
			}
		}
	}
}

func (d *Device) runLoop(period time.Duration, loop func(d *Device), done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			loop(d)
		}
	}
}

// Reconnected republishes the device.  Wire it to the client's connect
// callback so a broker restart does not leave the device lost.
func (d *Device) Reconnected() {
	o := d.owner()
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.running {
		return
	}
	select {
	case o.reconnect <- struct{}{}:
	default:
	}
}

func (d *Device) isRemoved() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.removed
}

func (d *Device) shutdown(c Client) error {
	var errs []error
	children := d.Children()
	for _, child := range slices.Backward(children) {
		if err := child.disconnectSequence(c); err != nil {
			errs = append(errs, fmt.Errorf("child %s: %w", child.ID(), err))
		}
	}
	if err := d.disconnectSequence(c); err != nil {
		errs = append(errs, err)
	}
	if err := d.unsubscribeBroadcast(c); err != nil {
		errs = append(errs, err)
	}
	d.logger().Info("device disconnected")
	return errors.Join(errs...)
}

// Remove clears every retained topic of the device and its children from
// the broker and stops Run.  A removed device must not be run again with
// the same description.
func (d *Device) Remove() error {
	if d.root != nil {
		return d.root.RemoveChild(d.ID())
	}
	return d.do(func(c Client) error {
		var errs []error
		for _, child := range slices.Backward(d.Children()) {
			if err := child.removeSequence(c); err != nil {
				errs = append(errs, err)
			}
		}
		if err := d.removeSequence(c); err != nil {
			errs = append(errs, err)
		}
		_ = d.unsubscribeBroadcast(c)
		d.mu.Lock()
		d.removed = true
		d.mu.Unlock()
		return errors.Join(errs...)
	})
}

func (d *Device) publishAll(c Client) error {
	if err := d.publishSequence(c); err != nil {
		return err
	}
	for _, child := range d.Children() {
		if err := child.publishSequence(c); err != nil {
			return fmt.Errorf("child %s: %w", child.ID(), err)
		}
	}
	return nil
}

// publishSequence announces a single device.
func (d *Device) publishSequence(c Client) error {
	desc, values, targets := d.snapshot()
	for _, step := range homie5.PublishSteps() {
		var err error
		switch step {
		case homie5.PublishStepStateInit:
			err = d.publishState(c, homie5.StatusInit)
		case homie5.PublishStepDescription:
			err = d.publishDescription(c)
		case homie5.PublishStepPropertyValues:
			err = d.publishValues(c, desc, values, targets)
		case homie5.PublishStepSubscribeProperties:
			err = d.subscribeProps(c, desc)
		case homie5.PublishStepStateReady:
			err = d.publishState(c, homie5.StatusReady)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}
	}
	return nil
}

// Reconfigure replaces the description.  A running device goes through
// homie5.ReconfigureSteps so controllers pick up the new layout.  Values of
// properties that no longer exist are dropped.
func (d *Device) Reconfigure(desc homie5.DeviceDescription) error {
	next := desc.Clone()
	d.mu.RLock()
	next.Children = slices.Clone(d.desc.Children)
	if d.root != nil {
		next.Root = d.root.ID()
		if next.Parent == "" {
			next.Parent = d.root.ID()
		}
	}
	d.mu.RUnlock()
	next.UpdateVersion()

	return d.doOrLocal(func(c Client) error {
		if c == nil {
			d.applyDescription(next)
			return nil
		}
		old := d.Description()
		for _, step := range homie5.ReconfigureSteps() {
			var err error
			switch step {
			case homie5.ReconfigureStepStateInit:
				err = d.publishState(c, homie5.StatusInit)
			case homie5.ReconfigureStepUnsubscribeProperties:
				err = d.unsubscribeProps(c, old)
			case homie5.ReconfigureStepReconfigure:
				d.applyDescription(next)
			case homie5.ReconfigureStepDescription:
				err = d.publishDescription(c)
			case homie5.ReconfigureStepPropertyValues:
				desc, values, targets := d.snapshot()
				err = d.publishValues(c, desc, values, targets)
			case homie5.ReconfigureStepSubscribeProperties:
				err = d.subscribeProps(c, next)
			case homie5.ReconfigureStepStateReady:
				err = d.publishState(c, homie5.StatusReady)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", step, err)
			}
		}
		return nil
	})
}

func (d *Device) applyDescription(desc homie5.DeviceDescription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.desc = desc
	for ptr := range d.values {
		if _, ok := desc.GetProperty(ptr); !ok {
			delete(d.values, ptr)
		}
	}
	for ptr := range d.targets {
		if _, ok := desc.GetProperty(ptr); !ok {
			delete(d.targets, ptr)
		}
	}
}

func (d *Device) disconnectSequence(c Client) error {
	desc := d.Description()
	for _, step := range homie5.DisconnectSteps() {
		var err error
		switch step {
		case homie5.DisconnectStepStateDisconnect:
			err = d.publishState(c, homie5.StatusDisconnected)
		case homie5.DisconnectStepUnsubscribeProperties:
			err = d.unsubscribeProps(c, desc)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}
	}
	return nil
}

func (d *Device) removeSequence(c Client) error {
	desc := d.Description()
	if err := d.unsubscribeProps(c, desc); err != nil {
		return err
	}
	publishes, err := d.proto.RemoveDevice(desc)
	if err != nil {
		return err
	}
	for _, p := range publishes {
		if err := c.Publish(p); err != nil {
			return err
		}
	}
	d.setState("")
	return nil
}

func (d *Device) publishState(c Client, s homie5.DeviceStatus) error {
	if err := c.Publish(d.proto.PublishState(s)); err != nil {
		return err
	}
	d.setState(s)
	return nil
}

func (d *Device) publishDescription(c Client) error {
	p, err := d.proto.PublishDescription(d.Description())
	if err != nil {
		return err
	}
	return c.Publish(p)
}

// publishValues publishes the value and target of every retained property
// that has one.  Non-retained properties carry events, not state.
func (d *Device) publishValues(c Client, desc homie5.DeviceDescription, values, targets map[homie5.PropertyPointer]homie5.Value) error {
	for e := range desc.Iter() {
		if !e.Prop.Retained {
			continue
		}
		ptr := e.Pointer()
		if v, ok := values[ptr]; ok {
			if err := c.Publish(d.proto.PublishValue(e.NodeID, e.PropID, v.String(), true)); err != nil {
				return err
			}
		}
		if t, ok := targets[ptr]; ok {
			if err := c.Publish(d.proto.PublishTarget(e.NodeID, e.PropID, t.String(), true)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Device) subscribeProps(c Client, desc homie5.DeviceDescription) error {
	subs, err := d.proto.SubscribeProps(desc)
	if err != nil {
		return err
	}
	for _, s := range subs {
		if err := c.Subscribe(s, d.handleSet); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) unsubscribeProps(c Client, desc homie5.DeviceDescription) error {
	unsubs, err := d.proto.UnsubscribeProps(desc)
	if err != nil {
		return err
	}
	var errs []error
	for _, u := range unsubs {
		if err := c.Unsubscribe(u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Device) subscribeBroadcast(c Client) error {
	d.mu.RLock()
	h := d.broadcastHandler
	d.mu.RUnlock()
	if h == nil {
		return nil
	}
	for _, s := range homie5.NewControllerProtocol().SubscribeBroadcast(d.proto.Domain()) {
		if err := c.Subscribe(s, d.handleBroadcast); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) unsubscribeBroadcast(c Client) error {
	d.mu.RLock()
	h := d.broadcastHandler
	d.mu.RUnlock()
	if h == nil {
		return nil
	}
	var errs []error
	for _, u := range homie5.NewControllerProtocol().UnsubscribeBroadcast(d.proto.Domain()) {
		if err := c.Unsubscribe(u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
