// Package mqtt executes the publishes, subscriptions and last will produced
// by the homie5 core over a paho MQTT connection.
//
// The core never performs I/O.  Devices and controllers hand the
// homie5.Publish, homie5.Subscription and homie5.Unsubscribe values they get
// from homie5.DeviceProtocol and homie5.ControllerProtocol to a Client:
//
//	proto, will := homie5.NewDeviceProtocol(id, homie5.DefaultDomain)
//	cfg.Will = &will
//	client, err := mqtt.Connect(cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	err = client.Publish(proto.PublishState(homie5.StatusInit))
//
// Subscriptions are tracked and restored after the connection is re-established.
// Handlers run on paho goroutines.  A handler panic is recovered and logged.
package mqtt
