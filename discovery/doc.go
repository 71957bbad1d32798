// Package discovery finds MQTT brokers announced over mDNS as _mqtt._tcp.
//
// It is used when no broker host is configured:
//
//	b := discovery.NewBrowser(discovery.Config{Timeout: 3 * time.Second})
//	broker, err := b.Find(ctx)
//	if err != nil {
//	    return err
//	}
//	cfg.Host, cfg.Port = broker.Host(), broker.Port
package discovery
