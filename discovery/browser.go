package discovery

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/enbility/zeroconf/v3"
)

const (
	ServiceType = "_mqtt._tcp"
	Domain      = "local."

	DefaultTimeout = 3 * time.Second
)

var ErrNotFound = errors.New("discovery: no mqtt broker found")

// Broker is an announced MQTT broker.  Addresses from several interfaces
// are merged into one entry.
type Broker struct {
	Instance  string
	HostName  string
	Port      int
	Addresses []string
	Text      []string
}

// Host returns the first address, or the announced host name without its
// trailing dot when no address is known.
func (b Broker) Host() string {
	if len(b.Addresses) > 0 {
		return b.Addresses[0]
	}
	return strings.TrimSuffix(b.HostName, ".")
}

// Address returns host:port.
func (b Broker) Address() string {
	return net.JoinHostPort(b.Host(), itoa(b.Port))
}

type Config struct {
	// Interface limits browsing to one network interface.  Empty means all.
	Interface string

	// Timeout bounds Find.  Zero means DefaultTimeout.
	Timeout time.Duration
}

type Browser struct {
	config Config
}

func NewBrowser(config Config) *Browser {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Browser{config: config}
}

// Browse streams brokers as they are announced.  The channel is closed when
// ctx is done.
func (b *Browser) Browse(ctx context.Context) (<-chan Broker, error) {
	out := make(chan Broker)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	opts := b.browserOptions()

	go func() {
		defer close(out)
		brokers := make(map[string]*Broker)
		var gone <-chan *zeroconf.ServiceEntry = removed

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				br := fromZeroconf(entry).broker()
				if existing, found := brokers[br.Instance]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, br.Addresses)
					continue
				}
				brokers[br.Instance] = &br
				select {
				case out <- br:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-gone:
				if !ok {
					gone = nil
					continue
				}
				e := fromZeroconf(entry)
				if existing, found := brokers[e.instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, e.addresses())
					if len(existing.Addresses) == 0 {
						delete(brokers, e.instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// Find returns the first broker announced within the configured timeout.
func (b *Browser) Find(ctx context.Context) (Broker, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return Broker{}, err
	}
	select {
	case br, ok := <-results:
		if !ok {
			return Broker{}, ErrNotFound
		}
		return br, nil
	case <-ctx.Done():
		return Broker{}, ErrNotFound
	}
}

func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}
