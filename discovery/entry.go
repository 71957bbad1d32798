package discovery

import (
	"net"
	"slices"
	"strconv"

	"github.com/enbility/zeroconf/v3"
)

// serviceEntry holds the parts of a zeroconf entry a Broker is built from.
type serviceEntry struct {
	instance string
	hostName string
	port     int
	text     []string
	ipv4     []net.IP
	ipv6     []net.IP
}

func fromZeroconf(e *zeroconf.ServiceEntry) serviceEntry {
	return serviceEntry{
		instance: e.Instance,
		hostName: e.HostName,
		port:     e.Port,
		text:     e.Text,
		ipv4:     e.AddrIPv4,
		ipv6:     e.AddrIPv6,
	}
}

// addresses lists IPv4 before IPv6.
func (e serviceEntry) addresses() []string {
	addrs := make([]string, 0, len(e.ipv4)+len(e.ipv6))
	for _, ip := range e.ipv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range e.ipv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

func (e serviceEntry) broker() Broker {
	return Broker{
		Instance:  e.instance,
		HostName:  e.hostName,
		Port:      e.port,
		Addresses: e.addresses(),
		Text:      slices.Clone(e.text),
	}
}

// mergeAddresses appends the addresses not yet in existing.
func mergeAddresses(existing, added []string) []string {
	for _, addr := range added {
		if !slices.Contains(existing, addr) {
			existing = append(existing, addr)
		}
	}
	return existing
}

func removeAddresses(addresses, gone []string) []string {
	return slices.DeleteFunc(slices.Clone(addresses), func(a string) bool {
		return slices.Contains(gone, a)
	})
}

func itoa(i int) string { return strconv.Itoa(i) }
