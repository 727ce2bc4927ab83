package security

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// TrustedProxies is the set of networks whose forwarding headers are believed.
// The zero value trusts nobody.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts bare IPs and CIDRs.
func ParseTrustedProxies(list []string) (TrustedProxies, error) {
	proxies := make(TrustedProxies, 0, len(list))
	for _, entry := range list {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return proxies, nil
}

// Contains reports whether addr belongs to a trusted network.
func (t TrustedProxies) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range t {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP resolves the client address of a connection from remote (host or
// host:port). Forwarded addresses are only consulted when remote is trusted;
// the chain is walked from the nearest hop and the first untrusted address wins.
func (t TrustedProxies) ClientIP(remote string, forwardedFor []string) string {
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}

	addr, err := netip.ParseAddr(host)
	if err != nil || !t.Contains(addr) {
		return host
	}

	var hops []string
	for _, v := range forwardedFor {
		hops = append(hops, strings.Split(v, ",")...)
	}

	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return host
		}
		if i == 0 || !t.Contains(hop) {
			return hop.Unmap().String()
		}
	}
	return host
}
