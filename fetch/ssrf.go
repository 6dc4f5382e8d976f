package fetch

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Hostnames that are always refused, regardless of what they resolve to.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
}

// ValidateTarget checks that a URL is safe to fetch: http(s) scheme, no
// blocked hostname, and no resolved address in a private range. A hostname
// that fails to resolve is treated as blocked, since an unresolvable name
// cannot be proven public.
func ValidateTarget(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrSchemeNotAllowed, parsed.Scheme)
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return fmt.Errorf("%w: empty host", ErrPrivateTarget)
	}
	if blockedHostnames[hostname] || strings.HasSuffix(hostname, ".localhost") {
		return fmt.Errorf("%w: %s", ErrPrivateTarget, hostname)
	}

	// Literal IP in the URL
	if ip := net.ParseIP(hostname); ip != nil {
		if !isPublicIP(ip) {
			return fmt.Errorf("%w: %s", ErrPrivateTarget, hostname)
		}
		return nil
	}

	// Resolve and check every address the name maps to
	addrs, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPrivateTarget, hostname, err)
	}
	for _, ip := range addrs {
		if !isPublicIP(ip) {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivateTarget, hostname, ip)
		}
	}

	return nil
}

// isPublicIP reports whether an IP address is routable on the public
// internet. Loopback, RFC 1918, link-local, unspecified, and IPv6 unique
// local addresses are all private.
func isPublicIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}
	if ip.IsPrivate() {
		return false
	}
	// "This network" (0.0.0.0/8)
	if ip4 := ip.To4(); ip4 != nil && ip4[0] == 0 {
		return false
	}
	// IPv6 unique local (fc00::/7)
	if ip.To4() == nil && len(ip) == net.IPv6len && ip[0]&0xfe == 0xfc {
		return false
	}
	return true
}

// dialControl rejects connections to private addresses at dial time. The
// pre-fetch validation checks what the hostname resolves to, but the dial
// can race a DNS change, so the guard runs again on the address actually
// being connected to.
func dialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: %s", ErrPrivateTarget, host)
	}
	if !isPublicIP(ip) {
		return fmt.Errorf("%w: %s", ErrPrivateTarget, ip)
	}
	return nil
}
