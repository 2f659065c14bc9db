// Package urlguard validates outbound addresses before the engine performs
// any network egress on behalf of a workflow. It is the SSRF defense line:
// loopback, private and link-local ranges, well-known internal hostnames and
// sensitive service ports are all rejected. Validation is pure and safe to
// call concurrently.
package urlguard

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Result describes the outcome of validating a URL.
type Result struct {
	Valid    bool
	Hostname string
	Port     int
	Reason   string
}

var blockedHostnames = map[string]struct{}{
	"localhost":                 {},
	"localhost.localdomain":     {},
	"ip6-localhost":             {},
	"ip6-loopback":              {},
	"metadata":                  {},
	"metadata.google.internal":  {},
	"metadata.goog":             {},
	"instance-data":             {},
	"kubernetes":                {},
	"kubernetes.default":        {},
	"kubernetes.default.svc":    {},
	"consul":                    {},
	"vault":                     {},
	"host.docker.internal":      {},
	"gateway.docker.internal":   {},
	"docker.for.mac.localhost":  {},
	"rancher-metadata":          {},
	"rancher-metadata.internal": {},
}

// Ports of common internal services. Blocked unless equal to the scheme's
// default port (80 for http, 443 for https).
var blockedPorts = map[int]struct{}{
	22:    {},
	25:    {},
	3306:  {},
	5432:  {},
	6379:  {},
	9200:  {},
	11211: {},
	27017: {},
}

var privateCIDRs = mustParseCIDRs(
	"127.0.0.0/8",    // loopback
	"10.0.0.0/8",     // RFC1918
	"172.16.0.0/12",  // RFC1918
	"192.168.0.0/16", // RFC1918
	"169.254.0.0/16", // link-local, incl. cloud metadata 169.254.169.254
	"0.0.0.0/8",
	"100.64.0.0/10", // CGNAT
	"::1/128",       // IPv6 loopback
	"fc00::/7",      // unique-local
	"fe80::/10",     // link-local
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("urlguard: bad builtin cidr " + c + ": " + err.Error())
		}
		nets = append(nets, n)
	}
	return nets
}

// Validate checks rawURL against the egress policy. A non-nil error is
// returned for every rejection; Result carries the parsed hostname/port and
// a human-readable reason either way.
func Validate(rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return reject("", 0, "malformed url")
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return reject("", 0, fmt.Sprintf("scheme %q is not allowed", u.Scheme))
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return reject("", 0, "missing hostname")
	}

	port := defaultPort(scheme)
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return reject(host, 0, "invalid port")
		}
	}

	// Re-check the percent-decoded hostname so %6c%6f... variants of
	// blocked names cannot slip through.
	decoded := host
	if d, err := url.PathUnescape(host); err == nil {
		decoded = strings.ToLower(d)
	}

	for _, h := range []string{host, decoded} {
		if r, err := checkHostname(h, port); err != nil {
			return r, err
		}
	}

	if _, blocked := blockedPorts[port]; blocked && port != defaultPort(scheme) {
		return reject(host, port, fmt.Sprintf("port %d is blocked", port))
	}

	return Result{Valid: true, Hostname: host, Port: port}, nil
}

func checkHostname(host string, port int) (Result, error) {
	// IPv6 literals arrive bracketless from url.Hostname, but guard against
	// callers passing bracketed forms through the decode path.
	trimmed := strings.Trim(host, "[]")

	if _, blocked := blockedHostnames[trimmed]; blocked {
		return reject(host, port, fmt.Sprintf("hostname %q is blocked", trimmed))
	}
	if strings.HasSuffix(trimmed, ".internal") || strings.HasSuffix(trimmed, ".local") ||
		strings.HasSuffix(trimmed, ".svc.cluster.local") {
		return reject(host, port, fmt.Sprintf("hostname %q is blocked", trimmed))
	}

	if ip := net.ParseIP(trimmed); ip != nil {
		for _, n := range privateCIDRs {
			if n.Contains(ip) {
				return reject(host, port, fmt.Sprintf("ip %s is in blocked range %s", ip, n))
			}
		}
	}

	return Result{}, nil
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

func reject(host string, port int, reason string) (Result, error) {
	r := Result{Valid: false, Hostname: host, Port: port, Reason: reason}
	return r, fmt.Errorf("urlguard: %s", reason)
}
