package blacklist

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// lookupTimeout bounds each zone query per §5's 5s resolver timeout.
const lookupTimeout = 5 * time.Second

// Resolver is the DNS lookup surface the checker needs; satisfied by
// *net.Resolver, narrowed for testability.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// checkZone issues the reversed-octet A-record query for ip against
// zone. A resolved 127.x.x.x response means listed; NXDOMAIN, NoAnswer,
// or timeout are all treated as clean (never over-alert on a flaky
// resolver), with the caller logging a warning for the timeout case.
func checkZone(ctx context.Context, resolver Resolver, ip, zone string) (listed bool, timedOut bool) {
	reversed, err := reverseOctets(ip)
	if err != nil {
		return false, false
	}
	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	addrs, err := resolver.LookupHost(lookupCtx, reversed+"."+zone)
	if err != nil {
		if lookupCtx.Err() != nil {
			return false, true
		}
		return false, false
	}
	for _, a := range addrs {
		if strings.HasPrefix(a, "127.") {
			return true, false
		}
	}
	return false, false
}

func reverseOctets(ip string) (string, error) {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return "", fmt.Errorf("invalid ipv4 address: %s", ip)
	}
	return fmt.Sprintf("%s.%s.%s.%s", parts[3], parts[2], parts[1], parts[0]), nil
}

// defaultResolver is a *net.Resolver configured the way the teacher's
// own health checker configures one (PreferGo, no custom dialer needed
// for plain A-record lookups).
func defaultResolver() *net.Resolver {
	return &net.Resolver{PreferGo: true}
}
