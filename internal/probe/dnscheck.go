package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// DNS classes reported by CheckDNS.
const (
	DNSResolves    = "RESOLVES"
	DNSNXDomain    = "NXDOMAIN"
	DNSNoARecord   = "NO_A_RECORD"
	DNSServFail    = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
)

type DNSStatus struct {
	Domain        string
	Class         string
	Nameservers   []string
	ResolverError string
}

var dnsTimeout = 3 * time.Second

// CheckDNS classifies how name resolves using the OS resolver.
func CheckDNS(name string) DNSStatus {
	ctx, cancel := context.WithTimeout(context.Background(), dnsTimeout)
	defer cancel()
	return classifyDNS(ctx, &net.Resolver{}, name)
}

func classifyDNS(ctx context.Context, r *net.Resolver, name string) DNSStatus {
	s := DNSStatus{Domain: strings.TrimSpace(name)}
	if s.Domain == "" || strings.Contains(s.Domain, "://") {
		s.Class = DNSInvalidName
		return s
	}

	ips, err := r.LookupIP(ctx, "ip", s.Domain)
	if err == nil && len(ips) > 0 {
		s.Class = DNSResolves
		return s
	}
	if err != nil {
		s.ResolverError = err.Error()
	}

	if ns, nsErr := r.LookupNS(ctx, s.Domain); nsErr == nil && len(ns) > 0 {
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		s.Class = DNSNoARecord
		return s
	}

	var de *net.DNSError
	switch {
	case errors.As(err, &de) && de.IsNotFound:
		s.Class = DNSNXDomain
	case err != nil:
		s.Class = DNSServFail
	default:
		s.Class = DNSNXDomain
	}
	return s
}
