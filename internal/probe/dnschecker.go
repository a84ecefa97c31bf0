package probe

import (
	"context"
	"net/url"
	"strings"

	"github.com/hamed0406/statusledger/internal/domain"
)

// DNSAnnotator adds the resolver classification of the target host to the
// reason of failed HTTP checks, e.g. "dial tcp: ... dns=NXDOMAIN".
type DNSAnnotator struct {
	Inner   Checker
	Resolve func(host string) DNSStatus
}

func NewDNSAnnotator(inner Checker) *DNSAnnotator {
	return &DNSAnnotator{Inner: inner, Resolve: CheckDNS}
}

func (d *DNSAnnotator) Check(ctx context.Context, t domain.Target) domain.Outcome {
	out := d.Inner.Check(ctx, t)
	if out.Up || t.Kind != domain.KindHTTP {
		return out
	}
	dns := d.Resolve(extractHost(t.Endpoint))
	if dns.Class == "" || dns.Class == DNSResolves {
		return out
	}
	out.Err = strings.TrimSpace(out.Err + " dns=" + dns.Class)
	return out
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
