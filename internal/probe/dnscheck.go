package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// DNS classes reported by CheckDNS.
const (
	DNSResolves    = "RESOLVES"
	DNSNXDomain    = "NXDOMAIN"
	DNSNoARecord   = "NO_A_RECORD"
	DNSServfail    = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
)

type DNSStatus struct {
	Domain        string   `json:"domain"`
	Class         string   `json:"class"`
	CNAME         string   `json:"cname,omitempty"`
	Nameservers   []string `json:"nameservers,omitempty"`
	ResolverError string   `json:"resolver_error,omitempty"`
}

var dnsTimeout = 3 * time.Second

// CheckDNS classifies why the host of a down URL may be unreachable.
func CheckDNS(ctx context.Context, rawURL string) DNSStatus {
	s := DNSStatus{Domain: HostOf(rawURL)}
	if s.Domain == "" || strings.Contains(s.Domain, "://") {
		s.Class = DNSInvalidName
		return s
	}
	if ip := net.ParseIP(s.Domain); ip != nil {
		s.Class = DNSResolves
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()
	r := &net.Resolver{}

	var hasA, hasNS bool
	ips, err := r.LookupIP(ctx, "ip", s.Domain)
	switch {
	case err == nil && len(ips) > 0:
		hasA = true
		s.Class = DNSResolves
	case err != nil:
		s.ResolverError = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) {
			if de.IsNotFound {
				s.Class = DNSNXDomain
			} else if de.IsTemporary || de.Timeout() {
				s.Class = DNSServfail
			}
		}
	}

	if cname, err := r.LookupCNAME(ctx, s.Domain); err == nil && !strings.EqualFold(cname, s.Domain+".") {
		s.CNAME = strings.TrimSuffix(cname, ".")
	}
	if ns, err := r.LookupNS(ctx, s.Domain); err == nil && len(ns) > 0 {
		hasNS = true
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		if s.Class == DNSNXDomain {
			s.Class = DNSNoARecord
		}
	}

	if s.Class == "" {
		switch {
		case hasA:
			s.Class = DNSResolves
		case hasNS:
			s.Class = DNSNoARecord
		case s.ResolverError != "":
			s.Class = DNSServfail
		default:
			s.Class = DNSNXDomain
		}
	}
	return s
}

// HostOf pulls the hostname from a URL string.
func HostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
