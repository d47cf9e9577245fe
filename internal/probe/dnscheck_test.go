package probe

import (
	"context"
	"testing"
)

func TestCheckDNS_ShortCircuits(t *testing.T) {
	if got := CheckDNS(context.Background(), "").Class; got != DNSInvalidName {
		t.Fatalf("empty host: want %s got %s", DNSInvalidName, got)
	}
	if got := CheckDNS(context.Background(), "http://127.0.0.1:8080/x").Class; got != DNSResolves {
		t.Fatalf("ip literal: want %s got %s", DNSResolves, got)
	}
}

func TestHostOf(t *testing.T) {
	if h := HostOf("https://Example.com:8443/p"); h != "Example.com" {
		t.Fatalf("unexpected host %q", h)
	}
	if h := HostOf("not a url"); h != "not a url" {
		t.Fatalf("unexpected fallback %q", h)
	}
}
