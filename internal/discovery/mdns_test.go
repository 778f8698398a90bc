// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests manager setup and conversion of service entries
package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	config := Config{
		ServiceName: "XclockDAC",
		Port:        8928,
	}

	mgr := NewManager(config)
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if mgr.servers == nil {
		t.Error("servers channel should not be nil")
	}

	mgr.Stop()
	select {
	case <-mgr.ctx.Done():
	default:
		t.Error("expected context to be cancelled after Stop")
	}
}

func TestEntryInfo(t *testing.T) {
	tests := []struct {
		name     string
		entry    mdnsEntry
		wantNil  bool
		wantName string
		wantPath string
		wantAddr string
	}{
		{
			name:     "full entry",
			entry:    mdnsEntry{name: "pi._xclockdac._tcp.local.", ip: net.IPv4(192, 168, 1, 20), port: 8928, fields: []string{"path=/ctl", "version=1"}},
			wantName: "pi",
			wantPath: "/ctl",
			wantAddr: "192.168.1.20:8928",
		},
		{
			name:     "default path",
			entry:    mdnsEntry{name: "dac._xclockdac._tcp.local.", ip: net.IPv4(10, 0, 0, 2), port: 9000},
			wantName: "dac",
			wantPath: "/xclockdac",
			wantAddr: "10.0.0.2:9000",
		},
		{
			name:    "ipv6 only",
			entry:   mdnsEntry{name: "v6._xclockdac._tcp.local.", port: 8928},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := entryInfo(tt.entry.build())
			if tt.wantNil {
				if info != nil {
					t.Fatalf("expected nil, got %+v", info)
				}
				return
			}
			if info == nil {
				t.Fatal("expected info, got nil")
			}
			if info.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, info.Name)
			}
			if info.Path != tt.wantPath {
				t.Errorf("expected path %q, got %q", tt.wantPath, info.Path)
			}
			if info.Addr() != tt.wantAddr {
				t.Errorf("expected addr %q, got %q", tt.wantAddr, info.Addr())
			}
		})
	}
}

type mdnsEntry struct {
	name   string
	ip     net.IP
	port   int
	fields []string
}

func (e mdnsEntry) build() *mdns.ServiceEntry {
	return &mdns.ServiceEntry{Name: e.name, AddrV4: e.ip, Port: e.port, InfoFields: e.fields}
}
