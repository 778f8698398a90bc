// ABOUTME: mDNS service discovery for the XclockDAC control protocol
// ABOUTME: Handles both advertisement (daemon) and browsing (xclockctl)
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/sirupsen/logrus"

	"github.com/xclockdac/xclockdac-go/pkg/protocol"
)

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Log         logrus.FieldLogger
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
	log     logrus.FieldLogger
}

// ServerInfo describes a discovered daemon
type ServerInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// Addr returns host:port for dialing
func (s *ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	log := config.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
		log:     log.WithField("component", "mdns"),
	}
}

// Advertise announces the control endpoint via mDNS until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		protocol.ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=" + protocol.Path, fmt.Sprintf("version=%d", protocol.Version)},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.log.Infof("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, protocol.ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for daemons until Stop, delivering them on Servers
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop continuously browses for servers
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}
		m.query(3*time.Second, func(s *ServerInfo) bool {
			select {
			case m.servers <- s:
				return true
			case <-m.ctx.Done():
				return false
			}
		})
	}
}

// Discover runs a single query and returns every daemon that answered
func (m *Manager) Discover(timeout time.Duration) []*ServerInfo {
	var found []*ServerInfo
	seen := make(map[string]bool)
	m.query(timeout, func(s *ServerInfo) bool {
		if !seen[s.Addr()] {
			seen[s.Addr()] = true
			found = append(found, s)
		}
		return true
	})
	return found
}

// query runs one mDNS lookup, calling emit for each usable entry
func (m *Manager) query(timeout time.Duration, emit func(*ServerInfo) bool) {
	entries := make(chan *mdns.ServiceEntry, 10)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			info := entryInfo(entry)
			if info == nil {
				continue
			}
			m.log.Debugf("Discovered server: %s at %s", info.Name, info.Addr())
			if !emit(info) {
				// keep draining so Query never blocks
				emit = func(*ServerInfo) bool { return false }
			}
		}
	}()

	params := mdns.DefaultParams(protocol.ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	if err := mdns.Query(params); err != nil {
		m.log.WithError(err).Debug("mDNS query failed")
	}
	close(entries)
	<-done
}

// entryInfo converts an mDNS answer, skipping entries without an IPv4 address
func entryInfo(entry *mdns.ServiceEntry) *ServerInfo {
	if entry.AddrV4 == nil {
		return nil
	}
	info := &ServerInfo{
		Name: strings.TrimSuffix(entry.Name, "."+protocol.ServiceType+".local."),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: protocol.Path,
	}
	for _, field := range entry.InfoFields {
		if p, ok := strings.CutPrefix(field, "path="); ok {
			info.Path = p
		}
	}
	return info
}

// Servers returns the channel of discovered servers
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
