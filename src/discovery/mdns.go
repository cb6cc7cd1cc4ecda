// Package discovery advertises canvas servers on the local network and
// finds them again from clients.
package discovery

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type canvas servers register under.
const ServiceType = "_canvas._tcp"

// Advertiser answers mDNS queries for one canvas server until shut down.
type Advertiser struct {
	service *mdns.MDNSService
	server  *mdns.Server
}

// NewService builds the mDNS records for a server on port. An empty host
// uses the OS hostname; nil ips are resolved from the host.
func NewService(instance, host string, port int, ips []net.IP, info ...string) (*mdns.MDNSService, error) {
	if instance == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = h
	}
	if len(info) == 0 {
		info = []string{"canvas"}
	}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", host, port, ips, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	return service, nil
}

// Advertise starts answering queries for a canvas server on port.
func Advertise(instance string, port int, info ...string) (*Advertiser, error) {
	service, err := NewService(instance, "", port, nil, info...)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return &Advertiser{service: service, server: server}, nil
}

// Instance returns the advertised instance name.
func (a *Advertiser) Instance() string { return a.service.Instance }

// Shutdown stops answering queries.
func (a *Advertiser) Shutdown() error { return a.server.Shutdown() }

// Browse queries the network for canvas servers for up to timeout and calls
// found with the host:port of each one that has an IPv4 address.
func Browse(timeout time.Duration, found func(addr string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if addr, ok := entryAddr(e); ok {
				found(addr)
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	return err
}

func entryAddr(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	return net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)), true
}

// WebsocketURL turns a discovered address into a canvas endpoint.
func WebsocketURL(addr string) string {
	return "ws://" + addr + "/ws"
}
