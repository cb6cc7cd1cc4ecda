package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	ips := []net.IP{net.IPv4(192, 168, 1, 20)}
	svc, err := NewService("studio", "canvas-host.local.", 3000, ips)
	require.NoError(t, err)

	assert.Equal(t, "studio", svc.Instance)
	assert.Equal(t, ServiceType, svc.Service)
	assert.Equal(t, "local.", svc.Domain)
	assert.Equal(t, "canvas-host.local.", svc.HostName)
	assert.Equal(t, 3000, svc.Port)
	assert.Equal(t, []string{"canvas"}, svc.TXT)
}

func TestNewServiceCustomInfo(t *testing.T) {
	ips := []net.IP{net.IPv4(10, 0, 0, 5)}
	svc, err := NewService("studio", "canvas-host.local.", 8080, ips, "version=0.1.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"version=0.1.0"}, svc.TXT)
}

func TestNewServiceRejectsMissingPort(t *testing.T) {
	_, err := NewService("studio", "canvas-host.local.", 0, []net.IP{net.IPv4(10, 0, 0, 5)})
	assert.Error(t, err)
}

func TestEntryAddr(t *testing.T) {
	addr, ok := entryAddr(&mdns.ServiceEntry{AddrV4: net.IPv4(192, 168, 1, 20), Port: 3000})
	require.True(t, ok)
	assert.Equal(t, "192.168.1.20:3000", addr)
	assert.Equal(t, "ws://192.168.1.20:3000/ws", WebsocketURL(addr))

	_, ok = entryAddr(&mdns.ServiceEntry{Port: 3000})
	assert.False(t, ok)
	_, ok = entryAddr(&mdns.ServiceEntry{AddrV4: net.IPv4(192, 168, 1, 20)})
	assert.False(t, ok)
	_, ok = entryAddr(nil)
	assert.False(t, ok)
}
