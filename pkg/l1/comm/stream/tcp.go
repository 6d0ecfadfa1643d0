package stream

import (
	"context"
	"net"
	"time"

	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/comm"
)

// Listener implements comm.Acceptor on TCP.
type Listener struct {
	net.Listener
}

// Listen starts listening on addr.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{Listener: ln}, nil
}

// Accept implements Acceptor.
func (l *Listener) Accept() (comm.PacketConn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// DefaultDialTimeout is the default timeout connecting a Listener.
const DefaultDialTimeout = 5 * time.Second

// Connector implements l1.Connector for a controller listening on TCP.
type Connector struct {
	Addr        string
	DialTimeout time.Duration
}

// NewConnector creates a Connector dialing addr.
func NewConnector(addr string) *Connector {
	return &Connector{Addr: addr, DialTimeout: DefaultDialTimeout}
}

// Discover implements Connector. The only controller is the one at Addr.
func (c *Connector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	return []l1.ControllerInfo{{Ref: l1.ControllerRef{Type: "tcp", ID: c.Addr}}}, nil
}

// Connect implements Connector, ref is ignored.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	dialer := net.Dialer{Timeout: c.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, err
	}
	return comm.NewControllerConn(New(conn)), nil
}
