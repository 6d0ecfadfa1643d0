// Package websocket carries L1 packets as binary websocket messages.
package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/comm"
)

// ReadWriter implements PacketConn.
type ReadWriter struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	doneCh    chan struct{}
}

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return &ReadWriter{conn: conn, doneCh: make(chan struct{})}
}

// ReadPacket implements PacketReadWriter.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive(p.conn, &pkt)
	return
}

// WritePacket implements PacketReadWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send(p.conn, pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	err := p.conn.Close()
	p.closeOnce.Do(func() { close(p.doneCh) })
	return err
}

// ErrClosed is returned by Accept after Close.
var ErrClosed = errors.New("websocket acceptor closed")

// Acceptor implements comm.Acceptor with an HTTP server upgrading requests
// on a path to websocket connections.
type Acceptor struct {
	listener  net.Listener
	server    *http.Server
	connCh    chan *ReadWriter
	doneCh    chan struct{}
	closeOnce sync.Once
}

// Listen serves websocket on addr and path.
func Listen(addr, path string) (*Acceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	a := &Acceptor{
		listener: ln,
		connCh:   make(chan *ReadWriter),
		doneCh:   make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(a.serve))
	a.server = &http.Server{Handler: mux}
	go a.server.Serve(ln)
	return a, nil
}

// Addr returns the listening address.
func (a *Acceptor) Addr() net.Addr {
	return a.listener.Addr()
}

// serve holds the request until the connection is closed, the websocket is
// closed once the handler returns.
func (a *Acceptor) serve(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	rw := New(conn)
	select {
	case a.connCh <- rw:
	case <-a.doneCh:
		return
	}
	select {
	case <-rw.doneCh:
	case <-a.doneCh:
	}
}

// Accept implements Acceptor.
func (a *Acceptor) Accept() (comm.PacketConn, error) {
	select {
	case rw := <-a.connCh:
		return rw, nil
	case <-a.doneCh:
		return nil, ErrClosed
	}
}

// Close implements io.Closer.
func (a *Acceptor) Close() error {
	a.closeOnce.Do(func() { close(a.doneCh) })
	return a.server.Close()
}

// DefaultOrigin is the origin sent when dialing.
const DefaultOrigin = "http://localhost/"

// Connector implements l1.Connector for a controller serving websocket.
type Connector struct {
	URL         string
	Origin      string
	DialTimeout time.Duration
}

// NewConnector creates a Connector dialing a ws:// or wss:// URL.
func NewConnector(wsURL string) *Connector {
	return &Connector{URL: wsURL, Origin: DefaultOrigin, DialTimeout: 5 * time.Second}
}

// Discover implements Connector. The only controller is the one at URL.
func (c *Connector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, err
	}
	return []l1.ControllerInfo{{Ref: l1.ControllerRef{Type: u.Scheme, ID: u.Host}}}, nil
}

// Connect implements Connector, ref is ignored.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	conf, err := websocket.NewConfig(c.URL, c.Origin)
	if err != nil {
		return nil, err
	}
	conf.Dialer = &net.Dialer{Timeout: c.DialTimeout}
	conn, err := websocket.DialConfig(conf)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return comm.NewControllerConn(New(conn)), nil
}
