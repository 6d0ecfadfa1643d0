// Package comm implements the L1 messaging on top of any packet transport.
//
// A transport moves opaque packets. Pipe encodes Typed messages into packets,
// Registrar serves commands on the controller side and ControllerConn sends
// them from the L2 side.
package comm

import (
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"
)

// PacketReadWriter is a packet transport. ReadPacket blocks until a whole
// packet arrives, WritePacket must be safe to call while a read is pending.
type PacketReadWriter interface {
	ReadPacket() ([]byte, error)
	WritePacket([]byte) error
}

// ErrNotConnected is returned writing to a Server without a connection.
var ErrNotConnected = errors.New("not connected")

// PacketConn is a PacketReadWriter on a closable connection.
type PacketConn interface {
	PacketReadWriter
	io.Closer
}

// Acceptor accepts incoming connections.
type Acceptor interface {
	Accept() (PacketConn, error)
	io.Closer
}

// Server implements PacketReadWriter on connections accepted one at a time.
// A broken connection is dropped and the next one accepted.
type Server struct {
	acceptor Acceptor
	conn     PacketConn
	lock     sync.Mutex
}

// NewServer creates a Server.
func NewServer(acceptor Acceptor) *Server {
	return &Server{acceptor: acceptor}
}

// ReadPacket implements PacketReadWriter. It only fails when the acceptor fails.
func (s *Server) ReadPacket() ([]byte, error) {
	for {
		conn := s.current()
		if conn == nil {
			accepted, err := s.acceptor.Accept()
			if err != nil {
				return nil, err
			}
			glog.Info("connection accepted")
			conn = s.attach(accepted)
		}
		pkt, err := conn.ReadPacket()
		if err == nil {
			return pkt, nil
		}
		glog.Warningf("connection dropped: %v", err)
		s.detach(conn)
	}
}

// WritePacket implements PacketReadWriter.
func (s *Server) WritePacket(pkt []byte) error {
	conn := s.current()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.WritePacket(pkt)
}

// Close closes the acceptor and the current connection.
func (s *Server) Close() error {
	err := s.acceptor.Close()
	if conn := s.current(); conn != nil {
		s.detach(conn)
	}
	return err
}

func (s *Server) current() PacketConn {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.conn
}

func (s *Server) attach(conn PacketConn) PacketConn {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.conn = conn
	return conn
}

func (s *Server) detach(conn PacketConn) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.conn == conn {
		s.conn.Close()
		s.conn = nil
	}
}
