// Package sim provides an in-memory servo bus speaking the robotis wire
// protocol. It implements robotis.Port so the real Bus and Servo code run
// against it unchanged.
package sim

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/robotis.go/pkg/l0/robotis"
)

// DeviceName is the device name selecting the simulated bus.
const DeviceName = "sim"

// DefaultMovingPolls is the number of moving register reads reporting
// moving after a goal position is written.
const DefaultMovingPolls = 3

// ErrClosed indicates the simulated port is closed.
var ErrClosed = errors.New("sim: port closed")

// Bus is a simulated serial port with servos attached.
type Bus struct {
	// MovingPolls overrides DefaultMovingPolls when positive.
	MovingPolls int

	lock        sync.Mutex
	servos      map[byte]*Servo
	pending     []byte
	readTimeout time.Duration
	closed      bool

	requests []robotis.Packet
	overlaps int
}

// New creates a Bus with servos of ids attached.
func New(ids ...int) *Bus {
	b := &Bus{
		servos:      make(map[byte]*Servo),
		readTimeout: time.Second,
	}
	for _, id := range ids {
		b.Attach(id)
	}
	return b
}

// Opener returns a robotis.PortOpener which always opens b.
func (b *Bus) Opener() robotis.PortOpener {
	return func(string, *serial.Mode) (robotis.Port, error) {
		return b, nil
	}
}

// Attach connects a servo with default register values.
func (b *Bus) Attach(id int) *Servo {
	s := newServo(byte(id))
	b.lock.Lock()
	b.servos[byte(id)] = s
	b.lock.Unlock()
	return s
}

// Detach disconnects a servo, it stops responding.
func (b *Bus) Detach(id int) {
	b.lock.Lock()
	delete(b.servos, byte(id))
	b.lock.Unlock()
}

// Servo returns the attached servo of id, or nil.
func (b *Bus) Servo(id int) *Servo {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.servos[byte(id)]
}

// Requests returns the decoded requests received so far.
func (b *Bus) Requests() []robotis.Packet {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]robotis.Packet(nil), b.requests...)
}

// RequestCount returns the number of requests received.
func (b *Bus) RequestCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.requests)
}

// Overlaps returns the number of writes received before the previous reply
// was completely read.
func (b *Bus) Overlaps() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.overlaps
}

// Write implements io.Writer. It must receive complete request frames.
func (b *Bus) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	if len(b.pending) > 0 {
		b.overlaps++
	}
	if len(p) < 3 {
		glog.Warningf("sim: short frame % X", p)
		return len(p), nil
	}
	req, err := robotis.ReadPacket(bytes.NewReader(p), p[2], robotis.ChecksumStrict)
	if err != nil {
		glog.Warningf("sim: bad frame % X: %v", p, err)
		return len(p), nil
	}
	b.requests = append(b.requests, *req)
	if req.ID == robotis.BroadcastID {
		for _, s := range b.servos {
			s.handle(req, b.movingPolls())
		}
		return len(p), nil
	}
	s := b.servos[req.ID]
	if s == nil {
		return len(p), nil
	}
	reply := s.handle(req, b.movingPolls())
	if req.Code == robotis.InstWrite && req.Data[0] == robotis.RegID.Address && len(req.Data) > 1 {
		delete(b.servos, req.ID)
		b.servos[req.Data[1]] = s
	}
	b.pending = append(b.pending, reply...)
	return len(p), nil
}

func (b *Bus) movingPolls() int {
	if b.MovingPolls > 0 {
		return b.MovingPolls
	}
	return DefaultMovingPolls
}

// Read implements io.Reader. With nothing pending it waits for the read
// timeout and returns 0, nil like serial.Port does.
func (b *Bus) Read(p []byte) (int, error) {
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return 0, ErrClosed
	}
	if len(b.pending) > 0 {
		n := copy(p, b.pending)
		b.pending = b.pending[n:]
		b.lock.Unlock()
		return n, nil
	}
	timeout := b.readTimeout
	b.lock.Unlock()
	time.Sleep(timeout)
	return 0, nil
}

// SetReadTimeout implements robotis.Port.
func (b *Bus) SetReadTimeout(timeout time.Duration) error {
	b.lock.Lock()
	b.readTimeout = timeout
	b.lock.Unlock()
	return nil
}

// ResetInputBuffer implements robotis.Port.
func (b *Bus) ResetInputBuffer() error {
	b.lock.Lock()
	b.pending = nil
	b.lock.Unlock()
	return nil
}

// ResetOutputBuffer implements robotis.Port.
func (b *Bus) ResetOutputBuffer() error {
	return nil
}

// Close implements io.Closer.
func (b *Bus) Close() error {
	b.lock.Lock()
	b.closed = true
	b.lock.Unlock()
	return nil
}
