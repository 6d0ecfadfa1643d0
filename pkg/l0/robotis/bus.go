package robotis

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// Port is the serial channel used by a Bus. serial.Port implements it.
type Port interface {
	io.ReadWriteCloser
	// SetReadTimeout bounds a single Read. A Read timing out returns 0, nil.
	SetReadTimeout(timeout time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// PortOpener opens a serial port.
type PortOpener func(device string, mode *serial.Mode) (Port, error)

// Defaults
const (
	DefaultBaudRate = 57600
	DefaultTimeout  = time.Second
)

// BusConfig defines how to open a Bus.
type BusConfig struct {
	// Device is the serial port, e.g. /dev/ttyUSB0.
	Device   string
	BaudRate int
	// Timeout bounds reading a complete response in Exchange, and each
	// Read outside of it.
	Timeout  time.Duration
	Checksum ChecksumMode
	// Opener replaces serial.Open if set.
	Opener PortOpener
}

// Bus owns the serial port shared by the servos on it.
type Bus struct {
	name     string
	port     Port
	timeout  time.Duration
	checksum ChecksumMode

	lock   sync.Mutex
	closed bool
}

// Conn provides raw access to the port while Bus.Exclusive is held.
type Conn struct {
	bus      *Bus
	released bool
	// deadline is shared by the reads of one Exchange.
	deadline time.Time
}

func openSerial(device string, mode *serial.Mode) (Port, error) {
	return serial.Open(device, mode)
}

// OpenBus opens the serial device with default settings.
func OpenBus(device string, baudRate int) (*Bus, error) {
	return BusConfig{Device: device, BaudRate: baudRate}.Open()
}

// Open opens the serial port in 8N1 mode and flushes its buffers.
func (c BusConfig) Open() (*Bus, error) {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	opener := c.Opener
	if opener == nil {
		opener = openSerial
	}
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := opener(c.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceNotFound, c.Device, err)
	}
	if err = port.ResetOutputBuffer(); err == nil {
		err = port.ResetInputBuffer()
	}
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("flush %s: %w", c.Device, err)
	}
	glog.Infof("bus %s opened at %d baud", c.Device, c.BaudRate)
	return NewBus(port, c), nil
}

// NewBus wraps an opened port.
func NewBus(port Port, conf BusConfig) *Bus {
	b := &Bus{
		name:     conf.Device,
		port:     port,
		timeout:  conf.Timeout,
		checksum: conf.Checksum,
	}
	if b.timeout <= 0 {
		b.timeout = DefaultTimeout
	}
	return b
}

// Name returns the device name.
func (b *Bus) Name() string {
	return b.name
}

// Timeout returns the response timeout.
func (b *Bus) Timeout() time.Duration {
	return b.timeout
}

// Exclusive runs fn with exclusive access to the bus. fn must perform at most
// one exchange and drain its response. The Conn is unusable after fn returns.
func (b *Bus) Exclusive(fn func(*Conn) error) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	conn := &Conn{bus: b}
	defer conn.release()
	return fn(conn)
}

// Exchange sends a request and reads its response.
func (b *Bus) Exchange(req *Packet) (resp *Packet, err error) {
	err = b.Exclusive(func(conn *Conn) error {
		resp, err = conn.Exchange(req)
		return err
	})
	return
}

// Close closes the port.
func (b *Bus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.port.Close()
}

func (c *Conn) release() {
	c.released = true
}

// Write implements io.Writer.
func (c *Conn) Write(p []byte) (int, error) {
	if c.released {
		return 0, ErrConnReleased
	}
	n, err := c.bus.port.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// Read fills p completely or fails with ErrTimeout when the bus timeout
// elapses first. Inside Exchange the timeout counts from the start of the
// response.
func (c *Conn) Read(p []byte) (int, error) {
	if c.released {
		return 0, ErrConnReleased
	}
	port := c.bus.port
	deadline := c.deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(c.bus.timeout)
	}
	var got int
	for got < len(p) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return got, fmt.Errorf("%w: read %d of %d bytes", ErrTimeout, got, len(p))
		}
		if err := port.SetReadTimeout(remaining); err != nil {
			return got, err
		}
		n, err := port.Read(p[got:])
		got += n
		if err != nil {
			return got, err
		}
	}
	return got, nil
}

// ReadFull reads exactly n bytes.
func (c *Conn) ReadFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := c.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Exchange writes req and reads the response. A failed read resets the input
// buffer so leftovers of the response don't break the next exchange.
func (c *Conn) Exchange(req *Packet) (*Packet, error) {
	out := req.Bytes()
	if glog.V(2) {
		glog.Infof("%s TX % X", c.bus.name, out)
	}
	if _, err := c.Write(out); err != nil {
		return nil, err
	}
	c.deadline = time.Now().Add(c.bus.timeout)
	resp, err := ReadPacket(c, req.ID, c.bus.checksum)
	c.deadline = time.Time{}
	if err != nil {
		if rerr := c.bus.port.ResetInputBuffer(); rerr != nil {
			glog.Warningf("%s reset input: %v", c.bus.name, rerr)
		}
		return nil, err
	}
	if glog.V(2) {
		glog.Infof("%s RX id=%d status=%02X % X", c.bus.name, resp.ID, resp.Code, resp.Data)
	}
	return resp, nil
}
