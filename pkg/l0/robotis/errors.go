package robotis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTimeout indicates the expected bytes did not arrive in time.
	ErrTimeout = errors.New("timeout")
	// ErrDeviceNotFound indicates the serial port or the servo is absent.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrNotReady indicates the servo has not been probed.
	ErrNotReady = errors.New("not ready")
	// ErrFaulted indicates a previous framing error, the servo must be probed again.
	ErrFaulted = errors.New("device faulted")
	// ErrBusClosed indicates the bus has been closed.
	ErrBusClosed = errors.New("bus closed")
	// ErrInvalidID indicates the servo id is out of range.
	ErrInvalidID = errors.New("invalid servo id")
	// ErrConnReleased indicates a Conn is used outside Bus.Exclusive.
	ErrConnReleased = errors.New("bus access released")
)

// Framing failures wrapped by ProtocolError.
var (
	ErrBadHeader  = errors.New("bad header")
	ErrIDMismatch = errors.New("id mismatch")
	ErrBadLength  = errors.New("bad length")
	ErrChecksum   = errors.New("checksum mismatch")
)

// ProtocolError indicates a malformed response, the bus framing can no
// longer be trusted.
type ProtocolError struct {
	Err    error
	Detail string
}

// Error implements error.
func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return "protocol error: " + e.Err.Error()
	}
	return fmt.Sprintf("protocol error: %v: %s", e.Err, e.Detail)
}

// Unwrap returns the framing failure.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// StatusFlags are the error bits reported in a status packet.
type StatusFlags byte

// Status error bits.
const (
	StatusInputVoltage StatusFlags = 1 << iota
	StatusAngleLimit
	StatusOverheating
	StatusRange
	StatusChecksum
	StatusOverload
	StatusInstruction
)

var statusNames = []string{
	"input voltage",
	"angle limit",
	"overheating",
	"range",
	"checksum",
	"overload",
	"instruction",
}

// String lists the set bits.
func (f StatusFlags) String() string {
	var names []string
	for n, name := range statusNames {
		if f&(1<<uint(n)) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// DeviceError is a non-zero error status reported by the servo. The framing
// was consistent so the servo stays usable.
type DeviceError struct {
	Code byte
}

// Error implements error.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error %d (%s)", e.Code, StatusFlags(e.Code))
}

// Flags decodes Code.
func (e *DeviceError) Flags() StatusFlags {
	return StatusFlags(e.Code)
}

// ServoError wraps a failure of an operation on a specific servo.
type ServoError struct {
	ID  int
	Op  string
	Err error
}

// Error implements error.
func (e *ServoError) Error() string {
	return fmt.Sprintf("servo %d %s: %v", e.ID, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServoError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is caused by a bus timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsFaulted reports whether err is caused by a faulted servo.
func IsFaulted(err error) bool {
	return errors.Is(err, ErrFaulted)
}

// IsProtocolError reports whether err is a framing failure.
func IsProtocolError(err error) bool {
	var perr *ProtocolError
	return errors.As(err, &perr)
}

// DeviceErrorFrom extracts a DeviceError from err.
func DeviceErrorFrom(err error) (*DeviceError, bool) {
	var derr *DeviceError
	if errors.As(err, &derr) {
		return derr, true
	}
	return nil, false
}
