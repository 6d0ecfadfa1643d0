package robotis

import (
	"fmt"
	"io"
)

// Instructions.
const (
	InstRead  byte = 0x02
	InstWrite byte = 0x03
)

// Servo id range.
const (
	MaxID       = 0xFD
	BroadcastID = 0xFE
)

const (
	marker = 0xFF
	// header(2) + id + len + code + checksum
	packetOverhead = 6
)

// ChecksumMode controls verification of received checksums.
type ChecksumMode int

const (
	// ChecksumLenient reads and discards the checksum byte.
	ChecksumLenient ChecksumMode = iota
	// ChecksumStrict rejects a packet with a wrong checksum.
	ChecksumStrict
)

// String implements fmt.Stringer.
func (m ChecksumMode) String() string {
	if m == ChecksumStrict {
		return "strict"
	}
	return "lenient"
}

// Packet is a frame on the bus. Code is the instruction of a request or the
// error status of a response.
type Packet struct {
	ID   byte
	Code byte
	Data []byte
}

// Checksum calculates the checksum of the bytes between the markers and the
// checksum byte.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return ^sum
}

// Encode builds a request frame.
func Encode(id, instruction byte, params []byte) []byte {
	return (&Packet{ID: id, Code: instruction, Data: params}).Bytes()
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() []byte {
	b := make([]byte, len(p.Data)+packetOverhead)
	b[0], b[1] = marker, marker
	b[2], b[3], b[4] = p.ID, byte(len(p.Data)+2), p.Code
	copy(b[5:], p.Data)
	b[len(b)-1] = Checksum(b[2 : len(b)-1])
	return b
}

// WriteTo writes encoded bytes.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Bytes())
	return int64(n), err
}

// Err returns a DeviceError if the packet carries a non-zero error status.
func (p *Packet) Err() error {
	if p.Code != 0 {
		return &DeviceError{Code: p.Code}
	}
	return nil
}

// ReadPacket reads a response frame from r and expects it from expectedID.
// Data is parsed even if the error status is non-zero, use Packet.Err to
// check it.
func ReadPacket(r io.Reader, expectedID byte, mode ChecksumMode) (*Packet, error) {
	head := make([]byte, 5)
	if _, err := io.ReadFull(r, head[:2]); err != nil {
		return nil, err
	}
	if head[0] != marker || head[1] != marker {
		return nil, &ProtocolError{Err: ErrBadHeader, Detail: fmt.Sprintf("% X", head[:2])}
	}
	if _, err := io.ReadFull(r, head[2:3]); err != nil {
		return nil, err
	}
	if head[2] != expectedID {
		return nil, &ProtocolError{Err: ErrIDMismatch, Detail: fmt.Sprintf("expect %d, got %d", expectedID, head[2])}
	}
	if _, err := io.ReadFull(r, head[3:4]); err != nil {
		return nil, err
	}
	if head[3] < 2 {
		return nil, &ProtocolError{Err: ErrBadLength, Detail: fmt.Sprintf("%d", head[3])}
	}
	if _, err := io.ReadFull(r, head[4:5]); err != nil {
		return nil, err
	}
	// params followed by checksum
	rest := make([]byte, head[3]-1)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}
	pkt := &Packet{ID: head[2], Code: head[4]}
	if l := len(rest) - 1; l > 0 {
		pkt.Data = rest[:l]
	}
	if mode == ChecksumStrict {
		sum := Checksum(append(head[2:], pkt.Data...))
		if got := rest[len(rest)-1]; got != sum {
			return nil, &ProtocolError{Err: ErrChecksum, Detail: fmt.Sprintf("expect %02X, got %02X", sum, got)}
		}
	}
	return pkt, nil
}

// ReadRequest builds a READ instruction.
func ReadRequest(id, address byte, count int) *Packet {
	return &Packet{ID: id, Code: InstRead, Data: []byte{address, byte(count)}}
}

// WriteRequest builds a WRITE instruction.
func WriteRequest(id, address byte, data ...byte) *Packet {
	params := make([]byte, 1+len(data))
	params[0] = address
	copy(params[1:], data)
	return &Packet{ID: id, Code: InstWrite, Data: params}
}
