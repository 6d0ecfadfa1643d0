package msgs

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/robotis.go/pkg/framework"
)

// Groups of type IDs.
const (
	GroupCommand uint32 = 0x00000000
	GroupServo   uint32 = 0x00030000
	// GroupCustom is the first group for messages defined elsewhere.
	GroupCustom uint32 = 0x7f000000
)

// SerializableMessage can be serialized over the wire.
type SerializableMessage interface {
	fx.Message
	TypeID() uint32
	Serializable() proto.Message
}

// ErrNotSerializable indicates the message is not a SerializableMessage.
var ErrNotSerializable = errors.New("not serializable message")

// ErrUnknownType indicates a type ID not registered.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

var registry = make(map[uint32]SerializableMessage)

// Register adds message types for decoding, it's called in init. The
// messages are only used as prototypes.
func Register(protos ...SerializableMessage) {
	for _, p := range protos {
		id := p.TypeID()
		if existing, ok := registry[id]; ok {
			panic(fmt.Sprintf("type %x of %T already registered by %T", id, p, existing))
		}
		registry[id] = p
	}
}

// NewMessageOf creates an empty message of a registered type.
func NewMessageOf(typeID uint32) (SerializableMessage, error) {
	p, ok := registry[typeID]
	if !ok {
		return nil, &ErrUnknownType{TypeID: typeID}
	}
	msg, ok := p.NewMessage().(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	return msg, nil
}
