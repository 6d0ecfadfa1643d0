package msgs

import (
	"context"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/robotis.go/pkg/framework"
)

// A type ID is laid out as
//
//	bit 31      kind, 0 command, 1 event
//	bits 30-16  group
//	bit 15      reply, commands only
//	bits 14-0   message within the group
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
	TypeIDMaskReply uint32 = 0x00008000

	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

// Typed is the envelope of every message on the wire. Sequence matches a
// reply with its command, it's 0 for events.
type Typed struct {
	TypeID   uint32 `protobuf:"varint,1,opt,name=type_id,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Typed) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Typed) Reset() { *m = Typed{} }

// String implements proto.Message.
func (m *Typed) String() string { return proto.CompactTextString(m) }

// TypedFrom wraps a serializable message.
func TypedFrom(msg fx.Message) (*Typed, error) {
	s, ok := msg.(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	payload, err := proto.Marshal(s.Serializable())
	if err != nil {
		return nil, err
	}
	return &Typed{TypeID: s.TypeID(), Message: payload}, nil
}

// DecodeTyped decodes an envelope from a packet.
func DecodeTyped(pkt []byte) (*Typed, error) {
	typed := &Typed{}
	if err := proto.Unmarshal(pkt, typed); err != nil {
		return nil, err
	}
	return typed, nil
}

// Encode encodes the envelope into a packet.
func (m *Typed) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// Decode decodes the wrapped message of a registered type.
func (m *Typed) Decode() (fx.Message, error) {
	msg, err := NewMessageOf(m.TypeID)
	if err != nil {
		return nil, err
	}
	if err := proto.Unmarshal(m.Message, msg.Serializable()); err != nil {
		return nil, err
	}
	return msg, nil
}

// IsCommand is true for commands and replies.
func (m *Typed) IsCommand() bool {
	return m.TypeID&TypeIDMaskKind == TypeIDKindCommand
}

// IsEvent is true for events.
func (m *Typed) IsEvent() bool {
	return m.TypeID&TypeIDMaskKind == TypeIDKindEvent
}

// IsReply is true for replies of commands.
func (m *Typed) IsReply() bool {
	return m.IsCommand() && m.TypeID&TypeIDMaskReply != 0
}

// TypedMsgHandler handles a decoded message with its envelope.
type TypedMsgHandler interface {
	HandleTypedMsg(context.Context, fx.Message, *Typed) error
}

// HandleTypedMsgFunc is func form of TypedMsgHandler.
type HandleTypedMsgFunc func(context.Context, fx.Message, *Typed) error

// HandleTypedMsg implements TypedMsgHandler.
func (f HandleTypedMsgFunc) HandleTypedMsg(ctx context.Context, msg fx.Message, typed *Typed) error {
	return f(ctx, msg, typed)
}
