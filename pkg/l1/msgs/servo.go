package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/robotis.go/pkg/framework"
)

// ServoProbe command probes a servo and makes it ready.
type ServoProbe struct {
	ID uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id"`
}

// NewMessage implements Message.
func (m *ServoProbe) NewMessage() fx.Message { return &ServoProbe{} }

// TypeID implements SerializableMessage.
func (m *ServoProbe) TypeID() uint32 { return ServoProbeTypeID }

// Serializable implements SerializableMessage.
func (m *ServoProbe) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ServoProbe) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ServoProbe) Reset() { *m = ServoProbe{} }

// String implements proto.Message.
func (m *ServoProbe) String() string { return proto.CompactTextString(m) }

// ServoInfo is the response for ServoProbe.
type ServoInfo struct {
	ID            uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id"`
	State         string `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
	ReturnDelayUs uint32 `protobuf:"varint,3,opt,name=return_delay_us,proto3" json:"return_delay_us,omitempty"`
}

// NewMessage implements Message.
func (m *ServoInfo) NewMessage() fx.Message { return &ServoInfo{} }

// TypeID implements SerializableMessage.
func (m *ServoInfo) TypeID() uint32 { return ServoInfoTypeID }

// Serializable implements SerializableMessage.
func (m *ServoInfo) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ServoInfo) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ServoInfo) Reset() { *m = ServoInfo{} }

// String implements proto.Message.
func (m *ServoInfo) String() string { return proto.CompactTextString(m) }

// ServoStatusQuery command reads the sensors of a servo.
type ServoStatusQuery struct {
	ID uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id"`
}

// NewMessage implements Message.
func (m *ServoStatusQuery) NewMessage() fx.Message { return &ServoStatusQuery{} }

// TypeID implements SerializableMessage.
func (m *ServoStatusQuery) TypeID() uint32 { return ServoStatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *ServoStatusQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ServoStatusQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ServoStatusQuery) Reset() { *m = ServoStatusQuery{} }

// String implements proto.Message.
func (m *ServoStatusQuery) String() string { return proto.CompactTextString(m) }

// ServoStatus is the response for ServoStatusQuery, also the element of
// ServoStatusEvent.
type ServoStatus struct {
	ID          uint32  `protobuf:"varint,1,opt,name=id,proto3" json:"id"`
	State       string  `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
	Encoder     int32   `protobuf:"varint,3,opt,name=encoder,proto3" json:"encoder"`
	Angle       float32 `protobuf:"fixed32,4,opt,name=angle,proto3" json:"angle"`
	Voltage     float32 `protobuf:"fixed32,5,opt,name=voltage,proto3" json:"voltage"`
	Temperature int32   `protobuf:"varint,6,opt,name=temperature,proto3" json:"temperature"`
	Load        float32 `protobuf:"fixed32,7,opt,name=load,proto3" json:"load"`
	Moving      bool    `protobuf:"varint,8,opt,name=moving,proto3" json:"moving"`
	Error       string  `protobuf:"bytes,9,opt,name=error,proto3" json:"error,omitempty"`
}

// NewMessage implements Message.
func (m *ServoStatus) NewMessage() fx.Message { return &ServoStatus{} }

// TypeID implements SerializableMessage.
func (m *ServoStatus) TypeID() uint32 { return ServoStatusTypeID }

// Serializable implements SerializableMessage.
func (m *ServoStatus) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ServoStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ServoStatus) Reset() { *m = ServoStatus{} }

// String implements proto.Message.
func (m *ServoStatus) String() string { return proto.CompactTextString(m) }

// ServoMove command moves a servo to an angle.
type ServoMove struct {
	ID    uint32  `protobuf:"varint,1,opt,name=id,proto3" json:"id"`
	Angle float32 `protobuf:"fixed32,2,opt,name=angle,proto3" json:"angle"`
	// Velocity is the maximum when 0.
	Velocity float32 `protobuf:"fixed32,3,opt,name=velocity,proto3" json:"velocity,omitempty"`
	// Wait replies after the servo stops, bounded by TimeoutMs.
	Wait      bool   `protobuf:"varint,4,opt,name=wait,proto3" json:"wait,omitempty"`
	TimeoutMs uint32 `protobuf:"varint,5,opt,name=timeout_ms,proto3" json:"timeout_ms,omitempty"`
}

// NewMessage implements Message.
func (m *ServoMove) NewMessage() fx.Message { return &ServoMove{} }

// TypeID implements SerializableMessage.
func (m *ServoMove) TypeID() uint32 { return ServoMoveTypeID }

// Serializable implements SerializableMessage.
func (m *ServoMove) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ServoMove) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ServoMove) Reset() { *m = ServoMove{} }

// String implements proto.Message.
func (m *ServoMove) String() string { return proto.CompactTextString(m) }

// ServoSetVelocity command sets the moving speed of a servo.
type ServoSetVelocity struct {
	ID       uint32  `protobuf:"varint,1,opt,name=id,proto3" json:"id"`
	Velocity float32 `protobuf:"fixed32,2,opt,name=velocity,proto3" json:"velocity"`
}

// NewMessage implements Message.
func (m *ServoSetVelocity) NewMessage() fx.Message { return &ServoSetVelocity{} }

// TypeID implements SerializableMessage.
func (m *ServoSetVelocity) TypeID() uint32 { return ServoSetVelocityTypeID }

// Serializable implements SerializableMessage.
func (m *ServoSetVelocity) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ServoSetVelocity) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ServoSetVelocity) Reset() { *m = ServoSetVelocity{} }

// String implements proto.Message.
func (m *ServoSetVelocity) String() string { return proto.CompactTextString(m) }

// ServoMoveResult is the response for ServoMove and ServoSetVelocity.
type ServoMoveResult struct {
	ID     uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id"`
	Result string `protobuf:"bytes,2,opt,name=result,proto3" json:"result"`
}

// NewMessage implements Message.
func (m *ServoMoveResult) NewMessage() fx.Message { return &ServoMoveResult{} }

// TypeID implements SerializableMessage.
func (m *ServoMoveResult) TypeID() uint32 { return ServoMoveResultTypeID }

// Serializable implements SerializableMessage.
func (m *ServoMoveResult) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ServoMoveResult) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ServoMoveResult) Reset() { *m = ServoMoveResult{} }

// String implements proto.Message.
func (m *ServoMoveResult) String() string { return proto.CompactTextString(m) }

// ServoTorque command turns the motor of a servo on or off.
type ServoTorque struct {
	ID     uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id"`
	Enable bool   `protobuf:"varint,2,opt,name=enable,proto3" json:"enable"`
}

// NewMessage implements Message.
func (m *ServoTorque) NewMessage() fx.Message { return &ServoTorque{} }

// TypeID implements SerializableMessage.
func (m *ServoTorque) TypeID() uint32 { return ServoTorqueTypeID }

// Serializable implements SerializableMessage.
func (m *ServoTorque) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ServoTorque) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ServoTorque) Reset() { *m = ServoTorque{} }

// String implements proto.Message.
func (m *ServoTorque) String() string { return proto.CompactTextString(m) }

// ServoStatusEvent is published periodically with the status of all servos.
type ServoStatusEvent struct {
	Servos []*ServoStatus `protobuf:"bytes,1,rep,name=servos,proto3" json:"servos,omitempty"`
}

// NewMessage implements Message.
func (m *ServoStatusEvent) NewMessage() fx.Message { return &ServoStatusEvent{} }

// TypeID implements SerializableMessage.
func (m *ServoStatusEvent) TypeID() uint32 { return ServoStatusEventTypeID }

// Serializable implements SerializableMessage.
func (m *ServoStatusEvent) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ServoStatusEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ServoStatusEvent) Reset() { *m = ServoStatusEvent{} }

// String implements proto.Message.
func (m *ServoStatusEvent) String() string { return proto.CompactTextString(m) }

// Servo TypeIDs
const (
	ServoProbeTypeID       uint32 = GroupServo | 0x0000
	ServoInfoTypeID        uint32 = ServoProbeTypeID | TypeIDMaskReply
	ServoStatusQueryTypeID uint32 = GroupServo | 0x0001
	ServoStatusTypeID      uint32 = ServoStatusQueryTypeID | TypeIDMaskReply
	ServoMoveTypeID        uint32 = GroupServo | 0x0002
	ServoMoveResultTypeID  uint32 = ServoMoveTypeID | TypeIDMaskReply
	ServoSetVelocityTypeID uint32 = GroupServo | 0x0003
	ServoTorqueTypeID      uint32 = GroupServo | 0x0004
	ServoStatusEventTypeID uint32 = GroupServo | TypeIDKindEvent | 0x0000
)

func init() {
	Register(
		&ServoProbe{},
		&ServoInfo{},
		&ServoStatusQuery{},
		&ServoStatus{},
		&ServoMove{},
		&ServoMoveResult{},
		&ServoSetVelocity{},
		&ServoTorque{},
		&ServoStatusEvent{},
	)
}
