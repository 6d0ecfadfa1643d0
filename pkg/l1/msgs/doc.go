// Package msgs defines the L1 wire messages and their envelope.
//
// Every packet is a Typed envelope holding a protobuf encoded message. The
// type ID tells the kind, the group and whether a command is a reply.
// Servo messages are in GroupServo and use radians for angles and radians
// per second for velocities, independent of the servo model.
package msgs
