// Package robotis provides L0 protocol support for Robotis RX series servos.
package robotis

// Robotis servos share a half-duplex serial bus. The controller sends an
// instruction packet addressed to one servo id and the servo answers with a
// status packet:
//
//   request:  FF FF <id> <len> <instruction> <params...> <checksum>
//   response: FF FF <id> <len> <error>       <params...> <checksum>
//
// where len = len(params)+2 and checksum is the one's complement of the sum
// of all bytes after the two markers.
//
// A Bus owns the serial port and serializes exchanges so any number of Servo
// handles, each addressing one id, can be used from multiple goroutines.
