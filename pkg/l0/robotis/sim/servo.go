package sim

import (
	"sync"

	"github.com/robotalks/robotis.go/pkg/l0/robotis"
)

const tableSize = 0x32

// Servo is a simulated servo, a control table answering READ and WRITE.
type Servo struct {
	lock   sync.Mutex
	table  [tableSize]byte
	status byte
	moving int
	held   bool
	reply  []byte
}

func newServo(id byte) *Servo {
	s := &Servo{}
	s.table[robotis.RegID.Address] = id
	s.table[robotis.RegReturnDelay.Address] = 250
	s.setWord(robotis.RegGoalPosition.Address, 0x200)
	s.setWord(robotis.RegPresentPosition.Address, 0x200)
	s.table[robotis.RegPresentVoltage.Address] = 120
	s.table[robotis.RegPresentTemperature.Address] = 35
	return s
}

func (s *Servo) setWord(addr byte, v int) {
	s.table[addr], s.table[addr+1] = byte(v%256), byte(v/256)
}

// Set writes registers directly, e.g. to simulate sensors.
func (s *Servo) Set(addr byte, data ...byte) {
	s.lock.Lock()
	copy(s.table[addr:], data)
	s.lock.Unlock()
}

// Get reads registers directly.
func (s *Servo) Get(addr byte, count int) []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]byte(nil), s.table[addr:int(addr)+count]...)
}

// Word reads a 2-byte register.
func (s *Servo) Word(addr byte) int {
	data := s.Get(addr, 2)
	return int(data[0]) + int(data[1])*256
}

// SetStatus sets the error status reported in every reply.
func (s *Servo) SetStatus(status byte) {
	s.lock.Lock()
	s.status = status
	s.lock.Unlock()
}

// InjectReply replaces the next reply with raw bytes.
func (s *Servo) InjectReply(raw []byte) {
	s.lock.Lock()
	s.reply = append([]byte(nil), raw...)
	s.lock.Unlock()
}

func (s *Servo) handle(req *robotis.Packet, movingPolls int) []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	resp := &robotis.Packet{ID: req.ID, Code: s.status}
	switch req.Code {
	case robotis.InstRead:
		if len(req.Data) < 2 || int(req.Data[0])+int(req.Data[1]) > tableSize {
			resp.Code |= byte(robotis.StatusRange)
			break
		}
		addr, count := req.Data[0], int(req.Data[1])
		if addr == robotis.RegMoving.Address {
			s.pollMoving()
		}
		resp.Data = append([]byte(nil), s.table[addr:int(addr)+count]...)
	case robotis.InstWrite:
		if len(req.Data) < 1 || int(req.Data[0])+len(req.Data)-1 > tableSize {
			resp.Code |= byte(robotis.StatusRange)
			break
		}
		addr := req.Data[0]
		copy(s.table[addr:], req.Data[1:])
		if addr == robotis.RegGoalPosition.Address {
			s.moving = movingPolls
			s.table[robotis.RegMoving.Address] = 1
		}
	default:
		resp.Code |= byte(robotis.StatusInstruction)
	}
	if raw := s.reply; raw != nil {
		s.reply = nil
		return raw
	}
	return resp.Bytes()
}

// pollMoving advances the motion by one poll, the goal is reached when no
// polls remain.
func (s *Servo) pollMoving() {
	if s.held {
		return
	}
	if s.moving <= 0 {
		s.table[robotis.RegMoving.Address] = 0
		return
	}
	s.moving--
	if s.moving == 0 {
		s.table[robotis.RegMoving.Address] = 0
		copy(s.table[robotis.RegPresentPosition.Address:], s.table[robotis.RegGoalPosition.Address:robotis.RegGoalPosition.Address+2])
	}
}

// Hold keeps the servo moving until Release is called.
func (s *Servo) Hold() {
	s.lock.Lock()
	s.held = true
	s.table[robotis.RegMoving.Address] = 1
	s.lock.Unlock()
}

// Release completes a held motion on the next poll.
func (s *Servo) Release() {
	s.lock.Lock()
	s.held, s.moving = false, 1
	s.lock.Unlock()
}
