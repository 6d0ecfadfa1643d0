package robotis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

// State of a Servo.
type State int

// States
const (
	StateUninitialized State = iota
	StateReady
	StateFaulted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFaulted:
		return "faulted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result is the outcome of a motion command.
type Result int

// Results
const (
	// Accepted means the command was sent (and completed if waited).
	Accepted Result = iota
	// RejectedRange means the angle is out of the configured limits.
	RejectedRange
	// RejectedSpeed means the velocity exceeds the configured limit.
	RejectedSpeed
	// TimedOut means the servo was still moving when the wait ended.
	TimedOut
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectedRange:
		return "rejected-range"
	case RejectedSpeed:
		return "rejected-speed"
	case TimedOut:
		return "timed-out"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// Reading is a snapshot of servo sensors.
type Reading struct {
	Encoder     int
	Angle       float64
	Voltage     float64
	Temperature int
	Load        float64
	Moving      bool
}

// DefaultPollInterval is the interval between moving checks of a blocking move.
const DefaultPollInterval = 5 * time.Millisecond

// Servo is the handle of one servo on a Bus.
type Servo struct {
	bus  *Bus
	id   int
	conf Config

	lock        sync.Mutex
	state       State
	returnDelay time.Duration
}

// NewServo creates an uninitialized Servo, call Probe before use.
func NewServo(bus *Bus, id int, conf Config) (*Servo, error) {
	if id < 0 || id > MaxID {
		return nil, fmt.Errorf("%w: %d (valid range: 0-%d)", ErrInvalidID, id, MaxID)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("servo %d: %v", id, err)
	}
	return &Servo{bus: bus, id: id, conf: conf}, nil
}

// NewServoFromMap creates a Servo with parameters from m.
func NewServoFromMap(bus *Bus, id int, m ConfigMap) (*Servo, error) {
	conf, ok := m.Lookup(id)
	if !ok {
		glog.Warningf("servo %d: no configuration, applying defaults", id)
	}
	return NewServo(bus, id, conf)
}

// ID returns the servo id.
func (s *Servo) ID() int {
	return s.id
}

// Config returns the parameters.
func (s *Servo) Config() Config {
	return s.conf
}

// State returns current state.
func (s *Servo) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// ReturnDelay returns the return delay read by Probe.
func (s *Servo) ReturnDelay() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.returnDelay
}

// Probe checks the servo exists and makes it ready.
func (s *Servo) Probe() error {
	resp, err := s.bus.Exchange(ReadRequest(byte(s.id), RegReturnDelay.Address, RegReturnDelay.Size))
	if err == nil {
		err = resp.Err()
	}
	if err == nil && len(resp.Data) < RegReturnDelay.Size {
		err = &ProtocolError{Err: ErrBadLength, Detail: "empty return delay"}
	}
	if errors.Is(err, ErrBusClosed) {
		return &ServoError{ID: s.id, Op: "probe", Err: err}
	}
	if err != nil {
		return &ServoError{ID: s.id, Op: "probe", Err: fmt.Errorf("%w on %s: %v", ErrDeviceNotFound, s.bus.Name(), err)}
	}
	s.lock.Lock()
	s.state = StateReady
	s.returnDelay = time.Duration(resp.Data[0]) * returnDelayUnit * time.Microsecond
	s.lock.Unlock()
	return nil
}

// ReadEncoder reads the present position in encoder ticks.
func (s *Servo) ReadEncoder() (int, error) {
	data, err := s.read("read encoder", RegPresentPosition)
	if err != nil {
		return 0, err
	}
	return decodeWord(data), nil
}

// ReadAngle reads the present position in radians.
func (s *Servo) ReadAngle() (float64, error) {
	enc, err := s.ReadEncoder()
	if err != nil {
		return 0, err
	}
	return s.conf.AngleFromEncoder(enc), nil
}

// ReadVoltage reads the supply voltage in volts.
func (s *Servo) ReadVoltage() (float64, error) {
	data, err := s.read("read voltage", RegPresentVoltage)
	if err != nil {
		return 0, err
	}
	return float64(data[0]) / 10, nil
}

// ReadTemperature reads the temperature in Celsius.
func (s *Servo) ReadTemperature() (int, error) {
	data, err := s.read("read temperature", RegPresentTemperature)
	if err != nil {
		return 0, err
	}
	return int(data[0]), nil
}

// ReadLoad reads a value proportional to the applied torque. The sign may
// vary with how the servo is mounted.
func (s *Servo) ReadLoad() (float64, error) {
	data, err := s.read("read load", RegPresentLoad)
	if err != nil {
		return 0, err
	}
	return decodeLoad(data), nil
}

func decodeLoad(data []byte) float64 {
	load := float64(int(data[0]) + int(data[1]>>6)*256)
	if (data[1]>>2)&1 == 0 {
		return -load
	}
	return load
}

// IsMoving reads whether the servo is moving.
func (s *Servo) IsMoving() (bool, error) {
	data, err := s.read("read moving", RegMoving)
	if err != nil {
		return false, err
	}
	return data[0] != 0, nil
}

// Reading reads all sensors, one exchange each.
func (s *Servo) Reading() (r Reading, err error) {
	if r.Encoder, err = s.ReadEncoder(); err != nil {
		return
	}
	r.Angle = s.conf.AngleFromEncoder(r.Encoder)
	if r.Voltage, err = s.ReadVoltage(); err != nil {
		return
	}
	if r.Temperature, err = s.ReadTemperature(); err != nil {
		return
	}
	if r.Load, err = s.ReadLoad(); err != nil {
		return
	}
	r.Moving, err = s.IsMoving()
	return
}

// SetAngularVelocity sets the moving speed (rad/s). A velocity above the
// configured maximum is not sent.
func (s *Servo) SetAngularVelocity(radPerSec float64) (Result, error) {
	if res := s.checkSpeed(radPerSec); res != Accepted {
		return res, nil
	}
	return Accepted, s.setSpeed(radPerSec)
}

func (s *Servo) checkSpeed(radPerSec float64) Result {
	if radPerSec < 0 || radPerSec > s.conf.MaxSpeed {
		glog.Warningf("servo %d: angular velocity %.2f deg/s exceeds limit %.2f deg/s, command ignored",
			s.id, Degrees(radPerSec), Degrees(s.conf.MaxSpeed))
		return RejectedSpeed
	}
	return Accepted
}

func (s *Servo) setSpeed(radPerSec float64) error {
	val := SpeedToRegister(radPerSec)
	// 0 means no speed control.
	if val < 1 {
		val = 1
	} else if val > MaxSpeedRegister {
		val = MaxSpeedRegister
	}
	return s.write("set velocity", RegMovingSpeed, encodeWord(val)...)
}

// MoveOption customizes MoveToAngle.
type MoveOption func(*moveOptions)

type moveOptions struct {
	velocity     float64
	hasVelocity  bool
	wait         bool
	pollInterval time.Duration
}

// WithVelocity sets the velocity (rad/s) instead of the configured maximum.
func WithVelocity(radPerSec float64) MoveOption {
	return func(o *moveOptions) {
		o.velocity, o.hasVelocity = radPerSec, true
	}
}

// NoWait returns right after the goal position is sent.
func NoWait() MoveOption {
	return func(o *moveOptions) {
		o.wait = false
	}
}

// PollInterval sets the interval between moving checks, non-positive keeps
// DefaultPollInterval.
func PollInterval(d time.Duration) MoveOption {
	return func(o *moveOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// MoveToAngle moves to ang (radians). Unless NoWait is specified, it waits
// until the servo stops or ctx is done, TimedOut is returned in the latter
// case. Commands outside the configured limits are not sent.
func (s *Servo) MoveToAngle(ctx context.Context, ang float64, opts ...MoveOption) (Result, error) {
	o := moveOptions{velocity: s.conf.MaxSpeed, wait: true, pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}
	if res := s.checkSpeed(o.velocity); res != Accepted {
		return res, nil
	}
	if !s.conf.InRange(ang) {
		glog.Warningf("servo %d: angle %.2f deg out of range [%.2f, %.2f], command ignored",
			s.id, Degrees(ang), Degrees(s.conf.MinAngle), Degrees(s.conf.MaxAngle))
		return RejectedRange, nil
	}
	enc := s.conf.EncoderFromAngle(ang)
	if enc < EncoderMin || enc > EncoderMax {
		glog.Warningf("servo %d: angle %.2f deg maps to encoder %d outside the servo range, command ignored",
			s.id, Degrees(ang), enc)
		return RejectedRange, nil
	}
	if err := s.setSpeed(o.velocity); err != nil {
		return Accepted, err
	}
	if err := s.write("move", RegGoalPosition, encodeWord(enc)...); err != nil {
		return Accepted, err
	}
	if !o.wait {
		return Accepted, nil
	}
	return s.waitStopped(ctx, o.pollInterval)
}

func (s *Servo) waitStopped(ctx context.Context, interval time.Duration) (Result, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		moving, err := s.IsMoving()
		if err != nil {
			return Accepted, err
		}
		if !moving {
			return Accepted, nil
		}
		select {
		case <-ctx.Done():
			return TimedOut, nil
		case <-ticker.C:
		}
	}
}

// EnableTorque turns on the motor.
func (s *Servo) EnableTorque() error {
	return s.write("enable torque", RegTorqueEnable, 1)
}

// DisableTorque turns off the motor.
func (s *Servo) DisableTorque() error {
	return s.write("disable torque", RegTorqueEnable, 0)
}

// WriteID changes the servo id. The current handle becomes uninitialized and
// the returned handle addresses the new id (not probed yet).
func (s *Servo) WriteID(newID int) (*Servo, error) {
	if newID < 0 || newID > MaxID {
		return nil, &ServoError{ID: s.id, Op: "write id", Err: fmt.Errorf("%w: %d", ErrInvalidID, newID)}
	}
	if err := s.write("write id", RegID, byte(newID)); err != nil {
		return nil, err
	}
	s.lock.Lock()
	s.state = StateUninitialized
	s.lock.Unlock()
	glog.Infof("servo %d: id changed to %d", s.id, newID)
	return &Servo{bus: s.bus, id: newID, conf: s.conf}, nil
}

func (s *Servo) read(op string, reg Register) ([]byte, error) {
	resp, err := s.exchange(op, ReadRequest(byte(s.id), reg.Address, reg.Size))
	if err != nil {
		return nil, err
	}
	if len(resp.Data) < reg.Size {
		return nil, s.fail(op, &ProtocolError{Err: ErrBadLength, Detail: fmt.Sprintf("expect %d bytes, got %d", reg.Size, len(resp.Data))})
	}
	return resp.Data, nil
}

func (s *Servo) write(op string, reg Register, data ...byte) error {
	_, err := s.exchange(op, WriteRequest(byte(s.id), reg.Address, data...))
	return err
}

func (s *Servo) exchange(op string, req *Packet) (*Packet, error) {
	if err := s.checkState(); err != nil {
		return nil, &ServoError{ID: s.id, Op: op, Err: err}
	}
	resp, err := s.bus.Exchange(req)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if err = resp.Err(); err != nil {
		return resp, &ServoError{ID: s.id, Op: op, Err: err}
	}
	return resp, nil
}

func (s *Servo) checkState() error {
	switch s.State() {
	case StateUninitialized:
		return ErrNotReady
	case StateFaulted:
		return ErrFaulted
	}
	return nil
}

// fail wraps err and moves to faulted on framing errors.
func (s *Servo) fail(op string, err error) error {
	if IsProtocolError(err) {
		s.lock.Lock()
		s.state = StateFaulted
		s.lock.Unlock()
		glog.Errorf("servo %d faulted during %s: %v", s.id, op, err)
	}
	return &ServoError{ID: s.id, Op: op, Err: err}
}
