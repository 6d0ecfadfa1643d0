package robotis_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/robotis.go/pkg/l0/robotis"
	"github.com/robotalks/robotis.go/pkg/l0/robotis/sim"
)

const testTimeout = 50 * time.Millisecond

type servoTestEnv struct {
	t   *testing.T
	sim *sim.Bus
	bus *robotis.Bus
}

func newServoTestEnv(t *testing.T, ids ...int) *servoTestEnv {
	s := sim.New(ids...)
	bus, err := robotis.BusConfig{
		Device:   sim.DeviceName,
		Timeout:  testTimeout,
		Checksum: robotis.ChecksumStrict,
		Opener:   s.Opener(),
	}.Open()
	require.NoError(t, err)
	return &servoTestEnv{t: t, sim: s, bus: bus}
}

func (e *servoTestEnv) servo(id int, conf robotis.Config) *robotis.Servo {
	s, err := robotis.NewServo(e.bus, id, conf)
	require.NoError(e.t, err)
	return s
}

func (e *servoTestEnv) ready(id int, conf robotis.Config) *robotis.Servo {
	s := e.servo(id, conf)
	require.NoError(e.t, s.Probe())
	require.Equal(e.t, robotis.StateReady, s.State())
	return s
}

func TestNewServoInvalidID(t *testing.T) {
	env := newServoTestEnv(t)
	defer env.bus.Close()
	for _, id := range []int{-1, 254, 255} {
		_, err := robotis.NewServo(env.bus, id, robotis.DefaultConfig())
		require.True(t, errors.Is(err, robotis.ErrInvalidID))
	}
	conf := robotis.DefaultConfig()
	conf.MaxSpeed = 0
	_, err := robotis.NewServo(env.bus, 1, conf)
	require.Error(t, err)
}

func TestServoProbe(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()

	s := env.servo(1, robotis.DefaultConfig())
	require.Equal(t, robotis.StateUninitialized, s.State())
	_, err := s.ReadAngle()
	require.True(t, errors.Is(err, robotis.ErrNotReady))
	require.Equal(t, 0, env.sim.RequestCount())

	require.NoError(t, s.Probe())
	require.Equal(t, robotis.StateReady, s.State())
	require.Equal(t, 500*time.Microsecond, s.ReturnDelay())
}

func TestServoProbeMissing(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()

	s := env.servo(2, robotis.DefaultConfig())
	err := s.Probe()
	require.True(t, errors.Is(err, robotis.ErrDeviceNotFound))
	require.Equal(t, robotis.StateUninitialized, s.State())
}

func TestServoReading(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	s := env.ready(1, robotis.DefaultConfig())

	env.sim.Servo(1).Set(robotis.RegPresentPosition.Address, 0x00, 0x04)
	env.sim.Servo(1).Set(robotis.RegPresentLoad.Address, 0x64, 0x02)
	r, err := s.Reading()
	require.NoError(t, err)
	require.Equal(t, 0x400, r.Encoder)
	require.InDelta(t, robotis.Radians(150), r.Angle, 1e-9)
	require.Equal(t, 12.0, r.Voltage)
	require.Equal(t, 35, r.Temperature)
	require.Equal(t, -100.0, r.Load)
	require.False(t, r.Moving)

	env.sim.Servo(1).Set(robotis.RegPresentLoad.Address, 0x64, 0x06)
	load, err := s.ReadLoad()
	require.NoError(t, err)
	require.Equal(t, 100.0, load)
}

func TestServoReadAngleFlipped(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	conf := robotis.DefaultConfig()
	conf.Flipped = true
	s := env.ready(1, conf)

	env.sim.Servo(1).Set(robotis.RegPresentPosition.Address, 0x00, 0x04)
	ang, err := s.ReadAngle()
	require.NoError(t, err)
	require.InDelta(t, robotis.Radians(-150), ang, 1e-9)
}

func TestServoRejectRange(t *testing.T) {
	for _, flipped := range []bool{false, true} {
		env := newServoTestEnv(t, 1)
		conf := robotis.DefaultConfig()
		conf.Flipped = flipped
		s := env.ready(1, conf)
		count := env.sim.RequestCount()
		for _, deg := range []float64{148.5, -148.5, 200, -360} {
			res, err := s.MoveToAngle(context.Background(), robotis.Radians(deg))
			require.NoError(t, err)
			require.Equal(t, robotis.RejectedRange, res)
		}
		require.Equal(t, count, env.sim.RequestCount())
		env.bus.Close()
	}
}

func TestServoRejectEncoderRange(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	conf := robotis.DefaultConfig()
	conf.HomeEncoder = 1000
	s := env.ready(1, conf)
	count := env.sim.RequestCount()
	res, err := s.MoveToAngle(context.Background(), robotis.Radians(30))
	require.NoError(t, err)
	require.Equal(t, robotis.RejectedRange, res)
	require.Equal(t, count, env.sim.RequestCount())
}

func TestServoRejectSpeed(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	s := env.ready(1, robotis.DefaultConfig())
	count := env.sim.RequestCount()

	res, err := s.SetAngularVelocity(robotis.Radians(51))
	require.NoError(t, err)
	require.Equal(t, robotis.RejectedSpeed, res)
	res, err = s.SetAngularVelocity(-1)
	require.NoError(t, err)
	require.Equal(t, robotis.RejectedSpeed, res)
	res, err = s.MoveToAngle(context.Background(), 0, robotis.WithVelocity(robotis.Radians(60)))
	require.NoError(t, err)
	require.Equal(t, robotis.RejectedSpeed, res)
	require.Equal(t, count, env.sim.RequestCount())
}

func TestServoSetAngularVelocity(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	s := env.ready(1, robotis.DefaultConfig())

	res, err := s.SetAngularVelocity(0.5)
	require.NoError(t, err)
	require.Equal(t, robotis.Accepted, res)
	require.Equal(t, 43, env.sim.Servo(1).Word(robotis.RegMovingSpeed.Address))

	res, err = s.SetAngularVelocity(0.0005)
	require.NoError(t, err)
	require.Equal(t, robotis.Accepted, res)
	require.Equal(t, 1, env.sim.Servo(1).Word(robotis.RegMovingSpeed.Address))
}

func TestServoMoveToAngle(t *testing.T) {
	testCases := []struct {
		name    string
		flipped bool
		deg     float64
		expect  int
	}{
		{"forward", false, 30, 0x200 + 102},
		{"flipped", true, 30, 0x200 - 102},
		{"home", false, 0, 0x200},
		{"min", false, -148, 0x200 - 505},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newServoTestEnv(t, 1)
			defer env.bus.Close()
			conf := robotis.DefaultConfig()
			conf.Flipped = tc.flipped
			s := env.ready(1, conf)

			res, err := s.MoveToAngle(context.Background(), robotis.Radians(tc.deg), robotis.PollInterval(time.Millisecond))
			require.NoError(t, err)
			require.Equal(t, robotis.Accepted, res)
			sv := env.sim.Servo(1)
			require.Equal(t, tc.expect, sv.Word(robotis.RegGoalPosition.Address))
			require.Equal(t, 75, sv.Word(robotis.RegMovingSpeed.Address))
			enc, err := s.ReadEncoder()
			require.NoError(t, err)
			require.Equal(t, tc.expect, enc)
		})
	}
}

func TestServoMoveNoWait(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	s := env.ready(1, robotis.DefaultConfig())

	count := env.sim.RequestCount()
	res, err := s.MoveToAngle(context.Background(), robotis.Radians(10), robotis.NoWait(), robotis.WithVelocity(1))
	require.NoError(t, err)
	require.Equal(t, robotis.Accepted, res)
	// speed and goal only
	require.Equal(t, count+2, env.sim.RequestCount())
	require.Equal(t, 86, env.sim.Servo(1).Word(robotis.RegMovingSpeed.Address))
	moving, err := s.IsMoving()
	require.NoError(t, err)
	require.True(t, moving)
}

func TestServoMoveTimedOut(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	s := env.ready(1, robotis.DefaultConfig())
	env.sim.Servo(1).Hold()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err := s.MoveToAngle(ctx, robotis.Radians(45), robotis.PollInterval(time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, robotis.TimedOut, res)
	require.Equal(t, robotis.StateReady, s.State())

	env.sim.Servo(1).Release()
	res, err = s.MoveToAngle(context.Background(), robotis.Radians(45), robotis.PollInterval(time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, robotis.Accepted, res)

	// polls keep going on the same ticker until the servo stops.
	env.sim.Servo(1).Hold()
	go func() {
		time.Sleep(20 * time.Millisecond)
		env.sim.Servo(1).Release()
	}()
	res, err = s.MoveToAngle(context.Background(), robotis.Radians(10), robotis.PollInterval(0))
	require.NoError(t, err)
	require.Equal(t, robotis.Accepted, res)
}

func TestServoTorque(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	s := env.ready(1, robotis.DefaultConfig())

	require.NoError(t, s.EnableTorque())
	require.Equal(t, []byte{1}, env.sim.Servo(1).Get(robotis.RegTorqueEnable.Address, 1))
	require.NoError(t, s.DisableTorque())
	require.Equal(t, []byte{0}, env.sim.Servo(1).Get(robotis.RegTorqueEnable.Address, 1))
}

func TestServoDeviceError(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	s := env.ready(1, robotis.DefaultConfig())

	env.sim.Servo(1).SetStatus(byte(robotis.StatusInputVoltage))
	_, err := s.ReadTemperature()
	derr, ok := robotis.DeviceErrorFrom(err)
	require.True(t, ok)
	require.Equal(t, byte(1), derr.Code)
	require.Equal(t, robotis.StateReady, s.State())

	env.sim.Servo(1).SetStatus(0)
	temp, err := s.ReadTemperature()
	require.NoError(t, err)
	require.Equal(t, 35, temp)
}

func TestServoFaulted(t *testing.T) {
	testCases := []struct {
		name  string
		reply []byte
	}{
		{"bad header", []byte{0xFF, 0x00, 1, 2, 0, 0xFC}},
		{"id mismatch", (&robotis.Packet{ID: 2, Data: []byte{0, 2}}).Bytes()},
		{"bad checksum", []byte{0xFF, 0xFF, 1, 4, 0, 0, 2, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newServoTestEnv(t, 1)
			defer env.bus.Close()
			s := env.ready(1, robotis.DefaultConfig())

			env.sim.Servo(1).InjectReply(tc.reply)
			_, err := s.ReadEncoder()
			require.True(t, robotis.IsProtocolError(err))
			require.Equal(t, robotis.StateFaulted, s.State())

			count := env.sim.RequestCount()
			_, err = s.ReadEncoder()
			require.True(t, robotis.IsFaulted(err))
			require.Equal(t, count, env.sim.RequestCount())

			require.NoError(t, s.Probe())
			require.Equal(t, robotis.StateReady, s.State())
			enc, err := s.ReadEncoder()
			require.NoError(t, err)
			require.Equal(t, 0x200, enc)
		})
	}
}

func TestServoTimeout(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	s := env.ready(1, robotis.DefaultConfig())

	env.sim.Detach(1)
	start := time.Now()
	_, err := s.ReadVoltage()
	require.True(t, robotis.IsTimeout(err))
	require.True(t, time.Since(start) >= testTimeout)
	require.Equal(t, robotis.StateReady, s.State())
}

func TestServoWriteID(t *testing.T) {
	env := newServoTestEnv(t, 1)
	defer env.bus.Close()
	s := env.ready(1, robotis.DefaultConfig())

	_, err := s.WriteID(254)
	require.True(t, errors.Is(err, robotis.ErrInvalidID))

	moved, err := s.WriteID(7)
	require.NoError(t, err)
	require.Equal(t, robotis.StateUninitialized, s.State())
	require.Equal(t, 7, moved.ID())
	require.Equal(t, robotis.StateUninitialized, moved.State())
	require.NotNil(t, env.sim.Servo(7))
	require.Nil(t, env.sim.Servo(1))
	require.NoError(t, moved.Probe())
}

func TestServoConcurrentAccess(t *testing.T) {
	ids := []int{1, 2, 3}
	env := newServoTestEnv(t, ids...)
	defer env.bus.Close()
	for _, id := range ids {
		env.sim.Servo(id).Set(robotis.RegPresentPosition.Address, byte(id), 2)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 64)
	for n := 0; n < 8; n++ {
		id := ids[n%len(ids)]
		s := env.ready(id, robotis.DefaultConfig())
		wg.Add(1)
		go func(s *robotis.Servo) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				enc, err := s.ReadEncoder()
				if err == nil && enc != 0x200+s.ID() {
					err = errors.New("unexpected encoder value")
				}
				if err == nil {
					_, err = s.SetAngularVelocity(1)
				}
				if err != nil {
					errCh <- err
					return
				}
			}
		}(s)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
	require.Equal(t, 0, env.sim.Overlaps())
}
