package servoctl_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l0/robotis"
	"github.com/robotalks/robotis.go/pkg/l0/robotis/sim"
	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/comm"
	"github.com/robotalks/robotis.go/pkg/l1/comm/stream"
	"github.com/robotalks/robotis.go/pkg/l1/msgs"
	"github.com/robotalks/robotis.go/pkg/servoctl"
)

type ctlTestEnv struct {
	t      *testing.T
	sim    *sim.Bus
	ctl    *servoctl.Controller
	conn   *comm.ControllerConn
	events chan *msgs.ServoStatusEvent
	cancel context.CancelFunc
	errCh  chan error
}

func newCtlTestEnv(t *testing.T, ids ...int) *ctlTestEnv {
	simBus := sim.New(ids...)
	bus, err := robotis.BusConfig{
		Device:   sim.DeviceName,
		Timeout:  50 * time.Millisecond,
		Checksum: robotis.ChecksumStrict,
		Opener:   simBus.Opener(),
	}.Open()
	require.NoError(t, err)

	ctlSide, connSide := net.Pipe()
	reg := comm.NewRegistrar(stream.New(ctlSide))
	ctl := servoctl.NewController(bus, reg)
	ctl.StatusInterval = 20 * time.Millisecond
	ctl.MoveTimeout = time.Second
	for _, id := range ids {
		s, err := robotis.NewServo(bus, id, robotis.DefaultConfig())
		require.NoError(t, err)
		ctl.Add(s)
	}
	ctl.ProbeAll()

	env := &ctlTestEnv{
		t:      t,
		sim:    simBus,
		ctl:    ctl,
		conn:   comm.NewControllerConn(stream.New(connSide)),
		events: make(chan *msgs.ServoStatusEvent, 64),
		errCh:  make(chan error, 2),
	}
	env.conn.SetExpiration(5 * time.Second)

	ctlLoop := fx.NewLoop().Add(reg, ctl, &comm.UnsupportedCommands{})
	connLoop := fx.NewLoop().Add(env.conn)
	connLoop.Interval = 10 * time.Millisecond
	connLoop.AddController(fx.PrLvNormal, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
			if ev, ok := mc.CurrentMessage().(*msgs.ServoStatusEvent); ok {
				mc.MessageTaken()
				select {
				case env.events <- ev:
				default:
				}
			}
		}))
		return nil
	}))

	var ctx context.Context
	ctx, env.cancel = context.WithCancel(context.Background())
	go func() { env.errCh <- ctlLoop.Run(ctx) }()
	go func() { env.errCh <- connLoop.Run(ctx) }()
	return env
}

func (e *ctlTestEnv) stop() {
	e.cancel()
	require.Equal(e.t, context.Canceled, <-e.errCh)
	require.Equal(e.t, context.Canceled, <-e.errCh)
}

func (e *ctlTestEnv) do(cmd fx.Message) l1.Result {
	select {
	case res := <-e.conn.DoCommand(cmd).ResultChan():
		return res
	case <-time.After(5 * time.Second):
		e.t.Fatalf("no reply to %T", cmd)
	}
	return l1.Result{}
}

func (e *ctlTestEnv) moveResult(cmd *msgs.ServoMove) string {
	res := e.do(cmd)
	require.NoError(e.t, res.Err)
	reply, ok := res.Msg.(*msgs.ServoMoveResult)
	require.True(e.t, ok, "unexpected reply %T", res.Msg)
	require.Equal(e.t, cmd.ID, reply.ID)
	return reply.Result
}

func TestControllerProbeAndStatus(t *testing.T) {
	env := newCtlTestEnv(t, 1, 2)
	defer env.stop()
	require.Equal(t, []int{1, 2}, env.ctl.IDs())

	res := env.do(&msgs.ServoProbe{ID: 2})
	require.NoError(t, res.Err)
	require.Equal(t, &msgs.ServoInfo{ID: 2, State: "ready", ReturnDelayUs: 500}, res.Msg)

	env.sim.Servo(1).Set(0x24, 0x00, 0x03)
	res = env.do(&msgs.ServoStatusQuery{ID: 1})
	require.NoError(t, res.Err)
	st, ok := res.Msg.(*msgs.ServoStatus)
	require.True(t, ok)
	require.Equal(t, "ready", st.State)
	require.Equal(t, int32(0x300), st.Encoder)
	require.InDelta(t, robotis.Radians(75), float64(st.Angle), 1e-4)
	require.InDelta(t, 12.0, float64(st.Voltage), 1e-4)
	require.Equal(t, int32(35), st.Temperature)
	require.False(t, st.Moving)
	require.Empty(t, st.Error)
}

func TestControllerUnknownServo(t *testing.T) {
	env := newCtlTestEnv(t, 1)
	defer env.stop()

	res := env.do(&msgs.ServoMove{ID: 9, Angle: 0.1})
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "servo 9 not configured")

	env.sim.Detach(1)
	res = env.do(&msgs.ServoProbe{ID: 1})
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), robotis.ErrDeviceNotFound.Error())
}

func TestControllerMove(t *testing.T) {
	env := newCtlTestEnv(t, 1)
	defer env.stop()

	require.Equal(t, "accepted", env.moveResult(&msgs.ServoMove{
		ID:    1,
		Angle: float32(robotis.Radians(30)),
		Wait:  true,
	}))
	require.Equal(t, 614, env.sim.Servo(1).Word(0x24))

	require.Equal(t, "rejected-range", env.moveResult(&msgs.ServoMove{
		ID:    1,
		Angle: float32(robotis.Radians(170)),
	}))
	require.Equal(t, "rejected-speed", env.moveResult(&msgs.ServoMove{
		ID:       1,
		Angle:    0,
		Velocity: float32(robotis.Radians(60)),
	}))

	require.Equal(t, "accepted", env.moveResult(&msgs.ServoMove{
		ID:       1,
		Angle:    float32(robotis.Radians(-30)),
		Velocity: 1,
	}))
	require.Equal(t, 410, env.sim.Servo(1).Word(0x1E))
	require.Equal(t, robotis.SpeedToRegister(1), env.sim.Servo(1).Word(0x20))

	env.sim.Servo(1).Hold()
	require.Equal(t, "timed-out", env.moveResult(&msgs.ServoMove{
		ID:        1,
		Angle:     0,
		Wait:      true,
		TimeoutMs: 50,
	}))
	env.sim.Servo(1).Release()
}

func TestControllerMoveNegativeVelocity(t *testing.T) {
	simBus := sim.New(1)
	bus, err := robotis.BusConfig{
		Device:  sim.DeviceName,
		Timeout: 50 * time.Millisecond,
		Opener:  simBus.Opener(),
	}.Open()
	require.NoError(t, err)
	defer bus.Close()
	ctl := servoctl.NewController(bus, &comm.RegistrarMux{})
	s, err := robotis.NewServo(bus, 1, robotis.DefaultConfig())
	require.NoError(t, err)
	ctl.Add(s)
	ctl.ProbeAll()
	goal := simBus.Servo(1).Word(0x1E)

	requests := simBus.RequestCount()
	reply := ctl.Execute(context.Background(), &msgs.ServoMove{
		ID:       1,
		Angle:    0.5,
		Velocity: -3,
		Wait:     true,
	})
	require.Equal(t, &msgs.ServoMoveResult{ID: 1, Result: "rejected-speed"}, reply)
	require.Equal(t, requests, simBus.RequestCount())
	require.Equal(t, goal, simBus.Servo(1).Word(0x1E))
}

func TestControllerVelocityAndTorque(t *testing.T) {
	env := newCtlTestEnv(t, 1)
	defer env.stop()

	res := env.do(&msgs.ServoSetVelocity{ID: 1, Velocity: 0.5})
	require.NoError(t, res.Err)
	require.Equal(t, &msgs.ServoMoveResult{ID: 1, Result: "accepted"}, res.Msg)
	require.Equal(t, 43, env.sim.Servo(1).Word(0x20))

	res = env.do(&msgs.ServoSetVelocity{ID: 1, Velocity: -1})
	require.NoError(t, res.Err)
	require.Equal(t, &msgs.ServoMoveResult{ID: 1, Result: "rejected-speed"}, res.Msg)

	res = env.do(&msgs.ServoTorque{ID: 1, Enable: true})
	require.NoError(t, res.Err)
	require.Equal(t, &msgs.CommandOK{}, res.Msg)
	require.Equal(t, []byte{1}, env.sim.Servo(1).Get(0x18, 1))

	res = env.do(&msgs.ServoTorque{ID: 1})
	require.NoError(t, res.Err)
	require.Equal(t, []byte{0}, env.sim.Servo(1).Get(0x18, 1))
}

func TestControllerStatusEvent(t *testing.T) {
	env := newCtlTestEnv(t, 1, 2)
	defer env.stop()
	env.sim.Detach(2)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-env.events:
			require.Len(t, ev.Servos, 2)
			require.Equal(t, uint32(1), ev.Servos[0].ID)
			require.Equal(t, uint32(2), ev.Servos[1].ID)
			if ev.Servos[1].Error == "" {
				// sampled before the detach
				continue
			}
			require.Equal(t, "ready", ev.Servos[0].State)
			require.Equal(t, int32(0x200), ev.Servos[0].Encoder)
			require.Contains(t, ev.Servos[1].Error, robotis.ErrTimeout.Error())
			return
		case <-deadline:
			t.Fatal("status event not received")
		}
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := servoctl.ParseIDs(" 1, 3,2 ,")
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 2}, ids)

	ids, err = servoctl.ParseIDs("")
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = servoctl.ParseIDs("1,x")
	require.Error(t, err)
	_, err = servoctl.ParseIDs("254")
	require.Error(t, err)
}

func TestConfigNewController(t *testing.T) {
	conf := servoctl.NewConfig()
	conf.Device = sim.DeviceName
	conf.IDs = "4,3"
	conf.Timeout = 50 * time.Millisecond
	conf.StatusInterval = 0
	ctl, err := conf.NewController(&comm.RegistrarMux{})
	require.NoError(t, err)
	defer ctl.Bus.Close()
	require.Equal(t, []int{3, 4}, ctl.IDs())
	for _, id := range ctl.IDs() {
		s, err := ctl.Servo(id)
		require.NoError(t, err)
		require.Equal(t, robotis.StateReady, s.State())
	}

	conf.IDs = ""
	_, err = conf.NewController(&comm.RegistrarMux{})
	require.Error(t, err)
}
