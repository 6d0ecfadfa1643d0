package comm_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/comm"
	"github.com/robotalks/robotis.go/pkg/l1/comm/stream"
	"github.com/robotalks/robotis.go/pkg/l1/msgs"
)

type pipeRig struct {
	reg    *comm.Registrar
	conn   *comm.ControllerConn
	events chan fx.Message
	cancel context.CancelFunc
	errCh  chan error
}

// newPipeRig connects a Registrar and a ControllerConn with net.Pipe, each
// side running in its own loop. ctls are added to the registrar loop.
func newPipeRig(ctls ...fx.Controller) *pipeRig {
	regSide, connSide := net.Pipe()
	r := &pipeRig{
		reg:    comm.NewRegistrar(stream.New(regSide)),
		conn:   comm.NewControllerConn(stream.New(connSide)),
		events: make(chan fx.Message, 16),
		errCh:  make(chan error, 2),
	}
	regLoop := fx.NewLoop().Add(r.reg)
	regLoop.AddController(fx.PrLvControl, ctls...)
	regLoop.Add(&comm.UnsupportedCommands{})

	connLoop := fx.NewLoop().Add(r.conn)
	connLoop.Interval = 10 * time.Millisecond
	connLoop.AddController(fx.PrLvNormal, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
			mc.MessageTaken()
			r.events <- mc.CurrentMessage()
		}))
		return nil
	}))

	var ctx context.Context
	ctx, r.cancel = context.WithCancel(context.Background())
	go func() { r.errCh <- regLoop.Run(ctx) }()
	go func() { r.errCh <- connLoop.Run(ctx) }()
	return r
}

func (r *pipeRig) stop(t *testing.T) {
	r.cancel()
	require.Equal(t, context.Canceled, <-r.errCh)
	require.Equal(t, context.Canceled, <-r.errCh)
}

func result(t *testing.T, f l1.CommandFuture) l1.Result {
	select {
	case res := <-f.ResultChan():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}
	return l1.Result{}
}

type probeReplier struct{}

func (probeReplier) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		cmdMsg, ok := mc.CurrentMessage().(*l1.CommandMsg)
		if !ok {
			return
		}
		if probe, ok := cmdMsg.Command.Msg().(*msgs.ServoProbe); ok {
			mc.MessageTaken()
			cmdMsg.Command.Done(&msgs.ServoInfo{ID: probe.ID, State: "ready", ReturnDelayUs: 500})
			if err := cmdMsg.Command.Done(msgs.NewCommandOK()); err != comm.ErrAlreadyReplied {
				panic("second reply accepted")
			}
		}
	}))
	return nil
}

func TestCommandReply(t *testing.T) {
	rig := newPipeRig(probeReplier{})
	defer rig.stop(t)

	res := result(t, rig.conn.DoCommand(&msgs.ServoProbe{ID: 3}))
	require.NoError(t, res.Err)
	require.Equal(t, &msgs.ServoInfo{ID: 3, State: "ready", ReturnDelayUs: 500}, res.Msg)

	// commands nobody takes are replied as unsupported.
	res = result(t, rig.conn.DoCommand(&msgs.ServoTorque{ID: 3, Enable: true}))
	require.Error(t, res.Err)
	require.Equal(t, msgs.ErrUnsupportedCommand.Error(), res.Err.Error())
}

func TestEventDelivery(t *testing.T) {
	rig := newPipeRig()
	defer rig.stop(t)

	ev := &msgs.ServoStatusEvent{Servos: []*msgs.ServoStatus{{ID: 1, State: "ready", Encoder: 512}}}
	require.NoError(t, rig.reg.SendEvent(context.Background(), ev))
	select {
	case msg := <-rig.events:
		require.Equal(t, ev, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

type silentController struct{}

func (silentController) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		if _, ok := mc.CurrentMessage().(*l1.CommandMsg); ok {
			mc.MessageTaken()
		}
	}))
	return nil
}

func TestCommandExpiration(t *testing.T) {
	rig := newPipeRig(silentController{})
	defer rig.stop(t)

	rig.conn.SetExpiration(20 * time.Millisecond)
	res := result(t, rig.conn.DoCommand(&msgs.ServoProbe{ID: 1}))
	require.Equal(t, context.DeadlineExceeded, res.Err)
}
