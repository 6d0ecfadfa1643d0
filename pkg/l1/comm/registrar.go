package comm

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/msgs"
)

// Registrar implements l1.Registrar over a Pipe. Received commands are
// posted to the loop as l1.CommandMsg, events as they are.
type Registrar struct {
	pipe Pipe
}

// NewRegistrar creates a Registrar on rw.
func NewRegistrar(rw PacketReadWriter) *Registrar {
	r := &Registrar{}
	r.Init(rw)
	return r
}

// Init initializes the Registrar with defaults.
func (r *Registrar) Init(rw PacketReadWriter) {
	r.pipe.ReadWriter = rw
	r.pipe.Handler = msgs.HandleTypedMsgFunc(r.handleTypedMsg)
}

func (r *Registrar) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	var posted fx.Message
	switch {
	case typed.IsReply():
		glog.V(2).Infof("drop reply %x seq %d", typed.TypeID, typed.Sequence)
		return nil
	case typed.IsCommand():
		posted = &l1.CommandMsg{Command: &command{seq: typed.Sequence, msg: msg, pipe: &r.pipe}}
	case typed.IsEvent():
		posted = msg
	default:
		return nil
	}
	loopCtl := fx.LoopCtlFrom(ctx)
	loopCtl.PostMessage(posted)
	loopCtl.TriggerNext()
	return nil
}

// SendEvent implements Registrar. Events are dropped without a peer.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	if err := r.pipe.SendEventMsg(msg); err != ErrNotConnected {
		return err
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.pipe)
}

// Close closes the underlying transport.
func (r *Registrar) Close() error {
	return r.pipe.Close()
}

// ErrAlreadyReplied is returned when a command is replied twice.
var ErrAlreadyReplied = errors.New("command already replied")

type command struct {
	seq     uint32
	msg     fx.Message
	pipe    *Pipe
	replied int32
}

func (c *command) Msg() fx.Message {
	return c.msg
}

// Done sends the reply. Only the first reply goes out.
func (c *command) Done(msg fx.Message) error {
	if !atomic.CompareAndSwapInt32(&c.replied, 0, 1) {
		return ErrAlreadyReplied
	}
	return c.pipe.SendCommandMsg(msg, c.seq)
}

// RegistrarMux registers L1 controller with multiple Registrars.
type RegistrarMux struct {
	Registrars []l1.Registrar
}

// SendEvent implements Registrar.
func (r *RegistrarMux) SendEvent(ctx context.Context, msg fx.Message) error {
	var errs fx.AggregatedError
	for _, reg := range r.Registrars {
		errs.Add(reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (r *RegistrarMux) AddToLoop(l *fx.Loop) {
	for _, reg := range r.Registrars {
		if adder, ok := reg.(fx.LoopAdder); ok {
			l.Add(adder)
		}
	}
}

// Add adds more registrars.
func (r *RegistrarMux) Add(regs ...l1.Registrar) {
	r.Registrars = append(r.Registrars, regs...)
}

// UnsupportedCommands replies left-over commands as unsupported.
type UnsupportedCommands struct {
}

// Control implements Controller.
func (c *UnsupportedCommands) Control(cc fx.ControlContext) error {
	fx.TakeMessages(cc.Messages(), func(msg fx.Message) bool {
		cmdMsg, ok := msg.(*l1.CommandMsg)
		if !ok {
			return false
		}
		glog.V(2).Infof("unsupported command %T", cmdMsg.Command.Msg())
		if err := cmdMsg.Command.Done(msgs.NewCommandErr(msgs.ErrUnsupportedCommand)); err != nil {
			glog.Warningf("reply unsupported command: %v", err)
		}
		return true
	})
	return nil
}

// AddToLoop implements LoopAdder.
func (c *UnsupportedCommands) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvIdle, c)
}
