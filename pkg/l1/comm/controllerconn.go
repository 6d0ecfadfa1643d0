package comm

import (
	"context"
	"sync"
	"time"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/msgs"
)

// DefaultCommandExpiration is the default time waiting for a reply.
const DefaultCommandExpiration = 1 * time.Second

// ControllerConn implements l1.ControllerConn on a Pipe. Commands are
// matched with replies by sequence number, those without a reply before
// expiration fail with context.DeadlineExceeded. Events are posted to the
// loop.
type ControllerConn struct {
	Expiration time.Duration

	pipe    Pipe
	seq     uint32
	pending map[uint32]*commandFuture
	lock    sync.Mutex
}

// NewControllerConn creates a ControllerConn on rw.
func NewControllerConn(rw PacketReadWriter) *ControllerConn {
	c := &ControllerConn{}
	c.Init(rw)
	return c
}

// Init initializes ControllerConn with defaults.
func (c *ControllerConn) Init(rw PacketReadWriter) {
	c.Expiration = DefaultCommandExpiration
	c.pipe.ReadWriter = rw
	c.pipe.Handler = msgs.HandleTypedMsgFunc(c.handleTypedMsg)
	c.pending = make(map[uint32]*commandFuture)
}

// SetExpiration changes the expiration of commands sent afterwards.
func (c *ControllerConn) SetExpiration(d time.Duration) {
	c.lock.Lock()
	c.Expiration = d
	c.lock.Unlock()
}

// DoCommand implements ControllerConn.
func (c *ControllerConn) DoCommand(msg fx.Message) l1.CommandFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	// 0 is never used as a sequence.
	if c.seq++; c.seq == 0 {
		c.seq++
	}
	f := &commandFuture{
		expireAt: time.Now().Add(c.Expiration),
		result:   make(chan l1.Result, 1),
	}
	if err := c.pipe.SendCommandMsg(msg, c.seq); err != nil {
		f.complete(l1.Result{Err: err})
		return f
	}
	c.pending[c.seq] = f
	return f
}

// AddToLoop implements LoopAdder.
func (c *ControllerConn) AddToLoop(l *fx.Loop) {
	l.Add(&c.pipe)
	l.AddController(fx.PrLvIdle, fx.ControlFunc(c.expire))
}

// Close closes the pipe, pending commands fail with context.Canceled.
func (c *ControllerConn) Close() error {
	err := c.pipe.Close()
	c.lock.Lock()
	pending := c.pending
	c.pending = make(map[uint32]*commandFuture)
	c.lock.Unlock()
	for _, f := range pending {
		f.complete(l1.Result{Err: context.Canceled})
	}
	return err
}

func (c *ControllerConn) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		loopCtl := fx.LoopCtlFrom(ctx)
		loopCtl.PostMessage(msg)
		loopCtl.TriggerNext()
		return nil
	}
	c.lock.Lock()
	f := c.pending[typed.Sequence]
	delete(c.pending, typed.Sequence)
	c.lock.Unlock()
	if f == nil {
		return nil
	}
	result := l1.Result{Msg: msg}
	if cmdErr, ok := msg.(*msgs.CommandErr); ok {
		result.Err = cmdErr
	}
	f.complete(result)
	return nil
}

func (c *ControllerConn) expire(cc fx.ControlContext) error {
	now := cc.Time()
	var expired []*commandFuture
	c.lock.Lock()
	for seq, f := range c.pending {
		if !f.expireAt.After(now) {
			delete(c.pending, seq)
			expired = append(expired, f)
		}
	}
	c.lock.Unlock()
	for _, f := range expired {
		f.complete(l1.Result{Err: context.DeadlineExceeded})
	}
	return nil
}

type commandFuture struct {
	expireAt time.Time
	result   chan l1.Result
}

func (f *commandFuture) complete(res l1.Result) {
	f.result <- res
	close(f.result)
}

func (f *commandFuture) ResultChan() <-chan l1.Result {
	return f.result
}
