// Package servoctl implements the L1 controller serving servo commands on a
// robotis bus.
package servoctl

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l0/robotis"
	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/msgs"
)

// Controller serves servo commands. Every command runs on its own goroutine,
// the bus serializes the exchanges.
type Controller struct {
	Bus            *robotis.Bus
	Registrar      l1.Registrar
	StatusInterval time.Duration
	MoveTimeout    time.Duration

	servos map[int]*robotis.Servo
	ids    []int
	lock   sync.RWMutex
}

// NewController creates a Controller on an opened bus.
func NewController(bus *robotis.Bus, reg l1.Registrar) *Controller {
	return &Controller{
		Bus:            bus,
		Registrar:      reg,
		StatusInterval: DefaultStatusInterval,
		MoveTimeout:    DefaultMoveTimeout,
		servos:         make(map[int]*robotis.Servo),
	}
}

// Add adds servo handles.
func (c *Controller) Add(servos ...*robotis.Servo) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, s := range servos {
		if _, exist := c.servos[s.ID()]; !exist {
			c.ids = append(c.ids, s.ID())
		}
		c.servos[s.ID()] = s
	}
	sort.Ints(c.ids)
}

// IDs returns the servo ids in order.
func (c *Controller) IDs() []int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return append([]int(nil), c.ids...)
}

// Servo returns the handle of id.
func (c *Controller) Servo(id int) (*robotis.Servo, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if s := c.servos[id]; s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("servo %d not configured", id)
}

// ProbeAll probes every servo, failures are logged.
func (c *Controller) ProbeAll() {
	for _, id := range c.IDs() {
		s, _ := c.Servo(id)
		if err := s.Probe(); err != nil {
			glog.Warningf("%v", err)
			continue
		}
		glog.Infof("servo %d ready, return delay %v", id, s.ReturnDelay())
	}
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(loop *framework.Loop) {
	loop.AddController(framework.PrLvControl, c)
	loop.AddRunnable(c)
}

// Control implements Controller.
func (c *Controller) Control(cc framework.ControlContext) error {
	framework.TakeMessages(cc.Messages(), func(msg framework.Message) bool {
		cmdMsg, ok := msg.(*l1.CommandMsg)
		if !ok {
			return false
		}
		switch cmdMsg.Command.Msg().(type) {
		case *msgs.ServoProbe, *msgs.ServoStatusQuery, *msgs.ServoMove, *msgs.ServoSetVelocity, *msgs.ServoTorque:
		default:
			return false
		}
		go func(cmd l1.Command) {
			if err := cmd.Done(c.Execute(cc.Context(), cmd.Msg())); err != nil {
				glog.Errorf("reply %T: %v", cmd.Msg(), err)
			}
		}(cmdMsg.Command)
		return true
	})
	return nil
}

// Run implements Runnable. It publishes status events periodically and
// closes the bus when ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	defer c.Bus.Close()
	if c.StatusInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(c.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Registrar.SendEvent(ctx, c.StatusEvent()); err != nil {
				glog.Warningf("send status: %v", err)
			}
		}
	}
}

// StatusEvent reads the status of all servos.
func (c *Controller) StatusEvent() *msgs.ServoStatusEvent {
	ev := &msgs.ServoStatusEvent{}
	for _, id := range c.IDs() {
		s, _ := c.Servo(id)
		ev.Servos = append(ev.Servos, Status(s))
	}
	return ev
}

// Status reads the sensors of a ready servo. Errors are reported in the
// message.
func Status(s *robotis.Servo) *msgs.ServoStatus {
	st := &msgs.ServoStatus{ID: uint32(s.ID())}
	state := s.State()
	if state == robotis.StateReady {
		r, err := s.Reading()
		if err != nil {
			st.Error = err.Error()
		} else {
			st.Encoder = int32(r.Encoder)
			st.Angle = float32(r.Angle)
			st.Voltage = float32(r.Voltage)
			st.Temperature = int32(r.Temperature)
			st.Load = float32(r.Load)
			st.Moving = r.Moving
		}
		state = s.State()
	}
	st.State = state.String()
	return st
}

// Execute runs a servo command and returns the reply.
func (c *Controller) Execute(ctx context.Context, msg framework.Message) framework.Message {
	var id uint32
	switch m := msg.(type) {
	case *msgs.ServoProbe:
		id = m.ID
	case *msgs.ServoStatusQuery:
		id = m.ID
	case *msgs.ServoMove:
		id = m.ID
	case *msgs.ServoSetVelocity:
		id = m.ID
	case *msgs.ServoTorque:
		id = m.ID
	default:
		return msgs.NewCommandErr(msgs.ErrUnsupportedCommand)
	}
	s, err := c.Servo(int(id))
	if err != nil {
		return msgs.NewCommandErr(err)
	}

	switch m := msg.(type) {
	case *msgs.ServoProbe:
		if err = s.Probe(); err != nil {
			return msgs.NewCommandErr(err)
		}
		return &msgs.ServoInfo{
			ID:            m.ID,
			State:         s.State().String(),
			ReturnDelayUs: uint32(s.ReturnDelay() / time.Microsecond),
		}
	case *msgs.ServoStatusQuery:
		st := Status(s)
		if st.Error != "" {
			return msgs.NewCommandErrFromMsg(st.Error)
		}
		return st
	case *msgs.ServoMove:
		return c.move(ctx, s, m)
	case *msgs.ServoSetVelocity:
		res, err := s.SetAngularVelocity(float64(m.Velocity))
		if err != nil {
			return msgs.NewCommandErr(err)
		}
		return &msgs.ServoMoveResult{ID: m.ID, Result: res.String()}
	case *msgs.ServoTorque:
		if m.Enable {
			err = s.EnableTorque()
		} else {
			err = s.DisableTorque()
		}
		if err != nil {
			return msgs.NewCommandErr(err)
		}
		return msgs.NewCommandOK()
	}
	return msgs.NewCommandErr(msgs.ErrUnsupportedCommand)
}

func (c *Controller) move(ctx context.Context, s *robotis.Servo, m *msgs.ServoMove) framework.Message {
	opts := []robotis.MoveOption{}
	// 0 is the default speed, a negative one is left to MoveToAngle to reject.
	if m.Velocity != 0 {
		opts = append(opts, robotis.WithVelocity(float64(m.Velocity)))
	}
	if !m.Wait {
		opts = append(opts, robotis.NoWait())
	}
	timeout := c.MoveTimeout
	if m.TimeoutMs > 0 {
		timeout = time.Duration(m.TimeoutMs) * time.Millisecond
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := s.MoveToAngle(ctx, float64(m.Angle), opts...)
	if err != nil {
		return msgs.NewCommandErr(err)
	}
	return &msgs.ServoMoveResult{ID: m.ID, Result: res.String()}
}
