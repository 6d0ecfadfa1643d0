package framework

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultLoopInterval is the interval between iterations when nothing
// triggers the loop.
const DefaultLoopInterval = 100 * time.Millisecond

// LoopAdder adds itself to a loop, as controllers, runnables or both.
type LoopAdder interface {
	AddToLoop(*Loop)
}

// Loop runs controllers by priority level and dispatches messages to them.
type Loop struct {
	Interval time.Duration

	levels  [PriorityLevels][]Controller
	runners []Runnable

	lock    sync.Mutex
	posted  []Message
	trigger chan struct{}
}

type loopCtxKey struct{}

// LoopCtlFrom gets LoopControl from context passed to Runnables.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey{}).(LoopControl)
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultLoopInterval, trigger: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController adds controllers at a priority level. A controller which is
// also a Runnable is started with the loop.
func (l *Loop) AddController(level int, ctls ...Controller) *Loop {
	l.levels[level] = append(l.levels[level], ctls...)
	for _, ctl := range ctls {
		if r, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, r)
		}
	}
	return l
}

// AddRunnable adds runnables started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable. It returns after all runnables return.
func (l *Loop) Run(ctx context.Context) error {
	if l.trigger == nil {
		l.trigger = make(chan struct{}, 1)
	}
	ctx = context.WithValue(ctx, loopCtxKey{}, LoopControl(l))
	runner := NewRunnerWith(ctx)
	defer runner.Wait()
	runner.Go(l.runners...)

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultLoopInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-l.trigger:
		}
		l.iterate(ctx)
	}
}

// RunOrFail runs the loop until interrupted, it's for main.
func (l *Loop) RunOrFail() {
	if err := NewRunner().HandleSignals().Go(l).Wait(); err != nil {
		log.Fatalln(err)
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.posted = append(l.posted, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

func (l *Loop) iterate(ctx context.Context) {
	l.lock.Lock()
	iter := &iteration{Loop: l, ctx: ctx, now: time.Now(), msgs: l.posted}
	l.posted = nil
	l.lock.Unlock()
	for level, ctls := range l.levels {
		iter.level = level
		for _, ctl := range ctls {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller %T: %v", ctl, err)
			}
		}
	}
	if glog.V(4) {
		for _, msg := range iter.msgs {
			glog.Infof("message %T not consumed", msg)
		}
	}
}

// iteration implements ControlContext and MessageStore.
type iteration struct {
	*Loop
	ctx   context.Context
	now   time.Time
	level int
	msgs  []Message
}

func (it *iteration) Context() context.Context { return it.ctx }
func (it *iteration) Time() time.Time          { return it.now }
func (it *iteration) PriorityLevel() int       { return it.level }
func (it *iteration) Messages() MessageStore   { return it }

func (it *iteration) AddMessages(msgs ...Message) {
	it.msgs = append(it.msgs, msgs...)
}

// ProcessMessages implements MessageStore. Messages added during processing
// are kept after the remaining ones.
func (it *iteration) ProcessMessages(proc MessageProcessor) {
	pending := it.msgs
	it.msgs = nil
	var kept []Message
	for i, msg := range pending {
		mc := &msgContext{iter: it, msg: msg}
		proc.ProcessMessage(mc)
		if !mc.taken {
			kept = append(kept, msg)
		}
		if mc.stop {
			kept = append(kept, pending[i+1:]...)
			break
		}
	}
	it.msgs = append(kept, it.msgs...)
}

type msgContext struct {
	iter  *iteration
	msg   Message
	taken bool
	stop  bool
}

func (c *msgContext) CurrentMessage() Message     { return c.msg }
func (c *msgContext) MessageTaken()               { c.taken = true }
func (c *msgContext) StopProcessing()             { c.stop = true }
func (c *msgContext) AddMessages(msgs ...Message) { c.iter.AddMessages(msgs...) }
