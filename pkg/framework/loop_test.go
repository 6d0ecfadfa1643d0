package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMsg struct {
	val int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

type postingRunner struct {
	vals []int
}

func (r *postingRunner) Run(ctx context.Context) error {
	ctl := LoopCtlFrom(ctx)
	for _, v := range r.vals {
		ctl.PostMessage(&testMsg{val: v})
	}
	ctl.TriggerNext()
	<-ctx.Done()
	return ctx.Err()
}

func TestLoopDispatch(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour
	gotCh := make(chan []int, 1)
	var got []int
	loop.AddRunnable(&postingRunner{vals: []int{1, 2, 3, 4}})
	// even values are taken at high priority, the rest fall through.
	loop.AddController(PrLvHigh, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			if m, ok := mc.CurrentMessage().(*testMsg); ok && m.val%2 == 0 {
				mc.MessageTaken()
				got = append(got, m.val*10)
			}
		}))
		return nil
	}))
	loop.AddController(PrLvIdle, ControlFunc(func(cc ControlContext) error {
		TakeMessages(cc.Messages(), func(msg Message) bool {
			got = append(got, msg.(*testMsg).val)
			return true
		})
		if len(got) > 0 {
			gotCh <- got
		}
		return errors.New("logged only")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	select {
	case vals := <-gotCh:
		require.Equal(t, []int{20, 40, 1, 3}, vals)
	case <-time.After(time.Second):
		t.Fatal("loop not triggered")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestProcessMessagesStop(t *testing.T) {
	iter := &iteration{}
	iter.AddMessages(&testMsg{val: 1}, &testMsg{val: 2}, &testMsg{val: 3})
	var seen []int
	iter.ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
		m := mc.CurrentMessage().(*testMsg)
		seen = append(seen, m.val)
		if m.val == 1 {
			mc.MessageTaken()
			mc.AddMessages(&testMsg{val: 4})
		}
		if m.val == 2 {
			mc.StopProcessing()
		}
	}))
	require.Equal(t, []int{1, 2}, seen)

	seen = nil
	iter.ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
		seen = append(seen, mc.CurrentMessage().(*testMsg).val)
		mc.MessageTaken()
	}))
	require.Equal(t, []int{2, 3, 4}, seen)
	require.Empty(t, iter.msgs)
}
