// Package framework runs controlling logic in a loop. Controllers are
// invoked by priority level in every iteration and consume the messages
// posted since the previous one. Runnables run in their own goroutines and
// feed the loop through LoopControl.
package framework

import (
	"context"
	"time"
)

// Message is consumed in a controlling loop.
type Message interface {
	// NewMessage creates an empty message of the same type, used when
	// decoding.
	NewMessage() Message
}

// Named is implemented by things having a name for logging.
type Named interface {
	Name() string
}

// Runnable is a background runner.
type Runnable interface {
	Run(context.Context) error
}

// Controller is invoked once per loop iteration.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// TimeSource provides the time for controlling logic.
type TimeSource interface {
	Time() time.Time
}

// LoopControl is given to Runnables to feed the loop.
// All methods are safe to call from any goroutine.
type LoopControl interface {
	// PostMessage queues a message for the next iteration.
	PostMessage(Message)
	// TriggerNext starts the next iteration without waiting for the
	// interval.
	TriggerNext()
}

// ControlContext is passed to a Controller in an iteration.
type ControlContext interface {
	TimeSource
	LoopControl

	// Context is canceled when the loop stops.
	Context() context.Context
	// PriorityLevel is the level of the running controller.
	PriorityLevel() int
	// Messages are the messages posted before the iteration started and
	// not taken by controllers of higher priority.
	Messages() MessageStore
}

// Priority levels, 0 runs first.
const (
	PriorityLevels = 16

	PrLvTop    = 0
	PrLvHigh   = 4
	PrLvNormal = 8
	PrLvLow    = 12
	PrLvIdle   = PriorityLevels - 1

	PrLvSense    = PrLvHigh
	PrLvControl  = PrLvNormal
	PrLvActuate  = PrLvLow
	PrLvPostProc = PrLvIdle - 1
)

// MessageAppender appends messages for the controllers running later in
// the same iteration.
type MessageAppender interface {
	AddMessages(msgs ...Message)
}

// MessageStore holds the messages of an iteration.
type MessageStore interface {
	MessageAppender
	// ProcessMessages passes messages in order to the processor.
	ProcessMessages(MessageProcessor)
}

// MessageProcessor examines one message at a time.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext is the state of processing a message.
type MessageProcessingContext interface {
	MessageAppender
	CurrentMessage() Message
	// MessageTaken removes the message from the store.
	MessageTaken()
	// StopProcessing skips the rest of the messages.
	StopProcessing()
}

// TakeMessages removes the messages fn returns true for.
func TakeMessages(store MessageStore, fn func(Message) bool) {
	store.ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
		if fn(mc.CurrentMessage()) {
			mc.MessageTaken()
		}
	}))
}
