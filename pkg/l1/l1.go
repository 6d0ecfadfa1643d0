// Package l1 defines how L1 controllers, which own the hardware, talk to
// the L2 components commanding them. A controller registers through a
// Registrar and receives commands as CommandMsg in its loop. L2 reaches it
// through a Connector.
package l1

import (
	"context"

	fx "github.com/robotalks/robotis.go/pkg/framework"
)

// Registrar is the controller side of a transport.
type Registrar interface {
	// SendEvent publishes an event to whoever is listening.
	SendEvent(context.Context, fx.Message) error
}

// Command is a received command waiting for its reply.
type Command interface {
	Msg() fx.Message
	// Done sends the reply. Only the first call sends.
	Done(reply fx.Message) error
}

// CommandMsg posts a Command to the controller loop.
type CommandMsg struct {
	Command Command
}

// NewMessage implements Message.
func (m *CommandMsg) NewMessage() fx.Message { return &CommandMsg{} }

// Connector is the L2 side of a transport.
type Connector interface {
	// Discover lists reachable controllers.
	Discover(context.Context) ([]ControllerInfo, error)
	// Connect opens a connection to a controller.
	Connect(context.Context, ControllerRef) (ControllerConn, error)
}

// ControllerConn sends commands to a controller.
type ControllerConn interface {
	DoCommand(fx.Message) CommandFuture
}

// Result is the reply of a command, or the error getting it. A CommandErr
// reply is set in both.
type Result struct {
	Msg fx.Message
	Err error
}

// CommandFuture delivers exactly one Result.
type CommandFuture interface {
	ResultChan() <-chan Result
}

// WaitResult waits for the result of f until ctx is done.
func WaitResult(ctx context.Context, f CommandFuture) Result {
	select {
	case res := <-f.ResultChan():
		return res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}
