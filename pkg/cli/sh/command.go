package sh

import (
	"context"
	"errors"
	"time"

	"github.com/abiosoft/ishell"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l1"
)

// ErrNotConnected is reported by commands requiring a session.
var ErrNotConnected = errors.New("not connected")

// MustBeConnected wraps a command func requiring a session.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// DoCommand sends a command and prints the reply.
func DoCommand(c *ishell.Context, msg fx.Message) error {
	return DoCommandWithin(c, msg, 0)
}

// DoCommandWithin is DoCommand for a command which may take up to extra
// time longer than the shell timeout.
func DoCommandWithin(c *ishell.Context, msg fx.Message, extra time.Duration) error {
	res := ShellFrom(c).Do(msg, extra)
	if res.Err != nil {
		c.Err(res.Err)
		return res.Err
	}
	line, err := ShellFrom(c).FormatMsg(res.Msg)
	if err != nil {
		c.Err(err)
		return err
	}
	c.Println(line)
	return nil
}

type expirationSetter interface {
	SetExpiration(time.Duration)
}

// Do sends a command in the session and waits for the result.
func (s *Shell) Do(msg fx.Message, extra time.Duration) l1.Result {
	sess := s.Session
	if sess == nil {
		return l1.Result{Err: ErrNotConnected}
	}
	timeout := s.Timeout + extra
	if exp, ok := sess.Conn.(expirationSetter); ok {
		exp.SetExpiration(timeout)
	}
	ctx, cancel := context.WithTimeout(sess.Context(), timeout)
	defer cancel()
	return l1.WaitResult(ctx, sess.Conn.DoCommand(msg))
}
