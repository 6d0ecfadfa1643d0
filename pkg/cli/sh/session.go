package sh

import (
	"context"
	"fmt"
	"io"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l1"
)

// Session is a connected controller with the loop running its connection.
type Session struct {
	Ref  l1.ControllerRef
	Conn l1.ControllerConn
	Loop *fx.Loop

	ctx    context.Context
	cancel func()
}

// Context is canceled when the session ends.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Close ends the session.
func (s *Session) Close() error {
	s.cancel()
	if closer, ok := s.Conn.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// DiscoverControllers discovers controllers, filter is optional.
func (s *Shell) DiscoverControllers(filter func(l1.ControllerInfo) bool) ([]l1.ControllerInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	infos, err := connector.Discover(context.Background())
	if err != nil || filter == nil {
		return infos, err
	}
	var matched []l1.ControllerInfo
	for _, info := range infos {
		if filter(info) {
			matched = append(matched, info)
		}
	}
	return matched, nil
}

// SelectController discovers controllers and asks for a choice if there
// are more than one. It returns nil if nothing is discovered.
func (s *Shell) SelectController(filter func(l1.ControllerInfo) bool) (*l1.ControllerInfo, error) {
	infos, err := s.DiscoverControllers(filter)
	if err != nil || len(infos) == 0 {
		return nil, err
	}
	if len(infos) == 1 {
		return &infos[0], nil
	}
	if !s.Interactive {
		return nil, fmt.Errorf("%d controllers discovered, specify one", len(infos))
	}
	choices := make([]string, 0, len(infos))
	for _, info := range infos {
		choices = append(choices, FormatInfo(info))
	}
	return &infos[s.Shell.MultiChoice(choices, "Which one to connect?")], nil
}

// Connect starts a session with the controller, ending the current one.
func (s *Shell) Connect(ref l1.ControllerRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	sess := &Session{Ref: ref, Loop: fx.NewLoop()}
	sess.ctx, sess.cancel = context.WithCancel(context.Background())
	if sess.Conn, err = connector.Connect(sess.ctx, ref); err != nil {
		sess.cancel()
		return err
	}
	if adder, ok := sess.Conn.(fx.LoopAdder); ok {
		sess.Loop.Add(adder)
	}
	sess.Loop.AddController(fx.PrLvIdle, fx.ControlFunc(s.printEvents))
	s.Disconnect()
	s.Session = sess
	go sess.Loop.Run(sess.ctx)
	s.Shell.SetPrompt(ref.Name() + " > ")
	return nil
}

// Disconnect ends the current session.
func (s *Shell) Disconnect() {
	if s.Session == nil {
		return
	}
	s.Session.Close()
	s.Session = nil
	s.Shell.SetPrompt(unconnectedPrompt)
}

// printEvents consumes events posted by the connection.
func (s *Shell) printEvents(cc fx.ControlContext) error {
	fx.TakeMessages(cc.Messages(), func(msg fx.Message) bool {
		if s.ShowEvents {
			if line, err := s.FormatMsg(msg); err == nil {
				s.Shell.Println(line)
			}
		}
		return true
	})
	return nil
}
