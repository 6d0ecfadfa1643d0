// Package sh is the interactive shell of command line tools. Command
// packages register ishell commands with AddCmds in their init.
package sh

import (
	"flag"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	env "github.com/robotalks/robotis.go/pkg/l1/env/connector"
)

// DefaultCommandTimeout is the default timeout waiting for a reply.
const DefaultCommandTimeout = 2 * time.Second

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

// Shell is an ishell with a controller session.
type Shell struct {
	// Interactive is false when only evaluating arguments.
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	// ShowEvents prints events received from the controller.
	ShowEvents bool
	// Timeout bounds waiting for a command reply.
	Timeout time.Duration

	Shell   *ishell.Shell
	Config  *env.Config
	Session *Session
}

var (
	evalOnly       bool
	outputJSON     bool
	showEvents     bool
	commandTimeout = DefaultCommandTimeout

	registered = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&EventsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluate arguments only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.BoolVar(&showEvents, "events", showEvents, "Print events from the controller.")
	flag.DurationVar(&commandTimeout, "timeout", commandTimeout, "Timeout waiting for command replies.")
}

// AddCmds registers commands, it's called in init.
func AddCmds(cmds ...*ishell.Cmd) {
	registered = append(registered, cmds...)
}

// New creates a shell with registered commands.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		ShowEvents:  showEvents,
		Timeout:     commandTimeout,
		Shell:       ishell.New(),
		Config:      conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range registered {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// WithAutoConnect connects Config.Ref before running.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Run evaluates args, or runs interactively without args.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Ref.IsValid() {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Ref.Name())
		}
		if err := s.Connect(s.Config.Ref); err != nil {
			log.Fatalf("connect %s: %v", s.Config.Ref.Name(), err)
		}
		defer s.Disconnect()
	}

	switch {
	case len(args) > 0:
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
	case s.Interactive:
		s.Shell.Run()
	default:
		log.Fatalln("command expected")
	}
}

// Main parses flags and runs the shell.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
