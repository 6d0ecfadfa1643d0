package sh

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/robotis.go/pkg/l1"
)

// Commands available without a connection.
var (
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "list controllers",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infos, err := s.DiscoverControllers(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if infos == nil {
					infos = []l1.ControllerInfo{}
				}
				out, err := json.Marshal(infos)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infos) == 0 {
				c.Println("No controllers found")
			}
			for _, info := range infos {
				c.Println(FormatInfo(info))
			}
		},
	}

	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "connect a controller: [TYPE/ID | TYPE ID | TYPE]",
		Func: func(c *ishell.Context) {
			ref, err := refFromArgs(ShellFrom(c), c.Args)
			if err == nil {
				err = ShellFrom(c).Connect(ref)
			}
			if err != nil {
				c.Err(err)
			}
		},
	}

	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "disconnect current controller",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	EventsCmd = ishell.Cmd{
		Name: "events",
		Help: "print events: on|off",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				switch c.Args[0] {
				case "on":
					s.ShowEvents = true
				case "off":
					s.ShowEvents = false
				default:
					c.Err(fmt.Errorf("on|off expected"))
					return
				}
			}
			c.Printf("events %v\n", s.ShowEvents)
		},
	}
)

// refFromArgs resolves the controller from connect arguments, discovering
// when only the type or nothing is given.
func refFromArgs(s *Shell, args []string) (l1.ControllerRef, error) {
	switch {
	case len(args) >= 2:
		return l1.ControllerRef{Type: args[0], ID: args[1]}, nil
	case len(args) == 1 && strings.Contains(args[0], "/"):
		return l1.ParseRef(args[0])
	}
	var filter func(l1.ControllerInfo) bool
	if len(args) == 1 {
		filter = func(info l1.ControllerInfo) bool { return info.Ref.Type == args[0] }
	}
	info, err := s.SelectController(filter)
	if err != nil {
		return l1.ControllerRef{}, err
	}
	if info == nil {
		return l1.ControllerRef{}, fmt.Errorf("no controller discovered")
	}
	return info.Ref, nil
}
