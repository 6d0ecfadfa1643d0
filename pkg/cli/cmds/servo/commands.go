// Package servo provides shell commands for the servo controller. Angles and
// speeds are entered in degrees and sent in radians.
package servo

import (
	"flag"
	"fmt"
	"io/ioutil"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/robotis.go/pkg/cli/sh"
	"github.com/robotalks/robotis.go/pkg/l0/robotis"
	"github.com/robotalks/robotis.go/pkg/l1/msgs"
)

// DefaultMoveWait is added to the command timeout for waiting moves without
// an explicit timeout.
const DefaultMoveWait = 10 * time.Second

func parseID(args []string) (uint32, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("ID required")
	}
	id, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || id > robotis.MaxID {
		return 0, fmt.Errorf("Invalid ID: %s", args[0])
	}
	return uint32(id), nil
}

func parseDegrees(name, arg string) (float32, error) {
	val, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("Invalid %s: %v", name, err)
	}
	return float32(robotis.Radians(val)), nil
}

func parseOnOff(arg string) (bool, error) {
	switch arg {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("Invalid torque state: %s", arg)
}

// parseMove parses [-w] [-t TIMEOUT] ID ANGLE [SPEED]. extra is the time
// the reply may take beyond the shell timeout.
func parseMove(args []string) (msg *msgs.ServoMove, extra time.Duration, err error) {
	fs := flag.NewFlagSet("servo.move", flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	wait := fs.Bool("w", false, "Wait until the servo stops.")
	timeout := fs.Duration("t", 0, "Timeout of waiting.")
	if err = fs.Parse(args); err != nil {
		return
	}
	args = fs.Args()
	msg = &msgs.ServoMove{Wait: *wait, TimeoutMs: uint32(*timeout / time.Millisecond)}
	if msg.ID, err = parseID(args); err != nil {
		return nil, 0, err
	}
	if len(args) < 2 {
		return nil, 0, fmt.Errorf("ANGLE required")
	}
	if msg.Angle, err = parseDegrees("ANGLE", args[1]); err != nil {
		return nil, 0, err
	}
	if len(args) > 2 {
		if msg.Velocity, err = parseDegrees("SPEED", args[2]); err != nil {
			return nil, 0, err
		}
	}
	if msg.Wait {
		if extra = *timeout; extra == 0 {
			extra = DefaultMoveWait
		}
	}
	return msg, extra, nil
}

var (
	// ServoProbeCmd exposes ServoProbe command.
	ServoProbeCmd = ishell.Cmd{
		Name:    "servo.probe",
		Aliases: []string{"sp"},
		Help:    "ID",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			id, err := parseID(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, &msgs.ServoProbe{ID: id})
		}),
	}

	// ServoStatusCmd exposes ServoStatusQuery command.
	ServoStatusCmd = ishell.Cmd{
		Name:    "servo.status",
		Aliases: []string{"ss"},
		Help:    "ID",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			id, err := parseID(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, &msgs.ServoStatusQuery{ID: id})
		}),
	}

	// ServoMoveCmd exposes ServoMove command.
	ServoMoveCmd = ishell.Cmd{
		Name:    "servo.move",
		Aliases: []string{"sm"},
		Help:    "[-w] [-t TIMEOUT] ID ANGLE(degrees) [SPEED(degrees/s)]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			msg, extra, err := parseMove(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommandWithin(c, msg, extra)
		}),
	}

	// ServoSpeedCmd exposes ServoSetVelocity command.
	ServoSpeedCmd = ishell.Cmd{
		Name:    "servo.speed",
		Aliases: []string{"sv"},
		Help:    "ID SPEED(degrees/s)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			msg, err := parseSpeed(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg)
		}),
	}

	// ServoTorqueCmd exposes ServoTorque command.
	ServoTorqueCmd = ishell.Cmd{
		Name:    "servo.torque",
		Aliases: []string{"st"},
		Help:    "ID on|off",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			msg, err := parseTorque(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg)
		}),
	}
)

func parseSpeed(args []string) (*msgs.ServoSetVelocity, error) {
	id, err := parseID(args)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("SPEED required")
	}
	msg := &msgs.ServoSetVelocity{ID: id}
	if msg.Velocity, err = parseDegrees("SPEED", args[1]); err != nil {
		return nil, err
	}
	return msg, nil
}

func parseTorque(args []string) (*msgs.ServoTorque, error) {
	id, err := parseID(args)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("on|off required")
	}
	msg := &msgs.ServoTorque{ID: id}
	if msg.Enable, err = parseOnOff(args[1]); err != nil {
		return nil, err
	}
	return msg, nil
}

func init() {
	sh.AddCmds(
		&ServoProbeCmd,
		&ServoStatusCmd,
		&ServoMoveCmd,
		&ServoSpeedCmd,
		&ServoTorqueCmd,
	)
}
