package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"strconv"
	"strings"

	"github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l1"
	env "github.com/robotalks/robotis.go/pkg/l1/env/controller"
	"github.com/robotalks/robotis.go/pkg/servoctl"
)

func init() {
	env.SetControllerType("servo", l1.ControllerMeta{Description: "Robotis Servo Bus"})
	env.SetupFlags()
	servoctl.SetupFlags()
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	env := conf.MustNewEnv()
	ctl := servoctl.NewConfig().MustNewController(env.Registrar)
	ids := make([]string, 0, len(ctl.IDs()))
	for _, id := range ctl.IDs() {
		ids = append(ids, strconv.Itoa(id))
	}
	env.SetLabel("servos", strings.Join(ids, ","))
	framework.NewLoop().Add(env, ctl).RunOrFail()
}
