// servocli is the interactive shell commanding servo controllers.
package main

import (
	"github.com/robotalks/robotis.go/pkg/cli/sh"
	_ "github.com/robotalks/robotis.go/pkg/cli/cmds/all"
	env "github.com/robotalks/robotis.go/pkg/l1/env/connector"
)

//go-build: CGO_ENABLED=0

func main() {
	env.SetupFlags()
	sh.Main()
}
