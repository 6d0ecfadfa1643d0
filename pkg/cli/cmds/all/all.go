// Package all registers all shell command sets.
package all

import (
	_ "github.com/robotalks/robotis.go/pkg/cli/cmds/servo"
)
