package main

import (
	"github.com/robotalks/hamster/pkg/cli/sh"

	_ "github.com/robotalks/hamster/pkg/cli/cmds/flash"
	_ "github.com/robotalks/hamster/pkg/cli/cmds/imu"
)

func main() {
	sh.Main()
}
