package main

import (
	"os"

	"github.com/firefly-engineering/fixture-ctl/cmd"
	"github.com/firefly-engineering/fixture-ctl/internal/errors"
	"github.com/firefly-engineering/fixture-ctl/internal/logging"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logging.UserError("%s", errors.GuidanceFor(err))
		os.Exit(errors.GetExitCode(err))
	}
}
