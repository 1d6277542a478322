package main

import (
	"os"

	"github.com/cqnkjsx/htcondor/cmd/jobserver/cmd"
	"github.com/cqnkjsx/htcondor/internal/common"
)

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
