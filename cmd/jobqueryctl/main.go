package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/cqnkjsx/htcondor/cmd/jobqueryctl/cmd"
	"github.com/cqnkjsx/htcondor/internal/common"
	"github.com/cqnkjsx/htcondor/internal/common/schederrors"
)

func main() {
	common.ConfigureCommandLineLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(schederrors.ExitCode(err))
	}
}
