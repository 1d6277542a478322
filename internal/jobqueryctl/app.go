// Package jobqueryctl inspects job history logs offline, without a running job server.
package jobqueryctl

import (
	"io"
	"os"

	"github.com/cqnkjsx/htcondor/internal/common/schederrors"
)

const (
	OutputTable = "table"
	OutputYaml  = "yaml"
)

// App is the jobqueryctl application. Commands write their results to Out.
type App struct {
	Params *Params
	Out    io.Writer
}

type Params struct {
	// Output is the listing format, OutputTable or OutputYaml
	Output string
	// MaxRecordBytes bounds the read-back of a single history record; zero means unbounded
	MaxRecordBytes int64
	// InternCacheSize is the number of strings shared between scanned entries
	InternCacheSize uint32
}

// New returns an App writing to stdout with the default parameters.
func New() *App {
	return &App{
		Params: &Params{
			Output:          OutputTable,
			MaxRecordBytes:  1 << 20,
			InternCacheSize: 4096,
		},
		Out: os.Stdout,
	}
}

func (a *App) validateOutput() error {
	switch a.Params.Output {
	case OutputTable, OutputYaml:
		return nil
	}
	return &schederrors.ErrInvalidArgument{
		Name:    "output",
		Value:   a.Params.Output,
		Message: "expected table or yaml",
	}
}
