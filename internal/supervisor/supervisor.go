// Package supervisor starts, signals and waits for the OS processes that back live jobs.
package supervisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

var (
	ErrNoCommand      = errors.New("job ad has no command")
	ErrUnknownProcess = errors.New("unknown process")
)

type Signal int

const (
	Terminate Signal = iota
	Kill
	Suspend
	Continue
)

func (s Signal) String() string {
	switch s {
	case Terminate:
		return "Terminate"
	case Kill:
		return "Kill"
	case Suspend:
		return "Suspend"
	case Continue:
		return "Continue"
	}
	return fmt.Sprintf("Signal(%d)", int(s))
}

// ExitStatus describes how a process ended. Code is -1 when the process was killed by a signal.
type ExitStatus struct {
	Code     int
	Signaled bool
	Signal   int
}

// Run identifies one execution of a job's command.
type Run struct {
	RunId   uuid.UUID
	Key     string
	Pid     int
	Started time.Time
}

// Supervisor is the process surface the job server drives.
type Supervisor interface {
	Start(key string, ad *classad.ClassAd) (Run, error)
	Signal(pid int, sig Signal) error
	Wait(ctx context.Context, pid int) (ExitStatus, error)
}

// Command extracts the executable, arguments and working directory from a job ad. The
// Arguments attribute takes precedence over the older whitespace separated Args.
func Command(ad *classad.ClassAd) (string, []string, string, error) {
	cmd, ok := ad.LookupString(jobattr.Cmd)
	if !ok || cmd == "" {
		return "", nil, "", ErrNoCommand
	}
	var args []string
	if arguments, ok := ad.LookupString(jobattr.Arguments); ok {
		split, err := SplitArguments(arguments)
		if err != nil {
			return "", nil, "", err
		}
		args = split
	} else if v1, ok := ad.LookupString(jobattr.Args); ok {
		args = strings.Fields(v1)
	}
	iwd, _ := ad.LookupString(jobattr.Iwd)
	return cmd, args, iwd, nil
}

// SplitArguments splits an Arguments string: words are separated by whitespace, single
// quotes group a word and a doubled single quote inside quotes is a literal quote.
func SplitArguments(s string) ([]string, error) {
	var args []string
	var current strings.Builder
	inWord, quoted := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quoted && c == '\'':
			if i+1 < len(s) && s[i+1] == '\'' {
				current.WriteByte('\'')
				i++
			} else {
				quoted = false
			}
		case quoted:
			current.WriteByte(c)
		case c == '\'':
			quoted, inWord = true, true
		case c == ' ' || c == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteByte(c)
			inWord = true
		}
	}
	if quoted {
		return nil, errors.Errorf("unterminated quote in arguments %q", s)
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}
