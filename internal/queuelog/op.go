// Package queuelog tails the job queue transaction log, the source of live job updates.
package queuelog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type OpType int

const (
	OpNewClassAd       OpType = 101
	OpDestroyClassAd   OpType = 102
	OpSetAttribute     OpType = 103
	OpDeleteAttribute  OpType = 104
	OpBeginTransaction OpType = 105
	OpEndTransaction   OpType = 106
)

var ErrMalformedOp = errors.New("malformed queue log entry")

func (t OpType) String() string {
	switch t {
	case OpNewClassAd:
		return "NewClassAd"
	case OpDestroyClassAd:
		return "DestroyClassAd"
	case OpSetAttribute:
		return "SetAttribute"
	case OpDeleteAttribute:
		return "DeleteAttribute"
	case OpBeginTransaction:
		return "BeginTransaction"
	case OpEndTransaction:
		return "EndTransaction"
	}
	return fmt.Sprintf("OpType(%d)", int(t))
}

// Op is one entry of the queue log.
type Op struct {
	Type OpType
	Key  string
	// Name is the attribute of a set or delete.
	Name string
	// Value is the unparsed expression text of a set.
	Value      string
	MyType     string
	TargetType string
}

// ParseOp parses a single log line. Op codes this package does not know are returned with
// only Type set so that the caller can skip them.
func ParseOp(line string) (Op, error) {
	code, rest := cut(strings.TrimSpace(line))
	n, err := strconv.Atoi(code)
	if err != nil {
		return Op{}, errors.Wrapf(ErrMalformedOp, "bad op code %q", code)
	}
	op := Op{Type: OpType(n)}
	switch op.Type {
	case OpNewClassAd:
		fields := strings.Fields(rest)
		if len(fields) < 1 {
			return Op{}, errors.Wrapf(ErrMalformedOp, "%s without key", op.Type)
		}
		op.Key = fields[0]
		if len(fields) > 1 {
			op.MyType = fields[1]
		}
		if len(fields) > 2 {
			op.TargetType = fields[2]
		}
	case OpDestroyClassAd:
		op.Key, _ = cut(rest)
		if op.Key == "" {
			return Op{}, errors.Wrapf(ErrMalformedOp, "%s without key", op.Type)
		}
	case OpSetAttribute:
		op.Key, rest = cut(rest)
		op.Name, op.Value = cut(rest)
		if op.Key == "" || op.Name == "" || op.Value == "" {
			return Op{}, errors.Wrapf(ErrMalformedOp, "%s needs key, name and value", op.Type)
		}
	case OpDeleteAttribute:
		op.Key, rest = cut(rest)
		op.Name, _ = cut(rest)
		if op.Key == "" || op.Name == "" {
			return Op{}, errors.Wrapf(ErrMalformedOp, "%s needs key and name", op.Type)
		}
	}
	return op, nil
}

// cut splits s at the first run of spaces.
func cut(s string) (string, string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}
