package queuelog

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Consumer receives the committed operations of a queue log in log order.
type Consumer interface {
	NewClassAd(key, myType, targetType string) error
	DestroyClassAd(key string) error
	SetAttribute(key, name, value string) error
	DeleteAttribute(key, name string) error
	// Reset is called before the log is replayed from the start, after it was truncated
	// or replaced.
	Reset()
}

// Reader tails a queue log. Each Poll applies every complete operation written since the
// previous one. Operations inside a transaction are held back until the transaction ends,
// so the offset always points at a line boundary outside of any transaction.
type Reader struct {
	path     string
	offset   int64
	consumer Consumer
}

func NewReader(path string, consumer Consumer) *Reader {
	return &Reader{path: path, consumer: consumer}
}

func (r *Reader) Offset() int64 {
	return r.offset
}

// Poll reads the log from the current offset and returns the number of operations applied.
func (r *Reader) Poll() (int, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if info.Size() < r.offset {
		log.Infof("queue log %s shrank from %d to %d bytes; replaying from the start", r.path, r.offset, info.Size())
		r.offset = 0
		r.consumer.Reset()
	}
	if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
		return 0, errors.WithStack(err)
	}

	applied := 0
	pos := r.offset
	var pending []Op
	inTransaction := false
	br := bufio.NewReader(f)
	for {
		line, err := br.ReadString('\n')
		if err == io.EOF {
			// partial lines and open transactions are left for the next poll
			return applied, nil
		} else if err != nil {
			return applied, errors.WithStack(err)
		}
		pos += int64(len(line))

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			if !inTransaction {
				r.offset = pos
			}
			continue
		}
		op, err := ParseOp(line)
		if err != nil {
			log.WithError(err).Warnf("skipping queue log line ending at offset %d in %s", pos, r.path)
			if !inTransaction {
				r.offset = pos
			}
			continue
		}

		switch op.Type {
		case OpBeginTransaction:
			if inTransaction {
				log.Warnf("nested transaction in %s at offset %d", r.path, pos)
			}
			inTransaction = true
			pending = pending[:0]
		case OpEndTransaction:
			if !inTransaction {
				log.Warnf("end of transaction without a begin in %s at offset %d", r.path, pos)
			}
			for _, o := range pending {
				if r.apply(o) {
					applied++
				}
			}
			pending = pending[:0]
			inTransaction = false
			r.offset = pos
		default:
			if inTransaction {
				pending = append(pending, op)
				continue
			}
			if r.apply(op) {
				applied++
			}
			r.offset = pos
		}
	}
}

// apply hands op to the consumer and reports whether the op was one it handles.
func (r *Reader) apply(op Op) bool {
	var err error
	switch op.Type {
	case OpNewClassAd:
		err = r.consumer.NewClassAd(op.Key, op.MyType, op.TargetType)
	case OpDestroyClassAd:
		err = r.consumer.DestroyClassAd(op.Key)
	case OpSetAttribute:
		err = r.consumer.SetAttribute(op.Key, op.Name, op.Value)
	case OpDeleteAttribute:
		err = r.consumer.DeleteAttribute(op.Key, op.Name)
	default:
		log.Debugf("ignoring queue log op %s", op.Type)
		return false
	}
	if err != nil {
		log.WithError(err).Warnf("unable to apply %s for '%s'", op.Type, op.Key)
	}
	return true
}
