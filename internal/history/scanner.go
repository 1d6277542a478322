package history

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/common/stringinterner"
)

// Scanner walks the records of a history file, producing an index Entry for each.
type Scanner struct {
	interner *stringinterner.StringInterner
}

func NewScanner(interner *stringinterner.StringInterner) *Scanner {
	return &Scanner{interner: interner}
}

// Scan reads the complete records of file from offset onwards and calls fn for every
// record that describes a job. It returns the offset following the last complete
// record, so that a record still being written is picked up by the next call.
// Records that fail to parse are logged and skipped.
func (s *Scanner) Scan(file string, offset int64, fn func(Entry) error) (int64, error) {
	f, err := os.Open(file)
	if err != nil {
		return offset, errors.Wrapf(ErrOpen, "%s: %v", file, err)
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, errors.Wrapf(ErrSeek, "%s at %d: %v", file, offset, err)
	}

	r := bufio.NewReader(f)
	pos := offset
	recordStart := offset
	ad := classad.NewClassAd()
	malformed := false
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			// an unterminated line or record is left for the next scan
			return recordStart, nil
		}
		if err != nil {
			return recordStart, errors.WithStack(err)
		}
		pos += int64(len(line))

		if strings.HasPrefix(line, classad.HistorySentinel) {
			if !malformed && ad.Len() > 0 {
				if err := s.emit(ad, file, recordStart, fn); err != nil {
					return recordStart, err
				}
			}
			recordStart = pos
			ad = classad.NewClassAd()
			malformed = false
			continue
		}
		trimmed := strings.TrimSpace(line)
		if malformed || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		name, e, perr := classad.ParseAttributeLine(trimmed)
		if perr != nil {
			log.WithError(perr).Warnf("skipping malformed history record in %s at %d", file, recordStart)
			malformed = true
			continue
		}
		ad.Insert(name, e)
	}
}

func (s *Scanner) emit(ad *classad.ClassAd, file string, offset int64, fn func(Entry) error) error {
	entry, err := EntryFromAd(ad, file, offset, s.interner)
	if err != nil {
		log.WithError(err).Debugf("ignoring history record in %s at %d", file, offset)
		return nil
	}
	return fn(entry)
}
