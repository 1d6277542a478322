package history

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

var (
	ErrOpen = errors.New("unable to open history file")
	ErrSeek = errors.New("bad seek in history file")
	// ErrRecordTooLarge is returned when no sentinel is found within the read limit.
	ErrRecordTooLarge = errors.New("history record exceeds read limit")
)

// ReadAdAt reads the single record starting at offset in file. At most maxBytes are
// read; a non-positive maxBytes means no limit.
func ReadAdAt(file string, offset int64, maxBytes int64) (*classad.ClassAd, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(ErrOpen, "%s: %v", file, err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, errors.Wrapf(ErrSeek, "%s at %d: %v", file, offset, err)
	}
	var r io.Reader = f
	var limited *io.LimitedReader
	if maxBytes > 0 {
		limited = &io.LimitedReader{R: f, N: maxBytes}
		r = limited
	}
	ad, err := classad.ReadAd(bufio.NewReader(r), classad.HistorySentinel)
	if err != nil && limited != nil && limited.N == 0 {
		return nil, errors.Wrapf(ErrRecordTooLarge, "%s at %d: limit %d bytes", file, offset, maxBytes)
	}
	if errors.Is(err, classad.ErrUnterminatedAd) {
		// the final record of a log may lack its sentinel
		return ad, nil
	}
	return ad, err
}

// AdReader reconstructs full job ads from history logs without ever failing: a record
// that cannot be read yields an ad holding only a JOB_AD_ERROR attribute.
type AdReader struct {
	maxBytes int64
}

func NewAdReader(maxBytes int64) *AdReader {
	return &AdReader{maxBytes: maxBytes}
}

func (r *AdReader) ReadAd(key string, file string, offset int64) *classad.ClassAd {
	ad, err := ReadAdAt(file, offset, r.maxBytes)
	if err == nil {
		return ad
	}

	var text string
	switch {
	case errors.Is(err, ErrOpen):
		text = fmt.Sprintf("unable to open history file %s", file)
		log.Warn(text)
	case errors.Is(err, ErrSeek):
		text = fmt.Sprintf("bad seek in %s at %d", file, offset)
		log.Warn(text)
	case errors.Is(err, classad.ErrEmptyAd):
		text = fmt.Sprintf("empty ad for job '%s' in %s", key, file)
		log.Debug(text)
	default:
		text = fmt.Sprintf("malformed ad for job '%s' in %s", key, file)
		log.WithError(err).Debug(text)
	}
	diagnostic := classad.NewClassAd()
	diagnostic.AssignString(jobattr.JobAdError, text)
	return diagnostic
}
