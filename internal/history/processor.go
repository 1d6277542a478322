package history

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// BaseName is the name of the active history log; rotated logs carry a suffix, history.<suffix>.
const BaseName = "history"

// Sink receives the entries discovered by a Processor.
type Sink interface {
	AddHistoryEntry(entry Entry) error
}

// Processor follows the history logs of a directory, remembering how far each file has
// been read. A file that shrinks is assumed to have been replaced and is read again from
// the start.
type Processor struct {
	dir     string
	scanner *Scanner
	sink    Sink
	offsets map[string]int64
}

func NewProcessor(dir string, scanner *Scanner, sink Sink) *Processor {
	return &Processor{
		dir:     dir,
		scanner: scanner,
		sink:    sink,
		offsets: map[string]int64{},
	}
}

// Files lists the history logs in dir: rotated logs in name order, then the active log.
func Files(dir string) ([]string, error) {
	rotated, err := filepath.Glob(filepath.Join(dir, BaseName+".*"))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sort.Strings(rotated)
	files := rotated
	active := filepath.Join(dir, BaseName)
	if _, err := os.Stat(active); err == nil {
		files = append(files, active)
	}
	return files, nil
}

// Poll scans every history log for records added since the last poll. A failure on one
// file does not stop the others; all failures are returned together.
func (p *Processor) Poll() error {
	files, err := Files(p.dir)
	if err != nil {
		return err
	}
	var result *multierror.Error
	seen := make(map[string]bool, len(files))
	for _, file := range files {
		seen[file] = true
		if err := p.pollFile(file); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for file := range p.offsets {
		if !seen[file] {
			delete(p.offsets, file)
		}
	}
	return result.ErrorOrNil()
}

func (p *Processor) pollFile(file string) error {
	info, err := os.Stat(file)
	if err != nil {
		return errors.WithStack(err)
	}
	offset := p.offsets[file]
	if info.Size() < offset {
		log.Infof("history file %s shrank from %d to %d bytes; rereading", file, offset, info.Size())
		offset = 0
	}
	if info.Size() == offset {
		return nil
	}
	next, err := p.scanner.Scan(file, offset, p.sink.AddHistoryEntry)
	p.offsets[file] = next
	if err != nil {
		return errors.WithMessagef(err, "processing %s", file)
	}
	return nil
}

// Offset reports how far file has been processed.
func (p *Processor) Offset(file string) int64 {
	return p.offsets[file]
}
