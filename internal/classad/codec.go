package classad

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// HistorySentinel terminates each record in a history log.
const HistorySentinel = "***"

var (
	ErrEmptyAd     = errors.New("classad has no attributes")
	ErrMalformedAd = errors.New("malformed classad")
	// ErrUnterminatedAd is returned, together with the attributes read, when input
	// ends before the sentinel line.
	ErrUnterminatedAd = errors.New("classad not terminated by sentinel")
)

// ParseAttributeLine parses a single "Name = expression" line.
func ParseAttributeLine(line string) (string, Expr, error) {
	line = strings.TrimSpace(line)
	i := 0
	for i < len(line) && isIdentPart(line[i]) {
		i++
	}
	name := line[:i]
	if !IsValidAttributeName(name) {
		return "", nil, errors.Wrapf(ErrMalformedAd, "bad attribute name in %q", line)
	}
	rest := strings.TrimLeft(line[i:], " \t")
	if !strings.HasPrefix(rest, "=") || strings.HasPrefix(rest, "==") {
		return "", nil, errors.Wrapf(ErrMalformedAd, "missing '=' in %q", line)
	}
	e, err := Parse(rest[1:])
	if err != nil {
		return "", nil, errors.Wrapf(ErrMalformedAd, "attribute %s: %v", name, err)
	}
	return name, e, nil
}

// ReadAd reads attribute lines until a line starting with sentinel. Blank lines and
// lines starting with '#' are skipped. An empty sentinel reads to end of input.
func ReadAd(r *bufio.Reader, sentinel string) (*ClassAd, error) {
	ad := NewClassAd()
	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, errors.WithStack(err)
		}
		if sentinel != "" && strings.HasPrefix(line, sentinel) {
			if ad.Len() == 0 {
				return nil, errors.WithStack(ErrEmptyAd)
			}
			return ad, nil
		}
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			name, e, perr := ParseAttributeLine(trimmed)
			if perr != nil {
				return nil, perr
			}
			ad.Insert(name, e)
		}
		if err == io.EOF {
			if ad.Len() == 0 {
				return nil, errors.WithStack(ErrEmptyAd)
			}
			if sentinel != "" {
				return ad, errors.WithStack(ErrUnterminatedAd)
			}
			return ad, nil
		}
	}
}

// WriteAd writes the local attributes of ad one per line, followed by the sentinel
// line when sentinel is not empty.
func WriteAd(w io.Writer, ad *ClassAd, sentinel string) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(ad.String())
	if sentinel != "" {
		bw.WriteString(sentinel)
		bw.WriteByte('\n')
	}
	return errors.WithStack(bw.Flush())
}
