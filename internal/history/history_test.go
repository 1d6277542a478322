package history

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/common/stringinterner"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

func jobRecord(cluster, proc int, owner string) *classad.ClassAd {
	ad := classad.NewClassAd()
	ad.AssignInt(jobattr.ClusterId, int64(cluster))
	ad.AssignInt(jobattr.ProcId, int64(proc))
	ad.AssignString(jobattr.GlobalJobId, fmt.Sprintf("schedd#%d.%d#1700000000", cluster, proc))
	ad.AssignInt(jobattr.QDate, 1700000000)
	ad.AssignInt(jobattr.EnteredCurrentStatus, 1700000100)
	ad.AssignInt(jobattr.JobStatus, int64(jobattr.Completed))
	ad.AssignString(jobattr.Owner, owner)
	ad.AssignString(jobattr.Cmd, "/bin/sleep")
	ad.AssignString(jobattr.Arguments, "10")
	return ad
}

// writeHistory writes the records to path and returns the offset of each record.
func writeHistory(t *testing.T, path string, records ...*classad.ClassAd) []int64 {
	var buf bytes.Buffer
	offsets := make([]int64, 0, len(records))
	for _, ad := range records {
		offsets = append(offsets, int64(buf.Len()))
		require.NoError(t, classad.WriteAd(&buf, ad, classad.HistorySentinel))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return offsets
}

func appendFile(t *testing.T, path string, text string) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestEntryFromAd(t *testing.T) {
	ad := jobRecord(5, 1, "alice")
	ad.AssignString(jobattr.HoldReason, "out of disk")

	entry, err := EntryFromAd(ad, "/var/log/history", 42, stringinterner.New(10))
	require.NoError(t, err)
	assert.Equal(t, Entry{
		Cluster:              5,
		Proc:                 1,
		GlobalJobId:          "schedd#5.1#1700000000",
		QDate:                1700000000,
		EnteredCurrentStatus: 1700000100,
		Status:               jobattr.Completed,
		Submission:           "alice#5",
		Owner:                "alice",
		Cmd:                  "/bin/sleep",
		Arguments:            "10",
		HoldReason:           "out of disk",
		File:                 "/var/log/history",
		Offset:               42,
	}, entry)

	ad.AssignString(jobattr.Submission, "nightly")
	entry, err = EntryFromAd(ad, "/var/log/history", 42, nil)
	require.NoError(t, err)
	assert.Equal(t, "nightly", entry.Submission)

	_, err = EntryFromAd(classad.NewClassAd(), "f", 0, nil)
	assert.True(t, errors.Is(err, ErrNotAJob))
}

func TestEntrySummary(t *testing.T) {
	entry := Entry{Cluster: 5, Proc: 0, Status: jobattr.Completed, Owner: "alice", Submission: "sub-A", Cmd: "/bin/true", Args: "-v"}
	summary := entry.Summary()
	assert.Equal(t, []string{
		jobattr.GlobalJobId, jobattr.ClusterId, jobattr.ProcId, jobattr.QDate, jobattr.JobStatus,
		jobattr.EnteredCurrentStatus, jobattr.Submission, jobattr.Owner, jobattr.Cmd, jobattr.Args,
	}, summary.Names())
	status, _ := summary.LookupInteger(jobattr.JobStatus)
	assert.Equal(t, int64(jobattr.Completed), status)
}

func TestReadAdAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), BaseName)
	offsets := writeHistory(t, path, jobRecord(5, 0, "alice"), jobRecord(5, 1, "alice"))

	ad, err := ReadAdAt(path, offsets[1], 0)
	require.NoError(t, err)
	proc, _ := ad.LookupInteger(jobattr.ProcId)
	assert.Equal(t, int64(1), proc)

	again, err := ReadAdAt(path, offsets[1], 0)
	require.NoError(t, err)
	assert.Equal(t, ad.String(), again.String())
}

func TestReadAdAt_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, BaseName)
	offsets := writeHistory(t, path, jobRecord(5, 0, "alice"))
	info, err := os.Stat(path)
	require.NoError(t, err)

	tests := map[string]struct {
		file     string
		offset   int64
		maxBytes int64
		expected error
	}{
		"missing file":    {file: filepath.Join(dir, "nope"), expected: ErrOpen},
		"negative offset": {file: path, offset: -1, expected: ErrSeek},
		"past the end":    {file: path, offset: info.Size(), expected: classad.ErrEmptyAd},
		"mid value":       {file: path, offset: offsets[0] + 45, expected: classad.ErrMalformedAd},
		"limit too small": {file: path, offset: offsets[0], maxBytes: 20, expected: ErrRecordTooLarge},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadAdAt(tc.file, tc.offset, tc.maxBytes)
			assert.True(t, errors.Is(err, tc.expected), "unexpected error %v", err)
		})
	}
}

func TestAdReader_FailSoft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, BaseName)
	offsets := writeHistory(t, path, jobRecord(5, 0, "alice"))
	reader := NewAdReader(1 << 20)

	ad := reader.ReadAd("5.0", path, offsets[0])
	_, hasError := ad.Lookup(jobattr.JobAdError)
	assert.False(t, hasError)
	assert.Equal(t, jobRecord(5, 0, "alice").Len(), ad.Len())

	require.NoError(t, os.Remove(path))
	ad = reader.ReadAd("5.0", path, offsets[0])
	assert.Equal(t, []string{jobattr.JobAdError}, ad.Names())
	text, _ := ad.LookupString(jobattr.JobAdError)
	assert.Equal(t, "unable to open history file "+path, text)
}

func TestAdReader_Diagnostics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, BaseName)
	require.NoError(t, os.WriteFile(path, []byte("***\nClusterId = (\n***\n"), 0o644))
	reader := NewAdReader(0)

	tests := map[string]struct {
		offset   int64
		expected string
	}{
		"empty":     {offset: 0, expected: "empty ad for job '5.0' in " + path},
		"malformed": {offset: 4, expected: "malformed ad for job '5.0' in " + path},
		"bad seek":  {offset: -5, expected: fmt.Sprintf("bad seek in %s at -5", path)},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ad := reader.ReadAd("5.0", path, tc.offset)
			assert.Equal(t, 1, ad.Len())
			text, ok := ad.LookupString(jobattr.JobAdError)
			assert.True(t, ok)
			assert.Equal(t, tc.expected, text)
		})
	}
}

func TestScanner_Scan(t *testing.T) {
	path := filepath.Join(t.TempDir(), BaseName)
	offsets := writeHistory(t, path, jobRecord(5, 0, "alice"), jobRecord(5, 1, "alice"))
	info, err := os.Stat(path)
	require.NoError(t, err)

	var entries []Entry
	next, err := NewScanner(nil).Scan(path, 0, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, info.Size(), next)
	require.Len(t, entries, 2)
	assert.Equal(t, offsets[0], entries[0].Offset)
	assert.Equal(t, offsets[1], entries[1].Offset)
	assert.Equal(t, 1, entries[1].Proc)
	assert.Equal(t, path, entries[1].File)
}

func TestScanner_PartialRecordLeftForNextScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), BaseName)
	writeHistory(t, path, jobRecord(5, 0, "alice"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	appendFile(t, path, "ClusterId = 6\nProcId = 0\nOwner = \"bob\"\n")

	scanner := NewScanner(nil)
	var entries []Entry
	collect := func(e Entry) error {
		entries = append(entries, e)
		return nil
	}
	next, err := scanner.Scan(path, 0, collect)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), next)
	assert.Len(t, entries, 1)

	appendFile(t, path, "***\n")
	next, err = scanner.Scan(path, next, collect)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 6, entries[1].Cluster)
	assert.Equal(t, info.Size(), entries[1].Offset)
	assert.Equal(t, "bob#6", entries[1].Submission)

	final, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, final.Size(), next)
}

func TestScanner_SkipsMalformedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), BaseName)
	text := "ClusterId = 1\nProcId = (\n***\n" +
		"Owner = \"nobody\"\n***\n" +
		"ClusterId = 2\nProcId = 0\n***\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	var entries []Entry
	_, err := NewScanner(nil).Scan(path, 0, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Cluster)
}

func TestScanner_SinkErrorRetriesRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), BaseName)
	offsets := writeHistory(t, path, jobRecord(5, 0, "alice"), jobRecord(5, 1, "alice"))

	calls := 0
	next, err := NewScanner(nil).Scan(path, 0, func(e Entry) error {
		calls++
		if e.Proc == 1 {
			return errors.New("sink unavailable")
		}
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, offsets[1], next)
}

type recordingSink struct {
	entries []Entry
}

func (s *recordingSink) AddHistoryEntry(entry Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func TestProcessor_Poll(t *testing.T) {
	dir := t.TempDir()
	rotated := filepath.Join(dir, BaseName+".20240101T000000")
	active := filepath.Join(dir, BaseName)
	writeHistory(t, rotated, jobRecord(1, 0, "alice"))
	writeHistory(t, active, jobRecord(2, 0, "bob"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0o644))

	files, err := Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{rotated, active}, files)

	sink := &recordingSink{}
	p := NewProcessor(dir, NewScanner(stringinterner.New(100)), sink)
	require.NoError(t, p.Poll())
	require.Len(t, sink.entries, 2)
	assert.Equal(t, 1, sink.entries[0].Cluster)
	assert.Equal(t, 2, sink.entries[1].Cluster)

	// nothing new
	require.NoError(t, p.Poll())
	assert.Len(t, sink.entries, 2)

	var buf bytes.Buffer
	require.NoError(t, classad.WriteAd(&buf, jobRecord(3, 0, "carol"), classad.HistorySentinel))
	appendFile(t, active, buf.String())
	require.NoError(t, p.Poll())
	require.Len(t, sink.entries, 3)
	assert.Equal(t, 3, sink.entries[2].Cluster)
}

func TestProcessor_RereadsShrunkFile(t *testing.T) {
	dir := t.TempDir()
	active := filepath.Join(dir, BaseName)
	writeHistory(t, active, jobRecord(1, 0, "alice"), jobRecord(1, 1, "alice"))

	sink := &recordingSink{}
	p := NewProcessor(dir, NewScanner(nil), sink)
	require.NoError(t, p.Poll())
	assert.Len(t, sink.entries, 2)

	writeHistory(t, active, jobRecord(7, 0, "dave"))
	require.NoError(t, p.Poll())
	require.Len(t, sink.entries, 3)
	assert.Equal(t, 7, sink.entries[2].Cluster)
	assert.Equal(t, int64(0), sink.entries[2].Offset)
}

func TestProcessor_EmptyDirectory(t *testing.T) {
	p := NewProcessor(t.TempDir(), NewScanner(nil), &recordingSink{})
	assert.NoError(t, p.Poll())
}
