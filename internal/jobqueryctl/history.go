package jobqueryctl

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/common/schederrors"
	"github.com/cqnkjsx/htcondor/internal/common/stringinterner"
	"github.com/cqnkjsx/htcondor/internal/history"
	"github.com/cqnkjsx/htcondor/internal/job"
)

// HistoryList prints the index entry of every job recorded in file, restricted to one
// submission when submission is not empty.
func (a *App) HistoryList(file string, submission string) error {
	if err := a.validateOutput(); err != nil {
		return err
	}
	var entries []history.Entry
	err := a.scan(file, func(e history.Entry) error {
		if submission == "" || e.Submission == submission {
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if a.Params.Output == OutputYaml {
		docs := make([]yaml.MapSlice, 0, len(entries))
		for _, e := range entries {
			docs = append(docs, adToYaml(e.Summary()))
		}
		return a.writeYaml(docs)
	}

	w := tabwriter.NewWriter(a.Out, 1, 1, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tSTATUS\tSUBMISSION\tOWNER\tQDATE\tCMD")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			job.ProcKey(e.Cluster, e.Proc), e.Status, e.Submission, e.Owner, e.QDate, e.Cmd)
	}
	return errors.WithStack(w.Flush())
}

// HistoryShow prints the full ad of one job read back from file. A record that cannot be
// read is still shown, as an ad carrying the read error.
func (a *App) HistoryShow(file string, key string) error {
	if err := a.validateOutput(); err != nil {
		return err
	}
	if !job.IsJobKey(key) {
		return &schederrors.ErrInvalidArgument{Name: "key", Value: key, Message: "expected <cluster>.<proc>"}
	}
	var found *history.Entry
	err := a.scan(file, func(e history.Entry) error {
		if job.ProcKey(e.Cluster, e.Proc) == key {
			// a later record for the same job supersedes an earlier one
			entry := e
			found = &entry
		}
		return nil
	})
	if err != nil {
		return err
	}
	if found == nil {
		return &schederrors.ErrNotFound{Type: "job", Value: key}
	}

	ad := history.NewAdReader(a.Params.MaxRecordBytes).ReadAd(key, found.File, found.Offset)
	if a.Params.Output == OutputYaml {
		return a.writeYaml(adToYaml(ad))
	}
	return classad.WriteAd(a.Out, ad, "")
}

func (a *App) scan(file string, fn func(history.Entry) error) error {
	path, err := homedir.Expand(file)
	if err != nil {
		return &schederrors.ErrInvalidArgument{Name: "file", Value: file, Message: err.Error()}
	}
	scanner := history.NewScanner(stringinterner.New(a.Params.InternCacheSize))
	_, err = scanner.Scan(path, 0, fn)
	return errors.WithMessagef(err, "scanning %s", path)
}

func (a *App) writeYaml(v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = a.Out.Write(out)
	return errors.WithStack(err)
}

// adToYaml renders the evaluated attributes of ad in recorded order. Integers, reals and
// strings keep their type; any other value is written as its expression text.
func adToYaml(ad *classad.ClassAd) yaml.MapSlice {
	view := classad.NewAttributeView(ad)
	names := ad.Flatten().Names()
	doc := make(yaml.MapSlice, 0, len(names))
	for _, name := range names {
		attr, ok := view.Get(name)
		if !ok {
			continue
		}
		doc = append(doc, yaml.MapItem{Key: name, Value: yamlValue(attr)})
	}
	return doc
}

func yamlValue(attr classad.Attribute) interface{} {
	switch attr.Type {
	case classad.IntegerType:
		if i, err := strconv.ParseInt(attr.Value, 10, 64); err == nil {
			return i
		}
	case classad.FloatType:
		if f, err := strconv.ParseFloat(attr.Value, 64); err == nil {
			return f
		}
	case classad.StringType:
		return attr.Value
	}
	return attr.Value
}
