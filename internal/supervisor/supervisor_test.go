package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

func TestSplitArguments(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected []string
		err      bool
	}{
		"empty":            {input: "", expected: nil},
		"words":            {input: "  -n 3\t-v ", expected: []string{"-n", "3", "-v"}},
		"quoted word":      {input: "-c 'exit 3'", expected: []string{"-c", "exit 3"}},
		"escaped quote":    {input: "'it''s' x", expected: []string{"it's", "x"}},
		"empty quoted":     {input: "a '' b", expected: []string{"a", "", "b"}},
		"adjacent quoting": {input: "pre'fix suf'", expected: []string{"prefix suf"}},
		"unterminated":     {input: "'oops", err: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			args, err := SplitArguments(tc.input)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, args)
		})
	}
}

func TestCommand(t *testing.T) {
	tests := map[string]struct {
		attrs map[string]string
		cmd   string
		args  []string
		iwd   string
		err   error
	}{
		"arguments win over args": {
			attrs: map[string]string{jobattr.Cmd: "/bin/echo", jobattr.Arguments: "'a b' c", jobattr.Args: "x y"},
			cmd:   "/bin/echo",
			args:  []string{"a b", "c"},
		},
		"old style args": {
			attrs: map[string]string{jobattr.Cmd: "/bin/echo", jobattr.Args: "x  y", jobattr.Iwd: "/tmp"},
			cmd:   "/bin/echo",
			args:  []string{"x", "y"},
			iwd:   "/tmp",
		},
		"no command": {
			attrs: map[string]string{jobattr.Args: "x"},
			err:   ErrNoCommand,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ad := classad.NewClassAd()
			for k, v := range tc.attrs {
				ad.AssignString(k, v)
			}
			cmd, args, iwd, err := Command(ad)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cmd, cmd)
			assert.Equal(t, tc.args, args)
			assert.Equal(t, tc.iwd, iwd)
		})
	}
}
