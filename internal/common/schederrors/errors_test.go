package schederrors

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindFromError(t *testing.T) {
	tests := map[string]struct {
		err  error
		want Kind
	}{
		"ErrAlreadyExists":                {&ErrAlreadyExists{}, KindAlreadyExists},
		"ErrNotFound":                     {&ErrNotFound{}, KindNotFound},
		"ErrInvalidArgument":              {&ErrInvalidArgument{}, KindInvalidArgument},
		"pkg.Error => ErrAlreadyExists":   {errors.WithMessage(&ErrAlreadyExists{}, "foo"), KindAlreadyExists},
		"pkg.Error => ErrNotFound":        {errors.WithStack(&ErrNotFound{}), KindNotFound},
		"pkg.Error => ErrInvalidArgument": {errors.WithMessage(&ErrInvalidArgument{}, "foo"), KindInvalidArgument},
		"multierror => ErrNotFound":       {multierror.Append(errors.New("foo"), &ErrNotFound{}), KindNotFound},
		"pkg.Error":                       {errors.New("foo"), KindUnknown},
		"nil":                             {nil, KindOK},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindFromError(tc.err))
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(&ErrNotFound{Type: "job", Value: "5.0"}))
	assert.Equal(t, 3, ExitCode(&ErrInvalidArgument{Name: "key", Value: "x"}))
	assert.Equal(t, 1, ExitCode(errors.New("foo")))
}

func TestErrorMessages(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"not found typed": {
			err:  &ErrNotFound{Type: "job", Value: "5.0"},
			want: `resource "5.0" of type "job" does not exist`,
		},
		"not found with message": {
			err:  &ErrNotFound{Value: "5.0", Message: "reaped"},
			want: `resource "5.0" does not exist; reaped`,
		},
		"already exists": {
			err:  &ErrAlreadyExists{Type: "job", Value: "5.0"},
			want: `resource "5.0" of type "job" already exists`,
		},
		"invalid argument": {
			err:  &ErrInvalidArgument{Name: "key", Value: "x.y", Message: "expected <cluster>.<proc>"},
			want: `value "x.y" is invalid for field "key"; expected <cluster>.<proc>`,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}
