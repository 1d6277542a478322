package stringinterner

import (
	"reflect"
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func dataPointer(s string) uintptr {
	return (*reflect.StringHeader)(unsafe.Pointer(&s)).Data
}

func TestIntern_SharesBackingArray(t *testing.T) {
	interner := New(10)
	a := strings.Repeat("alice", 2)
	b := strings.Repeat("alice", 2)
	assert.NotEqual(t, dataPointer(a), dataPointer(b))

	assert.Equal(t, a, interner.Intern(a))
	interned := interner.Intern(b)
	assert.Equal(t, b, interned)
	assert.Equal(t, dataPointer(a), dataPointer(interned))
}

func TestIntern_BoundedByCacheSize(t *testing.T) {
	interner := New(2)
	interner.Intern("a")
	interner.Intern("b")
	interner.Intern("c")
	assert.Equal(t, 2, interner.Len())
}

func TestIntern_EmptyStringNotCached(t *testing.T) {
	interner := New(2)
	assert.Equal(t, "", interner.Intern(""))
	assert.Equal(t, 0, interner.Len())
}
