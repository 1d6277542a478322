package stringinterner

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// StringInterner returns one shared copy of equal strings, so that values repeated across
// many records (owners, submission names, file paths) are stored once.
//
// Only the most recently interned strings are kept, bounded by an LRU.
type StringInterner struct {
	lru *lru.Cache
}

// New returns a StringInterner keeping at most cacheSize strings.
func New(cacheSize uint32) *StringInterner {
	cache, err := lru.New(int(cacheSize))
	if err != nil {
		panic(errors.WithStack(err).Error())
	}
	return &StringInterner{lru: cache}
}

// Intern returns the cached copy of s, caching s itself if none exists.
func (interner *StringInterner) Intern(s string) string {
	if s == "" {
		return s
	}
	if existing, ok, _ := interner.lru.PeekOrAdd(s, s); ok {
		return existing.(string)
	}
	return s
}

func (interner *StringInterner) Len() int {
	return interner.lru.Len()
}
