package expr

import "sync"

// Cache memoizes Parse by source text. Parse failures are cached too, so a
// malformed catalog expression is reported consistently without reparsing.
// The zero value is ready to use and safe for concurrent use.
type Cache struct {
	m sync.Map // string -> cacheEntry
}

type cacheEntry struct {
	prog *Program
	err  error
}

// Parse returns the parsed program for src.
func (c *Cache) Parse(src string) (*Program, error) {
	if e, ok := c.m.Load(src); ok {
		ce := e.(cacheEntry)
		return ce.prog, ce.err
	}
	prog, err := Parse(src)
	e, _ := c.m.LoadOrStore(src, cacheEntry{prog: prog, err: err})
	ce := e.(cacheEntry)
	return ce.prog, ce.err
}

// Len returns the number of cached sources.
func (c *Cache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
