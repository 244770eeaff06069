package exprlang

import "strconv"

// Namespace resolves bare identifiers and user-defined function calls
// during both compile-time constant folding and runtime evaluation.
// An implementation may mutate its own state (a counter, a cache) in
// Lookup when it has a pointer receiver, as CachedNamespace does; keybuf
// is a caller-owned scratch buffer
// (typically Slab.Scratch) an implementation may use to build a cache key
// without allocating.
type Namespace interface {
	Lookup(name string, args []float64, keybuf []byte) (float64, bool)
}

// CacheableNamespace is an optional extension a Namespace can implement to
// let callers seed, overwrite, and invalidate memoized lookups explicitly.
type CacheableNamespace interface {
	Namespace

	CacheCreate(name string, val float64) error
	CacheSet(name string, val float64)
	CacheClear()
}

// MapNamespace resolves bare variable references (zero-argument lookups)
// against a plain map and rejects every call with arguments.
type MapNamespace map[string]float64

func (m MapNamespace) Lookup(name string, args []float64, _ []byte) (float64, bool) {
	if len(args) != 0 {
		return 0, false
	}
	v, ok := m[name]
	return v, ok
}

// CallbackFunc resolves every lookup, bare or called, through a single
// user function.
type CallbackFunc func(name string, args []float64) (float64, bool)

func (f CallbackFunc) Lookup(name string, args []float64, _ []byte) (float64, bool) {
	return f(name, args)
}

// EmptyNamespace rejects every lookup, for expressions that are known not
// to reference any variable or user function.
type EmptyNamespace struct{}

func (EmptyNamespace) Lookup(string, []float64, []byte) (float64, bool) { return 0, false }

// CachedNamespace wraps a CallbackFunc so that a given (name, args) pair the
// callback resolves is only looked up once; later lookups are served from an
// internal map keyed on the rendered call text built in keybuf. A lookup the
// callback rejects is not cached and reaches the callback again next time.
// Useful when the underlying callback is expensive.
type CachedNamespace struct {
	cb    CallbackFunc
	cache map[string]float64
}

// NewCachedNamespace wraps cb with a lookup cache.
func NewCachedNamespace(cb CallbackFunc) *CachedNamespace {
	return &CachedNamespace{cb: cb, cache: make(map[string]float64)}
}

func (c *CachedNamespace) Lookup(name string, args []float64, keybuf []byte) (float64, bool) {
	key := string(appendCallKey(keybuf[:0], name, args))
	if v, ok := c.cache[key]; ok {
		return v, true
	}
	v, ok := c.cb(name, args)
	if ok {
		c.cache[key] = v
	}
	return v, ok
}

func (c *CachedNamespace) CacheCreate(name string, val float64) error {
	if _, exists := c.cache[name]; exists {
		return alreadyExistsErr(name)
	}
	c.cache[name] = val
	return nil
}

func (c *CachedNamespace) CacheSet(name string, val float64) {
	c.cache[name] = val
}

func (c *CachedNamespace) CacheClear() {
	c.cache = make(map[string]float64)
}

// appendCallKey renders a call's cache key into buf without allocating
// when buf has spare capacity: just name when args is empty, otherwise
// "name , a1 , a2 , …" with each argument rendered via strconv's default
// float-to-text conversion. This exact scheme is what lets two different
// CacheableNamespace adapters (CachedNamespace here, exprstore.Store's
// SQLite-backed one) agree on a key for the same call.
func appendCallKey(buf []byte, name string, args []float64) []byte {
	buf = append(buf, name...)
	for _, a := range args {
		buf = append(buf, " , "...)
		buf = strconv.AppendFloat(buf, a, 'g', -1, 64)
	}
	return buf
}
