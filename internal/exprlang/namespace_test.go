package exprlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_MapNamespace_bareLookupSucceeds(t *testing.T) {
	assert := assert.New(t)

	ns := MapNamespace{"x": 42}
	v, ok := ns.Lookup("x", nil, nil)
	assert.True(ok)
	assert.Equal(42.0, v)
}

func Test_MapNamespace_rejectsCallsWithArgs(t *testing.T) {
	assert := assert.New(t)

	ns := MapNamespace{"x": 42}
	_, ok := ns.Lookup("x", []float64{1}, nil)
	assert.False(ok)
}

func Test_MapNamespace_missingNameFails(t *testing.T) {
	assert := assert.New(t)

	ns := MapNamespace{}
	_, ok := ns.Lookup("missing", nil, nil)
	assert.False(ok)
}

func Test_CallbackFunc_delegatesDirectly(t *testing.T) {
	assert := assert.New(t)

	var gotName string
	var gotArgs []float64
	ns := CallbackFunc(func(name string, args []float64) (float64, bool) {
		gotName = name
		gotArgs = args
		return 7, true
	})

	v, ok := ns.Lookup("double", []float64{3.5}, nil)
	assert.True(ok)
	assert.Equal(7.0, v)
	assert.Equal("double", gotName)
	assert.Equal([]float64{3.5}, gotArgs)
}

func Test_EmptyNamespace_rejectsEverything(t *testing.T) {
	assert := assert.New(t)

	var ns EmptyNamespace
	_, ok := ns.Lookup("anything", []float64{1, 2}, nil)
	assert.False(ok)
}

func Test_CachedNamespace_cachesAfterFirstLookup(t *testing.T) {
	assert := assert.New(t)

	calls := 0
	cb := CallbackFunc(func(name string, args []float64) (float64, bool) {
		calls++
		return float64(len(args)), true
	})
	ns := NewCachedNamespace(cb)

	v1, ok := ns.Lookup("f", []float64{1, 2}, make([]byte, 0, 16))
	assert.True(ok)
	assert.Equal(2.0, v1)

	v2, ok := ns.Lookup("f", []float64{1, 2}, make([]byte, 0, 16))
	assert.True(ok)
	assert.Equal(2.0, v2)
	assert.Equal(1, calls, "second lookup with identical args should be served from cache")

	_, ok = ns.Lookup("f", []float64{1, 2, 3}, make([]byte, 0, 16))
	assert.True(ok)
	assert.Equal(2, calls, "lookup with different args is a cache miss")
}

func Test_CachedNamespace_cacheSetOverridesFutureLookups(t *testing.T) {
	assert := assert.New(t)

	cb := CallbackFunc(func(name string, args []float64) (float64, bool) {
		return 1, true
	})
	ns := NewCachedNamespace(cb)

	ns.CacheSet("x", 99)
	v, ok := ns.Lookup("x", nil, make([]byte, 0, 8))
	assert.True(ok)
	assert.Equal(99.0, v)
}

func Test_CachedNamespace_cacheCreateRejectsDuplicate(t *testing.T) {
	assert := assert.New(t)

	cb := CallbackFunc(func(name string, args []float64) (float64, bool) { return 0, false })
	ns := NewCachedNamespace(cb)

	assert.NoError(ns.CacheCreate("x", 1))
	err := ns.CacheCreate("x", 2)
	assert.Error(err)

	var exprErr Error
	assert.ErrorAs(err, &exprErr)
	assert.Equal(KindAlreadyExists, exprErr.Kind)
}

func Test_CachedNamespace_cacheClearForgetsEntries(t *testing.T) {
	assert := assert.New(t)

	calls := 0
	cb := CallbackFunc(func(name string, args []float64) (float64, bool) {
		calls++
		return 5, true
	})
	ns := NewCachedNamespace(cb)

	ns.Lookup("x", nil, make([]byte, 0, 8))
	ns.CacheClear()
	ns.Lookup("x", nil, make([]byte, 0, 8))

	assert.Equal(2, calls, "lookup after CacheClear should miss the cache and call through again")
}
