package exprstore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/exprlang"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	assert.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func Test_Store_implementsCacheableNamespace(t *testing.T) {
	var _ exprlang.CacheableNamespace = (*Store)(nil)
}

func Test_Store_Lookup_missingKeyFails(t *testing.T) {
	assert := assert.New(t)

	s := openTestStore(t)
	_, ok := s.Lookup("x", nil, nil)
	assert.False(ok)
}

func Test_Store_CacheCreate_thenLookupSucceeds(t *testing.T) {
	assert := assert.New(t)

	s := openTestStore(t)
	assert.NoError(s.CacheCreate("x", 42))

	v, ok := s.Lookup("x", nil, make([]byte, 0, 16))
	assert.True(ok)
	assert.Equal(42.0, v)
}

func Test_Store_CacheCreate_duplicateFails(t *testing.T) {
	assert := assert.New(t)

	s := openTestStore(t)
	assert.NoError(s.CacheCreate("x", 1))

	err := s.CacheCreate("x", 2)
	assert.Error(err)
	assert.True(errors.Is(err, ErrAlreadyExists))
}

func Test_Store_CacheSet_overwritesExistingRow(t *testing.T) {
	assert := assert.New(t)

	s := openTestStore(t)
	s.CacheSet("x", 1)
	s.CacheSet("x", 2)

	v, ok := s.Lookup("x", nil, make([]byte, 0, 16))
	assert.True(ok)
	assert.Equal(2.0, v)
}

func Test_Store_CacheClear_removesAllRows(t *testing.T) {
	assert := assert.New(t)

	s := openTestStore(t)
	s.CacheSet("x", 1)
	s.CacheSet("y", 2)

	assert.NoError(s.ClearChecked())

	_, ok := s.Lookup("x", nil, make([]byte, 0, 16))
	assert.False(ok)
	_, ok = s.Lookup("y", nil, make([]byte, 0, 16))
	assert.False(ok)
}

func Test_Store_Lookup_keyIncludesArgs(t *testing.T) {
	assert := assert.New(t)

	s := openTestStore(t)
	assert.NoError(s.CacheCreate("f , 1 , 2", 3))

	v, ok := s.Lookup("f", []float64{1, 2}, make([]byte, 0, 16))
	assert.True(ok)
	assert.Equal(3.0, v)

	_, ok = s.Lookup("f", []float64{1, 3}, make([]byte, 0, 16))
	assert.False(ok, "a different argument list is a different cache key")
}
