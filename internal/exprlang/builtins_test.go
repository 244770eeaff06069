package exprlang

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_logBase(t *testing.T) {
	assert := assert.New(t)

	assert.InDelta(3.0, logBase(2, 8), 1e-9)
	assert.InDelta(2.0, logBase(10, 100), 1e-9)
	assert.InDelta(math.Log(8)/math.Log(3), logBase(3, 8), 1e-9)
}

func Test_roundTo(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(10.0, roundTo(11, 5))
	assert.Equal(2.0, roundTo(2.4, 1))
	assert.Equal(3.0, roundTo(2.5, 1), "half away from zero rounds up")
	assert.Equal(-3.0, roundTo(-2.5, 1), "half away from zero rounds away from zero on the negative side too")
}

func Test_signum(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1.0, signum(5))
	assert.Equal(-1.0, signum(-5))
	assert.Equal(1.0, signum(0), "+0 signs positive")
	assert.Equal(-1.0, signum(math.Copysign(0, -1)), "-0 signs negative")
	assert.True(math.IsNaN(signum(math.NaN())))
}

func Test_foldMin_foldMax(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1.0, foldMin([]float64{3, 1, 2}))
	assert.Equal(3.0, foldMax([]float64{3, 1, 2}))

	assert.True(math.IsNaN(foldMin([]float64{3, math.NaN(), 2})))
	assert.True(math.IsNaN(foldMax([]float64{3, math.NaN(), 2})))
}

func Test_nanMin2_nanMax2(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1.0, nanMin2(1, 2))
	assert.Equal(2.0, nanMax2(1, 2))

	assert.True(math.IsNaN(nanMin2(math.NaN(), 2)))
	assert.True(math.IsNaN(nanMax2(1, math.NaN())))
}
