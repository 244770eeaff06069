package exprlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_nearlyEqual(t *testing.T) {
	testCases := []struct {
		name   string
		x, y   float64
		expect bool
	}{
		{name: "exact match", x: 1.0, y: 1.0, expect: true},
		{name: "within tolerance", x: 1.0, y: 1.0 + epsilon, expect: true},
		{name: "at the boundary", x: 1.0, y: 1.0 + toleranceFactor*epsilon, expect: true},
		{name: "outside tolerance", x: 1.0, y: 1.0001, expect: false},
		{name: "zero vs zero", x: 0, y: 0, expect: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, nearlyEqual(tc.x, tc.y))
		})
	}
}

func Test_nearlyZero(t *testing.T) {
	assert := assert.New(t)

	assert.True(nearlyZero(0))
	assert.True(nearlyZero(epsilon))
	assert.False(nearlyZero(0.0001))
}
