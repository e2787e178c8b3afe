package tolerance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup_ExactlyOneBin(t *testing.T) {
	for _, a := range []float64{0, 1, 1499.99, 1500, 9999, 10000, 199999, 999999.5, 1000000, 5999999} {
		n := 0
		for _, b := range Table {
			if a >= b.Lower && a < b.Upper {
				n++
			}
		}
		assert.Equal(t, 1, n, "area %v", a)

		_, ok := Lookup(a)
		assert.True(t, ok, "area %v", a)
	}
}

func TestLookup_OutOfRange(t *testing.T) {
	for _, a := range []float64{-0.1, 6000000, 1e9, math.Inf(1)} {
		_, ok := Lookup(a)
		assert.False(t, ok, "area %v", a)
	}
}

func TestAccept(t *testing.T) {
	t.Run("strictly below threshold", func(t *testing.T) {
		assert.True(t, Accept(29.9, 1000))
		assert.False(t, Accept(30, 1000))
	})

	t.Run("bin edges are half open", func(t *testing.T) {
		assert.True(t, Accept(24, 1500))
		assert.False(t, Accept(26, 1500))
		assert.True(t, Accept(1.4, 1000000))
	})

	t.Run("outside table rejects", func(t *testing.T) {
		assert.False(t, Accept(0, 6000000))
		assert.False(t, Accept(0, -1))
	})
}
