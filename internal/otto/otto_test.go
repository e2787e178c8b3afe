package otto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownstream(t *testing.T) {
	tests := []struct {
		name       string
		a, b       string
		acceptSame bool
		want       bool
	}{
		{"same code accepted", "8642", "8642", true, true},
		{"same code rejected", "8642", "8642", false, false},
		{"different primary basin", "31", "21", true, false},
		{"different primary basin strict", "31", "21", false, false},
		{"mainstem below tributary", "21", "24", false, true},
		{"tributary is not below mainstem", "24", "21", false, false},
		{"prefix without even digit", "31", "35", false, false},
		{"deeper odd remainder", "4213", "4250", false, true},
		{"even digit in remainder", "4221", "4250", false, false},
		{"padded upstream code", "4213", "43", false, false},
		{"missing code", "", "21", true, false},
		{"non numeric code", "2a", "24", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Downstream(tt.a, tt.b, tt.acceptSame)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDownstream_SameCodeForAnyValidCode(t *testing.T) {
	for _, c := range []string{"1", "2", "21", "8642", "777", "9000"} {
		same, err := Downstream(c, c, true)
		require.NoError(t, err)
		assert.True(t, same, c)

		strict, err := Downstream(c, c, false)
		require.NoError(t, err)
		assert.False(t, strict, c)
	}
}

func TestDownstream_MalformedRemainder(t *testing.T) {
	// "21" is a strict prefix of "214": the remainder of a is only padding.
	_, err := Downstream("21", "214", false)
	assert.ErrorIs(t, err, ErrMalformedCode)
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, Compare("42", "4200"))
	assert.Equal(t, -1, Compare("4213", "43"))
	assert.Equal(t, 1, Compare("5", "4999"))
	assert.True(t, Between("4215", "4213", "43"))
	assert.False(t, Between("4213", "4213", "43"))
}
