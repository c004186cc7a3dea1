package genes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor_Cycles(t *testing.T) {
	for i := 0; i < 3*Len(); i++ {
		assert.Equal(t, For(i), For(i+Len()), i)
	}
}

func TestFor_ThirteenthMintReusesThird(t *testing.T) {
	assert.Equal(t, 10, Len())
	assert.Equal(t, For(2), For(12))
	assert.NotEqual(t, For(1), For(12))
}

func TestBigFor(t *testing.T) {
	for i := 0; i < Len(); i++ {
		assert.Equal(t, For(i), BigFor(i).String())
	}
}
