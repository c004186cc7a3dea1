package nonce

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countCaller struct {
	count  uint64
	err    error
	params any
}

func (c *countCaller) Call(_ context.Context, result any, method string, params any) error {
	c.params = params
	if c.err != nil {
		return c.err
	}
	*(result.(*hexutil.Uint64)) = hexutil.Uint64(c.count)
	return nil
}

func (c *countCaller) Endpoint() string { return "test" }

func TestCounter_Sequence(t *testing.T) {
	const start, submissions = 7, 5
	counter := New(start)

	for i := 0; i < submissions; i++ {
		assert.Equal(t, uint64(start+i), counter.Peek())
		assert.Equal(t, uint64(start+i), counter.Advance())
	}

	assert.Equal(t, []uint64{7, 8, 9, 10, 11}, counter.Used())
	assert.Equal(t, uint64(start+submissions), counter.Peek())
}

func TestCounter_PeekDoesNotConsume(t *testing.T) {
	counter := New(3)
	counter.Peek()
	counter.Peek()

	assert.Empty(t, counter.Used())
	assert.Equal(t, uint64(3), counter.Advance())
}

func TestSeed(t *testing.T) {
	address := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	t.Run("uses the latest count", func(t *testing.T) {
		caller := &countCaller{count: 42}

		counter, err := Seed(context.Background(), caller, address)
		require.NoError(t, err)

		assert.Equal(t, uint64(42), counter.Peek())
		assert.Equal(t, []any{address, "latest"}, caller.params)
	})

	t.Run("propagates errors", func(t *testing.T) {
		cause := errors.New("boom")

		_, err := Seed(context.Background(), &countCaller{err: cause}, address)
		assert.ErrorIs(t, err, cause)
	})
}
