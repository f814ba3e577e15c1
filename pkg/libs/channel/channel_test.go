package channel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestChannelOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := NewChannel[int](4)
	var got []int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			v, ok := ch.Receive()
			if !ok {
				return
			}
			got = append(got, v)
		}
	}()
	for i := 0; i < 100; i++ {
		require.True(t, ch.Send(i))
	}
	ch.Close()
	wg.Wait()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestChannelClosed(t *testing.T) {
	ch := NewChannel[string](2)
	require.True(t, ch.Send("a"))
	assert.Equal(t, 1, ch.Len())
	ch.Close()
	assert.False(t, ch.Send("b"))
	v, ok := ch.Receive()
	require.True(t, ok)
	assert.Equal(t, "a", v)
	_, ok = ch.Receive()
	assert.False(t, ok)
}

func TestChannelTrySend(t *testing.T) {
	ch := NewChannel[int](2)
	assert.True(t, ch.TrySend(1))
	assert.True(t, ch.TrySend(2))
	assert.False(t, ch.TrySend(3))
	v, ok := ch.Receive()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, ch.TrySend(3))
	ch.Close()
	assert.False(t, ch.TrySend(4))
	assert.Equal(t, 2, ch.Len())
}
