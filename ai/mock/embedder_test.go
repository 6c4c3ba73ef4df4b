package mock

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector_DeterministicUnitLength(t *testing.T) {
	a := Vector("refund policy", 64)
	b := Vector("refund policy", 64)
	c := Vector("rate limits", 64)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder_Defaults(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	v, err := m.EmbedText(ctx, "hello")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimensions)

	vs, err := m.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vs, 2)
	assert.Equal(t, 2, m.CallCount())
	assert.Equal(t, [][]string{{"a", "b"}}, m.Batches())

	m.Reset()
	assert.Zero(t, m.CallCount())
	assert.Empty(t, m.Batches())
}

func TestMockEmbedder_ConcurrentCalls(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedText(context.Background(), "x")
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	mp := p.(*MockProvider)
	assert.Same(t, mp.GetMockEmbedder(), p.Embedder())
	require.NoError(t, p.Close())
	assert.True(t, mp.Closed())
}
