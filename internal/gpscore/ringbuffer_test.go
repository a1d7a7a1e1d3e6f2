package gpscore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloatRingBufferEvictsOldestOnceFull(t *testing.T) {
	r := NewFloatRingBuffer(3)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	require.Equal(t, []float64{1, 2, 3}, r.Values())
	require.Equal(t, 3.0, r.Last())

	r.Push(4)
	require.Equal(t, []float64{2, 3, 4}, r.Values())
	require.Equal(t, 4.0, r.Last())
}

func TestFloatRingBufferLastOnEmpty(t *testing.T) {
	r := NewFloatRingBuffer(2)
	require.Equal(t, 0.0, r.Last())
	require.Empty(t, r.Values())
}

func TestComplexRingBufferEvictsOldestOnceFull(t *testing.T) {
	r := NewComplexRingBuffer(2)
	r.Push(complex(1, 0))
	r.Push(complex(2, 0))
	r.Push(complex(3, 0))

	require.Equal(t, []complex128{complex(2, 0), complex(3, 0)}, r.Values())
}
