package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBufferPool(t *testing.T) {
	bp := NewBufferPool()
	require.NotNil(t, bp)
	assert.NotNil(t, bp.small)
	assert.NotNil(t, bp.medium)
	assert.NotNil(t, bp.large)
}

func TestBufferPool_Get(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantLen int
	}{
		{name: "zero uses medium", size: 0, wantLen: MediumBufferSize},
		{name: "negative uses medium", size: -1, wantLen: MediumBufferSize},
		{name: "tiny", size: 10, wantLen: SmallBufferSize},
		{name: "exact small", size: SmallBufferSize, wantLen: SmallBufferSize},
		{name: "just above small", size: SmallBufferSize + 1, wantLen: MediumBufferSize},
		{name: "exact large", size: LargeBufferSize, wantLen: LargeBufferSize},
		{name: "oversized", size: LargeBufferSize + 1, wantLen: LargeBufferSize + 1},
	}

	bp := NewBufferPool()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := bp.Get(tt.size)
			assert.Len(t, buf, tt.wantLen)
			bp.Put(buf)
		})
	}
}

func TestBufferPool_PutRestoresLength(t *testing.T) {
	bp := NewBufferPool()

	buf := bp.Get(SmallBufferSize)
	bp.Put(buf[:10])

	again := bp.Get(SmallBufferSize)
	assert.Len(t, again, SmallBufferSize)
}

func TestGlobalPool(t *testing.T) {
	buf := Get(MediumBufferSize)
	require.Len(t, buf, MediumBufferSize)
	Put(buf)
}

func BenchmarkBufferPool_Get(b *testing.B) {
	bp := NewBufferPool()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf := bp.Get(MediumBufferSize)
		bp.Put(buf)
	}
}
