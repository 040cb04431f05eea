package bufpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolReuse(t *testing.T) {
	p := New(64)
	buf1 := p.Get()
	require.Len(t, buf1, 64)

	sb := p.Wrap(buf1, 10)
	require.Equal(t, 10, sb.Len())
	sb.Release()

	buf2 := p.Get()
	require.Equal(t, &buf1[0], &buf2[0], "expected reclaimed buffer to be reused")
}

func TestPoolForeignBufferIgnored(t *testing.T) {
	p := New(64)
	foreign := make([]byte, 32)
	sb := p.Wrap(foreign, 32)
	require.NotPanics(t, func() { sb.Release() })
}
