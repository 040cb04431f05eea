package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharedBytesReleasesAtZero(t *testing.T) {
	released := false
	sb := NewSharedBytes([]byte{1, 2, 3}, func([]byte) { released = true })

	sb.Retain()
	sb.Release()
	require.False(t, released, "should not release while a reference remains")

	sb.Release()
	require.True(t, released, "should release once refcount reaches zero")
}

func TestSharedBytesNilSafe(t *testing.T) {
	var sb *SharedBytes
	require.Nil(t, sb.Bytes())
	require.Equal(t, 0, sb.Len())
	require.NotPanics(t, func() {
		sb.Retain()
		sb.Release()
	})
}

func TestPacketRecordTruncated(t *testing.T) {
	p := &PacketRecord{Layers: []LayerRecord{
		{Name: "Ethernet", State: LayerOK},
		{Name: "IPv4", State: LayerTruncated},
	}}
	require.True(t, p.Truncated())

	p2 := &PacketRecord{Layers: []LayerRecord{{Name: "Ethernet", State: LayerOK}}}
	require.False(t, p2.Truncated())

	var p3 PacketRecord
	require.Nil(t, p3.LastLayer())
}
