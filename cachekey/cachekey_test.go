package cachekey_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfleong/gobatis/cachekey"
)

func TestEqualSequenceEqualKeys(t *testing.T) {
	k1 := cachekey.New("ns.select", 0, 10, "SELECT * FROM t", 7, "dev")
	k2 := cachekey.New("ns.select", 0, 10, "SELECT * FROM t", 7, "dev")
	require.True(t, k1.Equal(k2))
	require.Equal(t, k1.HashCode(), k2.HashCode())
}

func TestDifferingSequenceUnequalKeys(t *testing.T) {
	k1 := cachekey.New("ns.select", 0, 10, "SELECT * FROM t", 7, "dev")
	k2 := cachekey.New("ns.select", 0, 10, "SELECT * FROM t", 8, "dev")
	require.False(t, k1.Equal(k2))
}

func TestCloneIndependent(t *testing.T) {
	k1 := cachekey.New("a")
	k2 := k1.Clone()
	k2.Update("b")
	require.False(t, k1.Equal(k2))
	k1.Update("b")
	require.True(t, k1.Equal(k2))
}
