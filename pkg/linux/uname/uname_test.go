package uname

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	u, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Linux", u.SystemName)
	require.NotEmpty(t, u.Release)
	require.NotEmpty(t, u.Machine)
}

func TestSystemRelease(t *testing.T) {
	release, err := SystemRelease()
	require.NoError(t, err)
	require.NotEmpty(t, release)
}

func TestStringFromBytes(t *testing.T) {
	require.Equal(t, "abc", stringFromBytes([]int8{'a', 'b', 'c', 0, 0}))
	require.Equal(t, "", stringFromBytes([]int8{0}))
	require.Equal(t, "", stringFromBytes(nil))
}
