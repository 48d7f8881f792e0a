package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPhotoKey(t *testing.T) {
	key, err := NewPhotoKey("user-1", "r1", "image/png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "photos/user-1/r1/"))
	require.True(t, strings.HasSuffix(key, ".png"))
	require.True(t, IsOwnedKey("user-1", key))
	require.False(t, IsOwnedKey("user-2", key))

	_, err = NewPhotoKey("user-1", "r1", "application/pdf")
	require.Error(t, err)
}

func TestIsOwnedKey(t *testing.T) {
	require.True(t, IsOwnedKey("u", NewPDFKey("u", "r")))
	require.False(t, IsOwnedKey("u", "photos/u/../v/a.png"))
	require.False(t, IsOwnedKey("u", "photos/u//a.png"))
	require.False(t, IsOwnedKey("u", "other/u/a.png"))
	require.False(t, IsOwnedKey("", "photos//a.png"))
	require.False(t, IsOwnedKey("u", "photos/u/"+strings.Repeat("a", 300)))
	require.False(t, IsOwnedKey("u", "photos/u/"))
	require.False(t, IsOwnedKey("u", "photos/uu/a.png"))
}

func TestIsManagedKey(t *testing.T) {
	require.True(t, IsManagedKey("photos/u1/r1/a.png"))
	require.True(t, IsManagedKey(NewPDFKey("u2", "r")))
	require.False(t, IsManagedKey(""))
	require.False(t, IsManagedKey("other/u1/a.png"))
	require.False(t, IsManagedKey("photos/u1"))
	require.False(t, IsManagedKey("photos/../secret"))
}

func TestNewScanner_EmptyAddrDisablesScanning(t *testing.T) {
	s := NewScanner(" ")
	require.IsType(t, NopScanner{}, s)
	require.NoError(t, s.Scan(context.Background(), []byte("anything")))
}
