package embed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelDownloadLockExclusiveTryLock(t *testing.T) {
	dir := t.TempDir()
	l1 := NewModelDownloadLock(dir)
	l2 := NewModelDownloadLock(dir)

	require.NoError(t, l1.Lock())
	defer l1.Unlock()

	acquired, err := l2.TryLock()
	require.NoError(t, err)
	require.False(t, acquired)

	require.NoError(t, l1.Unlock())
	acquired, err = l2.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	require.NoError(t, l2.Unlock())
}
