package recordsource

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestArchiveSaveAndLoad(t *testing.T) {
	archive := NewArchive(filepath.Join(t.TempDir(), "uploads", "purchase.csv"), zap.NewNop())

	_, err := archive.Load()
	require.ErrorIs(t, err, ErrNoArchive)

	require.NoError(t, archive.Save([]byte("first")))
	data, err := archive.Load()
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	// A later save replaces the archived content.
	require.NoError(t, archive.Save([]byte("second")))
	data, err = archive.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
