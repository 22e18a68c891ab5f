package hashutil_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/dosort/pkg/filesystem"
	"github.com/arthur-debert/dosort/pkg/internal/hashutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	sum, err := hashutil.FileSHA256(context.Background(), filesystem.NewOS(), path)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", sum)
}

func TestFileSHA256_MultipleChunks(t *testing.T) {
	data := strings.Repeat("x", hashutil.ChunkSize*2+17)
	path := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	fromFile, err := hashutil.FileSHA256(context.Background(), filesystem.NewOS(), path)
	require.NoError(t, err)
	fromReader, err := hashutil.ReaderSHA256(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, fromReader, fromFile)
	assert.Len(t, fromFile, 64)
}

func TestFileSHA256_Missing(t *testing.T) {
	_, err := hashutil.FileSHA256(context.Background(), filesystem.NewOS(), filepath.Join(t.TempDir(), "nope"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileSHA256_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := hashutil.FileSHA256(ctx, filesystem.NewOS(), path)
	assert.ErrorIs(t, err, context.Canceled)
}
