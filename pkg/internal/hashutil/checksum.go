package hashutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/arthur-debert/dosort/pkg/types"
)

// ChunkSize bounds memory while hashing arbitrarily large files
const ChunkSize = 1 << 20

// FileSHA256 streams path through SHA-256 in ChunkSize reads and returns the
// lowercase hex digest. The context is checked between chunks.
func FileSHA256(ctx context.Context, fsys types.FS, path string) (string, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	return ReaderSHA256(ctx, file)
}

// ReaderSHA256 hashes r the same way FileSHA256 hashes a file
func ReaderSHA256(ctx context.Context, r io.Reader) (string, error) {
	hash := sha256.New()
	buf := make([]byte, ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
