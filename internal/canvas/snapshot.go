package canvas

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// compress packs raw layer pixels. Mostly transparent rasters shrink to a
// small fraction of their size.
func compress(pix []byte) ([]byte, error) {
	var compressed bytes.Buffer
	writer := lz4.NewWriter(&compressed)

	if _, err := writer.Write(pix); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close snapshot writer: %w", err)
	}
	return compressed.Bytes(), nil
}

// decompress unpacks a snapshot into dst, which must have the exact
// uncompressed size.
func decompress(dst, snapshot []byte) error {
	reader := lz4.NewReader(bytes.NewReader(snapshot))
	if _, err := io.ReadFull(reader, dst); err != nil {
		return fmt.Errorf("decompress snapshot: %w", err)
	}
	return nil
}
