package chainwrite

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// ErrCorrupt reports a file that is not a payload followed by its checksum.
var ErrCorrupt = errors.New("chainwrite: corrupt output")

// Verify reads a file produced by any style and checks its layout.
func Verify(path string) (Payload, Digest, error) {
	var (
		p Payload
		d Digest
	)
	b, err := os.ReadFile(path)
	if err != nil {
		return p, d, fmt.Errorf("chainwrite: read: %w", err)
	}
	if len(b) != PayloadSize+DigestSize {
		return p, d, fmt.Errorf("%w: %d bytes, want %d", ErrCorrupt, len(b), PayloadSize+DigestSize)
	}
	copy(p[:], b[:PayloadSize])
	copy(d[:], b[PayloadSize:])
	if want := Sum(p[:]); !bytes.Equal(d[:], want[:]) {
		return p, d, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return p, d, nil
}
