package fingerprint

import (
	"context"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/minio/highwayhash"
	"golang.org/x/crypto/blake2b"

	"github.com/Ning0612/dirdedup/internal/adapter"
	"github.com/Ning0612/dirdedup/internal/domain"
)

// Algorithm names a digest function
type Algorithm string

const (
	// BLAKE2b is 256-bit BLAKE2b (default)
	BLAKE2b Algorithm = "blake2b"
	// SHA256 is SHA-256
	SHA256 Algorithm = "sha256"
	// HighwayHash is keyed HighwayHash-256, fastest on large files
	HighwayHash Algorithm = "highwayhash"
)

// DefaultAlgorithm is used when none is configured
const DefaultAlgorithm = BLAKE2b

// highwayKey is fixed so fingerprints are stable across runs
var highwayKey = []byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
	0xf0, 0xe0, 0xd0, 0xc0, 0xb0, 0xa0, 0x90, 0x80,
	0x70, 0x60, 0x50, 0x40, 0x30, 0x20, 0x10, 0x00,
}

// ParseAlgorithm parses an algorithm name (case-insensitive)
func ParseAlgorithm(s string) (Algorithm, error) {
	algo := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if algo == "" {
		return DefaultAlgorithm, nil
	}
	if !IsSupported(algo) {
		return "", fmt.Errorf("unsupported algorithm: %s", s)
	}
	return algo, nil
}

// IsSupported checks if the given algorithm is supported
func IsSupported(algo Algorithm) bool {
	switch algo {
	case BLAKE2b, SHA256, HighwayHash:
		return true
	default:
		return false
	}
}

// Options configures a Hasher
type Options struct {
	Algorithm Algorithm

	// ChunkSize is the read buffer size; ctx is checked between chunks.
	// Default: 256KB
	ChunkSize int
}

// DefaultOptions returns the recommended default options
func DefaultOptions() Options {
	return Options{
		Algorithm: DefaultAlgorithm,
		ChunkSize: 256 * 1024,
	}
}

// Hasher computes content fingerprints. A Hasher holds no mutable state and
// is safe for concurrent use; each call allocates its own digest and buffer.
type Hasher struct {
	opts Options
}

// New creates a Hasher, failing on an unsupported algorithm
func New(opts Options) (*Hasher, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	if !IsSupported(opts.Algorithm) {
		return nil, fmt.Errorf("unsupported algorithm: %s", opts.Algorithm)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	return &Hasher{opts: opts}, nil
}

// Algorithm returns the configured algorithm
func (h *Hasher) Algorithm() Algorithm {
	return h.opts.Algorithm
}

func (h *Hasher) newHash() (hash.Hash, error) {
	switch h.opts.Algorithm {
	case BLAKE2b:
		return blake2b.New256(nil)
	case SHA256:
		return sha256.New(), nil
	case HighwayHash:
		return highwayhash.New(highwayKey)
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", h.opts.Algorithm)
	}
}

// Sum streams reader to EOF and returns its fingerprint and the number of bytes read
func (h *Hasher) Sum(ctx context.Context, reader io.Reader) (domain.Fingerprint, int64, error) {
	var fp domain.Fingerprint

	digest, err := h.newHash()
	if err != nil {
		return fp, 0, err
	}

	buffer := make([]byte, h.opts.ChunkSize)
	totalBytes := int64(0)

	for {
		select {
		case <-ctx.Done():
			return fp, totalBytes, ctx.Err()
		default:
		}

		n, err := reader.Read(buffer)
		if n > 0 {
			totalBytes += int64(n)
			// hash.Hash.Write never returns an error
			digest.Write(buffer[:n])
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return fp, totalBytes, fmt.Errorf("read error: %w", err)
		}
	}

	copy(fp[:], digest.Sum(nil))
	return fp, totalBytes, nil
}

// SumFile fingerprints one listed file through opener.
// The byte count must match entry.Size; every failure is a domain.FileError of kind ErrRead.
func (h *Hasher) SumFile(ctx context.Context, opener adapter.Opener, entry domain.FileEntry) (domain.Fingerprint, error) {
	reader, err := opener.Open(ctx, entry.Path)
	if err != nil {
		return domain.Fingerprint{}, domain.NewReadError(entry.Path, err)
	}
	defer reader.Close()

	fp, n, err := h.Sum(ctx, reader)
	if err != nil {
		return domain.Fingerprint{}, domain.NewReadError(entry.Path, err)
	}
	if n != entry.Size {
		return domain.Fingerprint{}, domain.NewReadError(entry.Path,
			fmt.Errorf("%w: listed %d bytes, read %d", domain.ErrSizeChanged, entry.Size, n))
	}

	return fp, nil
}
