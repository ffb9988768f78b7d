package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/Ning0612/dirdedup/internal/domain"
)

type mapOpener map[string]string

func (m mapOpener) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	content, ok := m[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func mustHasher(t *testing.T, algo Algorithm) *Hasher {
	t.Helper()
	h, err := New(Options{Algorithm: algo, ChunkSize: 4})
	if err != nil {
		t.Fatalf("New(%s) failed: %v", algo, err)
	}
	return h
}

// TestKnownVectors checks digests against published test vectors
func TestKnownVectors(t *testing.T) {
	tests := []struct {
		algo  Algorithm
		input string
		want  string
	}{
		{SHA256, "hello world", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{BLAKE2b, "", "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
	}

	for _, tt := range tests {
		h := mustHasher(t, tt.algo)
		fp, n, err := h.Sum(context.Background(), strings.NewReader(tt.input))
		if err != nil {
			t.Fatalf("%s: Sum failed: %v", tt.algo, err)
		}
		if n != int64(len(tt.input)) {
			t.Errorf("%s: read %d bytes, want %d", tt.algo, n, len(tt.input))
		}
		if fp.String() != tt.want {
			t.Errorf("%s(%q) = %s, want %s", tt.algo, tt.input, fp, tt.want)
		}
	}
}

// TestShortReadsMatchFullRead verifies chunking and short reads never change the digest
func TestShortReadsMatchFullRead(t *testing.T) {
	content := strings.Repeat("dirdedup", 1000)

	for _, algo := range []Algorithm{BLAKE2b, SHA256, HighwayHash} {
		t.Run(string(algo), func(t *testing.T) {
			full, err := New(Options{Algorithm: algo, ChunkSize: 1 << 20})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			want, _, err := full.Sum(context.Background(), strings.NewReader(content))
			if err != nil {
				t.Fatalf("Sum failed: %v", err)
			}

			small := mustHasher(t, algo)
			readers := []io.Reader{
				iotest.OneByteReader(strings.NewReader(content)),
				iotest.HalfReader(strings.NewReader(content)),
				iotest.DataErrReader(strings.NewReader(content)),
			}
			for i, r := range readers {
				got, n, err := small.Sum(context.Background(), r)
				if err != nil {
					t.Fatalf("reader %d: Sum failed: %v", i, err)
				}
				if n != int64(len(content)) {
					t.Errorf("reader %d: read %d bytes, want %d", i, n, len(content))
				}
				if got != want {
					t.Errorf("reader %d: digest %s, want %s", i, got.Short(), want.Short())
				}
			}
		})
	}
}

func TestDifferentContentDiffers(t *testing.T) {
	h := mustHasher(t, HighwayHash)
	a, _, _ := h.Sum(context.Background(), strings.NewReader("a"))
	b, _, _ := h.Sum(context.Background(), strings.NewReader("b"))
	if a == b {
		t.Error("different content produced equal fingerprints")
	}
}

// TestReadErrorMidStream checks I/O failures surface as errors
func TestReadErrorMidStream(t *testing.T) {
	h := mustHasher(t, SHA256)
	r := iotest.TimeoutReader(strings.NewReader("more than one chunk of data"))

	_, _, err := h.Sum(context.Background(), r)
	if err == nil {
		t.Fatal("expected read error, got nil")
	}
	if !errors.Is(err, iotest.ErrTimeout) {
		t.Errorf("expected wrapped ErrTimeout, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	h := mustHasher(t, BLAKE2b)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := h.Sum(ctx, strings.NewReader("some data"))
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	if _, err := New(Options{Algorithm: "md4"}); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
	if _, err := ParseAlgorithm("crc32"); err == nil {
		t.Fatal("expected ParseAlgorithm error")
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
	}{
		{"", BLAKE2b},
		{"SHA256", SHA256},
		{" highwayhash ", HighwayHash},
		{"blake2b", BLAKE2b},
	}

	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSumFile(t *testing.T) {
	h := mustHasher(t, BLAKE2b)
	opener := mapOpener{"/d/a": "alpha"}

	fp, err := h.SumFile(context.Background(), opener, domain.FileEntry{Path: "/d/a", Size: 5})
	if err != nil {
		t.Fatalf("SumFile failed: %v", err)
	}
	want, _, _ := h.Sum(context.Background(), bytes.NewReader([]byte("alpha")))
	if fp != want {
		t.Errorf("SumFile digest mismatch")
	}
}

func TestSumFileErrors(t *testing.T) {
	h := mustHasher(t, BLAKE2b)
	opener := mapOpener{"/d/a": "alpha"}

	t.Run("vanished", func(t *testing.T) {
		_, err := h.SumFile(context.Background(), opener, domain.FileEntry{Path: "/d/gone", Size: 1})
		if !errors.Is(err, domain.ErrRead) || !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected read error wrapping ErrNotFound, got %v", err)
		}
		var fe *domain.FileError
		if !errors.As(err, &fe) || fe.Path != "/d/gone" {
			t.Errorf("expected FileError for /d/gone, got %v", err)
		}
	})

	t.Run("size changed", func(t *testing.T) {
		_, err := h.SumFile(context.Background(), opener, domain.FileEntry{Path: "/d/a", Size: 3})
		if !errors.Is(err, domain.ErrRead) || !errors.Is(err, domain.ErrSizeChanged) {
			t.Errorf("expected size-changed read error, got %v", err)
		}
	})
}

func TestSumFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := dir + string(os.PathSeparator) + "blob"
	if err := os.WriteFile(path, []byte("on disk"), 0644); err != nil {
		t.Fatal(err)
	}

	h := mustHasher(t, SHA256)
	_, err := h.SumFile(context.Background(), osOpener{}, domain.FileEntry{Path: path, Size: 7})
	if err != nil {
		t.Fatalf("SumFile failed: %v", err)
	}
}

type osOpener struct{}

func (osOpener) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}
