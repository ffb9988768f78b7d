package domain

import (
	"encoding/hex"
	"time"
)

// FileID identifies a file independently of its name (device + inode).
// The zero value means the identity is unknown.
type FileID struct {
	Dev uint64
	Ino uint64
}

// IsZero reports whether the identity is unknown
func (id FileID) IsZero() bool {
	return id.Dev == 0 && id.Ino == 0
}

// FileEntry describes one candidate file found in the target directory
type FileEntry struct {
	// Path is the absolute path of the file
	Path string

	// Name is the base name within the target directory
	Name string

	// ID is the device/inode identity used to detect hardlink aliases
	ID FileID

	// Size in bytes at listing time
	Size int64

	// ModTime is the last modification time at listing time
	ModTime time.Time
}

// FingerprintSize is the digest length in bytes for every supported algorithm
const FingerprintSize = 32

// Fingerprint is a fixed-length content digest
type Fingerprint [FingerprintSize]byte

// String returns the hex form of the digest
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex characters, for logs
func (f Fingerprint) Short() string {
	return f.String()[:12]
}

// Key identifies a bucket of equal content: equal length and equal digest
type Key struct {
	Size int64
	Sum  Fingerprint
}
