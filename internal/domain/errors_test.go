package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFileError(t *testing.T) {
	cause := fmt.Errorf("%w: open /d/a: permission denied", ErrPermissionDenied)
	err := error(NewReadError("/d/a", cause))

	if !errors.Is(err, ErrRead) {
		t.Error("read error should match ErrRead")
	}
	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("read error should match its cause")
	}
	if errors.Is(err, ErrDelete) {
		t.Error("read error should not match ErrDelete")
	}
	if !IsFileError(fmt.Errorf("wrapped: %w", err)) {
		t.Error("IsFileError should see through wrapping")
	}

	msg := err.Error()
	if !strings.HasPrefix(msg, "read failed: /d/a: ") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestFileError_NoCause(t *testing.T) {
	err := &FileError{Kind: ErrDelete, Path: "/d/b"}
	if err.Error() != "delete failed: /d/b" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrDelete) {
		t.Error("should match ErrDelete")
	}
}

func TestDuplicateGroup(t *testing.T) {
	g := DuplicateGroup{
		Key:        Key{Size: 10},
		Survivor:   FileEntry{Path: "/d/a"},
		Duplicates: []FileEntry{{Path: "/d/b"}, {Path: "/d/c"}},
	}
	if g.Count() != 3 {
		t.Errorf("Count = %d, want 3", g.Count())
	}
	if g.ReclaimableBytes() != 20 {
		t.Errorf("ReclaimableBytes = %d, want 20", g.ReclaimableBytes())
	}
}

func TestRunResult(t *testing.T) {
	r := &RunResult{Scanned: 7, Deleted: 4}
	if r.Remaining() != 3 {
		t.Errorf("Remaining = %d, want 3", r.Remaining())
	}
	if r.HasFailures() {
		t.Error("no failures recorded")
	}
	r.DeleteErrors = append(r.DeleteErrors, *NewDeleteError("/d/x", ErrNotFound))
	if !r.HasFailures() {
		t.Error("HasFailures should report delete errors")
	}
}

func TestFingerprint(t *testing.T) {
	var f Fingerprint
	f[0] = 0xab
	f[31] = 0x01

	s := f.String()
	if len(s) != 64 || !strings.HasPrefix(s, "ab00") || !strings.HasSuffix(s, "01") {
		t.Errorf("unexpected hex %q", s)
	}
	if f.Short() != "ab0000000000" {
		t.Errorf("Short = %q", f.Short())
	}
	if (FileID{}).IsZero() != true || (FileID{Ino: 1}).IsZero() {
		t.Error("IsZero mismatch")
	}
}
