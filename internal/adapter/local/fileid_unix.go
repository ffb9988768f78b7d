//go:build !windows

package local

import (
	"golang.org/x/sys/unix"

	"github.com/Ning0612/dirdedup/internal/domain"
)

// statID returns the device/inode identity of path without following symlinks
func statID(path string) (domain.FileID, bool) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return domain.FileID{}, false
	}
	return domain.FileID{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
}
