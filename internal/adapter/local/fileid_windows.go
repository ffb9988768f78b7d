//go:build windows

package local

import (
	"golang.org/x/sys/windows"

	"github.com/Ning0612/dirdedup/internal/domain"
)

// statID returns the volume serial / file index identity of path
func statID(path string) (domain.FileID, bool) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return domain.FileID{}, false
	}
	h, err := windows.CreateFile(p, 0, windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING, windows.FILE_FLAG_OPEN_REPARSE_POINT|windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return domain.FileID{}, false
	}
	defer windows.CloseHandle(h)

	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &info); err != nil {
		return domain.FileID{}, false
	}
	return domain.FileID{
		Dev: uint64(info.VolumeSerialNumber),
		Ino: uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow),
	}, true
}
