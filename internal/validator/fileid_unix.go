//go:build linux || darwin

package validator

import (
	"time"

	"golang.org/x/sys/unix"
)

type fileID struct {
	inode   uint64
	changed time.Time
}

// fileIdentity returns the inode number and status change time of path.
// Unlike mtime, ctime cannot be set from user space.
func fileIdentity(path string) (fileID, bool) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileID{}, false
	}
	sec, nsec := st.Ctim.Unix()
	return fileID{inode: uint64(st.Ino), changed: time.Unix(sec, nsec)}, true
}
