//go:build !linux && !darwin

package validator

import "time"

type fileID struct {
	inode   uint64
	changed time.Time
}

func fileIdentity(string) (fileID, bool) {
	return fileID{}, false
}
