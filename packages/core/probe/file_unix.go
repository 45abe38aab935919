//go:build unix

package probe

import (
	"io/fs"
	"syscall"

	"golang.org/x/sys/unix"
)

// Permission masks accepted by File.Permits: the read, write or execute bit
// for owner, group and other.
const (
	AccessRead    = unix.S_IRUSR | unix.S_IRGRP | unix.S_IROTH
	AccessWrite   = unix.S_IWUSR | unix.S_IWGRP | unix.S_IWOTH
	AccessExecute = unix.S_IXUSR | unix.S_IXGRP | unix.S_IXOTH
)

func ownership(info fs.FileInfo) (uid, gid uint32, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return st.Uid, st.Gid, true
}
