package probe

import (
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"
)

type FileType int

const (
	TypeUnknown FileType = iota
	TypeFile
	TypeDirectory
	TypeOther
)

func (t FileType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	case TypeOther:
		return "other"
	default:
		return "unknown"
	}
}

// File is a point-in-time view of a path's metadata. Symlinks are followed
// for everything except Symlink, so a dangling link does not exist.
type File struct {
	Path    string
	Exists  bool
	Symlink bool
	Type    FileType
	Perm    fs.FileMode
	UID     uint32
	GID     uint32
	Owner   string
	Group   string
	Size    int64

	err error
}

// StatFile reads the metadata of path. Failures are kept on the returned File
// and reported by Err, so a missing path still yields a usable value.
func StatFile(path string) *File {
	f := &File{Path: path}

	linfo, err := os.Lstat(path)
	if err != nil {
		f.err = pathError("stat", path, err)
		return f
	}
	f.Symlink = linfo.Mode()&fs.ModeSymlink != 0

	info := linfo
	if f.Symlink {
		info, err = os.Stat(path)
		if err != nil {
			f.err = pathError("stat", path, err)
			return f
		}
	}
	f.Exists = true

	switch {
	case info.Mode().IsRegular():
		f.Type = TypeFile
	case info.IsDir():
		f.Type = TypeDirectory
	default:
		f.Type = TypeOther
	}
	f.Perm = info.Mode().Perm() | (info.Mode() & (fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky))
	f.Size = info.Size()

	if uid, gid, ok := ownership(info); ok {
		f.UID, f.GID = uid, gid
		f.Owner = userName(uid)
		f.Group = groupName(gid)
	}
	return f
}

// Err returns the error encountered while reading metadata, if any.
func (f *File) Err() error {
	return f.err
}

// ReadContent reads the full file. Each call reads afresh.
func (f *File) ReadContent() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, pathError("read", f.Path, err)
	}
	return data, nil
}

// Permits reports whether any bit of mask is set in the file's permission
// bits. Only the mode is consulted, so the answer does not depend on who runs
// the check.
func (f *File) Permits(mask uint32) error {
	if uint32(f.Perm.Perm())&mask != 0 {
		return nil
	}
	return &Error{
		Op:      "access",
		Subject: f.Path,
		Kind:    ErrPermissionDenied,
		Err:     fmt.Errorf("mode %04o has none of %04o", f.UnixMode(), mask),
	}
}

// UnixMode returns the permission bits in the numeric form chmod accepts.
func (f *File) UnixMode() int64 {
	m := int64(f.Perm.Perm())
	if f.Perm&fs.ModeSetuid != 0 {
		m |= 0o4000
	}
	if f.Perm&fs.ModeSetgid != 0 {
		m |= 0o2000
	}
	if f.Perm&fs.ModeSticky != 0 {
		m |= 0o1000
	}
	return m
}

func userName(uid uint32) string {
	id := strconv.FormatUint(uint64(uid), 10)
	if u, err := user.LookupId(id); err == nil {
		return u.Username
	}
	return id
}

func groupName(gid uint32) string {
	id := strconv.FormatUint(uint64(gid), 10)
	if g, err := user.LookupGroupId(id); err == nil {
		return g.Name
	}
	return id
}
