//go:build unix

package dupcat

import (
	"fmt"
	"io/fs"
	"syscall"
)

// statIdentity extracts the (device, inode) physical identity from a
// FileInfo obtained via os.Stat or DirEntry.Info.
func statIdentity(info fs.FileInfo) (dev, inode uint64, err error) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, fmt.Errorf("cannot extract stat data: expected *syscall.Stat_t, got %T", info.Sys())
	}
	return uint64(st.Dev), uint64(st.Ino), nil
}
