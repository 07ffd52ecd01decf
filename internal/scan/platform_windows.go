//go:build windows

package scan

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// systemAttrReliable: Windows reports the system bit natively, so the
// enumerator may skip system entries early when asked to.
const systemAttrReliable = true

func platformAttrs(_ string, info os.FileInfo) (hidden, system bool) {
	if d, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		hidden = d.FileAttributes&windows.FILE_ATTRIBUTE_HIDDEN != 0
		system = d.FileAttributes&windows.FILE_ATTRIBUTE_SYSTEM != 0
	}
	return hidden, system
}

// statTimes extracts created/modified/accessed as Unix seconds from the
// Win32 attribute data.
func statTimes(info os.FileInfo) (created, modified, accessed int64) {
	if d, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return d.CreationTime.Nanoseconds() / 1e9,
			d.LastWriteTime.Nanoseconds() / 1e9,
			d.LastAccessTime.Nanoseconds() / 1e9
	}
	mod := info.ModTime().Unix()
	return mod, mod, mod
}

// volumeTag is the uppercase drive letter.
func volumeTag(path string) byte {
	if len(path) >= 2 && path[1] == ':' {
		c := path[0]
		if c >= 'a' && c <= 'z' {
			c -= 0x20
		}
		return c
	}
	return '\\'
}

// isVirtualMount is a no-op on Windows.
func isVirtualMount(_ string) bool {
	return false
}

// FSTypeOf probes the volume's filesystem name (NTFS, FAT32, ...).
func FSTypeOf(path string) string {
	root := path
	if len(path) >= 2 && path[1] == ':' {
		root = path[:2] + `\`
	}
	rootPtr, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return "unknown"
	}
	var fsName [windows.MAX_PATH + 1]uint16
	err = windows.GetVolumeInformation(rootPtr, nil, 0, nil, nil, nil, &fsName[0], uint32(len(fsName)))
	if err != nil {
		return "unknown"
	}
	return windows.UTF16ToString(fsName[:])
}

// ListRoots enumerates the logical drives.
func ListRoots() []string {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil
	}
	var roots []string
	for i := 0; i < 26; i++ {
		if mask&(1<<i) != 0 {
			roots = append(roots, string(rune('A'+i))+`:\`)
		}
	}
	return roots
}
