//go:build linux

package scan

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/standardbeagle/fastfind/internal/strpool"
)

// virtualFSTypes are pseudo filesystems the enumerator never descends into.
// overlay stays in the set as a fallback: an overlay mount point found
// mid-tree is skipped, but a scan root that is itself overlay (a container
// rootfs) is still traversed because roots bypass the mount check.
var virtualFSTypes = map[string]struct{}{
	"proc": {}, "sysfs": {}, "tmpfs": {}, "devtmpfs": {}, "devpts": {},
	"securityfs": {}, "cgroup": {}, "cgroup2": {}, "pstore": {},
	"debugfs": {}, "hugetlbfs": {}, "mqueue": {}, "fusectl": {},
	"configfs": {}, "binfmt_misc": {}, "autofs": {}, "efivarfs": {},
	"tracefs": {}, "bpf": {}, "ramfs": {}, "rpc_pipefs": {}, "nsfs": {},
	"overlay": {},
}

var (
	mountsOnce sync.Once
	mountTypes map[string]string // normalized mount point -> fstype
)

// loadMounts parses the mount table once per process. Failure leaves the
// table empty; the enumerator then relies on exclusion patterns alone.
func loadMounts() {
	mountTypes = make(map[string]string)
	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mountTypes[strpool.NormalizePath(fields[1])] = fields[2]
	}
}

// isVirtualMount reports whether path is the mount point of a pseudo
// filesystem.
func isVirtualMount(path string) bool {
	mountsOnce.Do(loadMounts)
	fstype, ok := mountTypes[strpool.NormalizePath(path)]
	if !ok {
		return false
	}
	_, virtual := virtualFSTypes[fstype]
	return virtual
}

// statfs magic numbers for the FSType probe; the mount table covers
// everything else.
var fsMagicNames = map[int64]string{
	0x9123683e: "btrfs",
	0xef53:     "ext4",
	0x58465342: "xfs",
	0x6969:     "nfs",
	0x01021994: "tmpfs",
	0x9fa0:     "proc",
	0x62656572: "sysfs",
	0x794c7630: "overlay",
	0x2fc12fc1: "zfs",
	0xf15f:     "ecryptfs",
	0x65735546: "fuse",
	0x4d44:     "msdos",
	0x5346544e: "ntfs",
}

// FSTypeOf probes the filesystem type of a path, preferring the statfs
// magic and falling back to the mount table.
func FSTypeOf(path string) string {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err == nil {
		if name, ok := fsMagicNames[int64(st.Type)]; ok {
			return name
		}
	}
	mountsOnce.Do(loadMounts)
	// Walk up to the nearest mount point.
	p := strpool.NormalizePath(path)
	for {
		if fstype, ok := mountTypes[p]; ok {
			return fstype
		}
		parent := p[:strings.LastIndexByte(p, '/')+1]
		if parent == p || parent == "" {
			return "unknown"
		}
		p = strings.TrimSuffix(parent, "/")
		if p == "" {
			p = "/"
		}
	}
}

// ListRoots returns the mount points of real (non-virtual) filesystems,
// the unix analogue of drive enumeration.
func ListRoots() []string {
	mountsOnce.Do(loadMounts)
	roots := make([]string, 0, 4)
	for mount, fstype := range mountTypes {
		if _, virtual := virtualFSTypes[fstype]; virtual {
			continue
		}
		roots = append(roots, mount)
	}
	if len(roots) == 0 {
		roots = append(roots, "/")
	}
	return roots
}
