//go:build !windows

package scan

import (
	"os"
	"strings"
)

// systemAttrReliable reports whether the OS exposes a native system
// attribute the enumerator may trust for early skipping. Unix has none, so
// system filtering is left to the evaluator.
const systemAttrReliable = false

// platformAttrs derives hidden/system from what the platform exposes. On
// unix, hidden is the dotfile convention and there is no system bit.
func platformAttrs(name string, _ os.FileInfo) (hidden, system bool) {
	return strings.HasPrefix(name, "."), false
}

// volumeTag identifies the mount for a path. Mount-point granularity would
// cost a stat per entry, so unix uses the filesystem root tag.
func volumeTag(_ string) byte {
	return '/'
}
