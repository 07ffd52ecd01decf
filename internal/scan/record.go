package scan

import (
	"os"
	"path/filepath"

	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

// BuildRecord interns the path parts and packs the metadata for one
// filesystem entry. It is the single construction point for records, used
// by the enumerator and by the change monitor's single-path lookups.
func BuildRecord(pool *strpool.Pool, fullPath string, info os.FileInfo) (types.EntryRecord, error) {
	normalized := strpool.NormalizePath(fullPath)
	name := filepath.Base(normalized)
	dir := filepath.Dir(normalized)

	fullID, err := pool.Intern(normalized)
	if err != nil {
		return types.EntryRecord{}, err
	}
	nameID, err := pool.Intern(name)
	if err != nil {
		return types.EntryRecord{}, err
	}
	dirID, err := pool.Intern(dir)
	if err != nil {
		return types.EntryRecord{}, err
	}

	var extID types.StringID
	if !info.IsDir() {
		if ext := extOf(name); ext != "" {
			if extID, err = pool.Intern(ext); err != nil {
				return types.EntryRecord{}, err
			}
		}
	}

	created, modified, accessed := statTimes(info)
	attr := buildAttrs(name, info)

	size := info.Size()
	if info.IsDir() {
		size = 0
	}

	return types.EntryRecord{
		FullPathID:   fullID,
		NameID:       nameID,
		DirID:        dirID,
		ExtID:        extID,
		Size:         size,
		CreatedUnix:  created,
		ModifiedUnix: modified,
		AccessedUnix: accessed,
		Attr:         attr,
		Volume:       volumeTag(fullPath),
	}, nil
}

func buildAttrs(name string, info os.FileInfo) types.AttrBits {
	var attr types.AttrBits
	if info.IsDir() {
		attr |= types.AttrDirectory
	}
	if info.Mode()&os.ModeSymlink != 0 {
		attr |= types.AttrSymlink
	}
	if info.Mode().Perm()&0200 == 0 {
		attr |= types.AttrReadOnly
	}
	hidden, system := platformAttrs(name, info)
	if hidden {
		attr |= types.AttrHidden
	}
	if system {
		attr |= types.AttrSystem
	}
	return attr
}

// Stat builds a record for a single path, following the same normalization
// as the enumerator. Used by the change monitor.
func Stat(pool *strpool.Pool, path string) (types.EntryRecord, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return types.EntryRecord{}, err
	}
	return BuildRecord(pool, path, info)
}
