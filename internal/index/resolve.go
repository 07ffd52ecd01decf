package index

import (
	"time"

	"github.com/standardbeagle/fastfind/internal/strpool"
	"github.com/standardbeagle/fastfind/internal/types"
)

// ResolveWith expands a record into a caller-facing Entry using pool.
func ResolveWith(pool *strpool.Pool, rec types.EntryRecord) types.Entry {
	return types.Entry{
		FullPath:  pool.Get(rec.FullPathID),
		Name:      pool.Get(rec.NameID),
		Dir:       pool.Get(rec.DirID),
		Extension: pool.Get(rec.ExtID),
		Size:      rec.Size,
		Created:   time.Unix(rec.CreatedUnix, 0).UTC(),
		Modified:  time.Unix(rec.ModifiedUnix, 0).UTC(),
		Accessed:  time.Unix(rec.AccessedUnix, 0).UTC(),
		Attr:      rec.Attr,
		Volume:    rec.Volume,
	}
}
