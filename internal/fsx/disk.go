package fsx

import (
	"io/fs"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/disk"
)

// DiskUsage aggregates partition usage for the base directory plus the size
// of the temp download area. The temp numbers come from a full walk on every
// call; the directory is small and nothing is cached.
type DiskUsage struct {
	Total       uint64
	Used        uint64
	Free        uint64
	UsedPercent float64
	TempSize    int64
	TempFiles   int
}

func (e *Explorer) DiskUsage() (*DiskUsage, error) {
	usage, err := disk.Usage(e.guard.BaseDir())
	if err != nil {
		return nil, err
	}
	du := &DiskUsage{
		Total:       usage.Total,
		Used:        usage.Used,
		Free:        usage.Free,
		UsedPercent: usage.UsedPercent,
	}
	filepath.WalkDir(e.tempDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		du.TempFiles++
		if fi, infoErr := d.Info(); infoErr == nil {
			du.TempSize += fi.Size()
		}
		return nil
	})
	return du, nil
}
