package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/event"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
)

// DirSource reads *.json and *.json.gz trail files from one directory.
// Subdirectories are not descended into.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (d *DirSource) Name() string {
	return "dir:" + d.dir
}

func (d *DirSource) Fetch(ctx context.Context) ([]event.Record, error) {
	records := []event.Record{}

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		logger.L().Warnw("log directory unavailable, no events read", "dir", d.dir, "error", err)
		return records, nil
	}

	files := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if entry.IsDir() || !isTrailFile(entry.Name()) {
			continue
		}
		path := filepath.Join(d.dir, entry.Name())
		recs, err := readTrailFile(path)
		if err != nil {
			logger.L().Warnw("skipping unreadable trail file", "file", path, "error", err)
			continue
		}
		files++
		records = append(records, recs...)
	}

	logger.L().Debugw("read trail directory", "dir", d.dir, "files", files, "records", len(records))
	return records, nil
}

func readTrailFile(path string) ([]event.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeRecords(f, strings.HasSuffix(path, ".gz"))
}
