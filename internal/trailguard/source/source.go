// Package source fetches raw CloudTrail records from wherever trails are kept.
//
// A trail file is a JSON object with a top-level Records array, optionally
// gzipped. Sources contain read failures: an unreadable or unparseable file is
// logged and skipped, and an unavailable location yields no records.
package source

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/event"
)

// ErrUnsupportedSource is returned by New for unknown source kinds.
var ErrUnsupportedSource = errors.New("unsupported event source")

// Source yields every record currently available at one location.
// Fetch returns an error only when ctx is done.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]event.Record, error)
}

// New builds the source named by kind ("dir" or "s3") from cfg.
func New(ctx context.Context, kind string, cfg config.SourceCfg) (Source, error) {
	switch strings.ToLower(kind) {
	case "dir", "local", "":
		return NewDirSource(cfg.Dir), nil
	case "s3":
		s, err := NewS3SourceFromConfig(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, kind)
	}
}

// isTrailFile reports whether name looks like a CloudTrail log file.
func isTrailFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")
}

// decodeRecords parses one trail file. gz selects transparent gunzip.
func decodeRecords(r io.Reader, gz bool) ([]event.Record, error) {
	if gz {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	top, ok := event.AsMap(doc)
	if !ok {
		return nil, nil
	}
	entries, ok := event.AsList(top["Records"])
	if !ok {
		return nil, nil
	}

	records := make([]event.Record, 0, len(entries))
	for _, e := range entries {
		m, ok := event.AsMap(e)
		if !ok {
			continue
		}
		records = append(records, event.Record(m))
	}
	return records, nil
}
