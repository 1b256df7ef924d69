// Package snapshot defines the on-disk naming scheme for snapshot directories
// and discovers existing snapshots under a base path.
//
// A snapshot is a directory directly below the base path whose name is a UTC
// timestamp in the fixed layout "2006-01-02-15-04-05". Because every field is
// zero-padded and ordered from most to least significant, sorting names as
// plain strings is the same as sorting them chronologically.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Layout is the time layout used to name snapshot directories (YYYY-MM-DD-HH-MM-SS).
const Layout = "2006-01-02-15-04-05"

// Clock provides the current time. It is injected so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Name formats t as a snapshot directory name. The time is converted to UTC
// first so names stay ordered across DST changes.
func Name(t time.Time) string {
	return t.UTC().Format(Layout)
}

// ParseName reports the timestamp encoded in a snapshot directory name.
func ParseName(name string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, name, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a snapshot name: %w", name, err)
	}
	return t, nil
}

// IsName reports whether name is a well-formed snapshot directory name.
func IsName(name string) bool {
	_, err := ParseName(name)
	return err == nil
}

// Directory is a snapshot found under a base path.
type Directory struct {
	Name string    // directory name, e.g. 2017-01-01-02-00-00
	Path string    // absolute path of the directory
	Time time.Time // timestamp parsed from Name
}

// List returns the snapshot directories directly below basePath, newest first.
// Regular files and directories whose names are not snapshot timestamps are
// ignored. A missing base path yields an empty list.
func List(ctx context.Context, basePath string) ([]Directory, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Directory{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory %s: %w", basePath, err)
	}

	found := make([]Directory, 0, len(entries))
	for _, entry := range entries {
		// Check for cancellation during the directory scan.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !entry.IsDir() {
			continue
		}
		ts, err := ParseName(entry.Name())
		if err != nil {
			continue
		}
		found = append(found, Directory{
			Name: entry.Name(),
			Path: filepath.Join(basePath, entry.Name()),
			Time: ts,
		})
	}

	SortNewestFirst(found)
	return found, nil
}

// SortNewestFirst orders dirs by name, descending.
func SortNewestFirst(dirs []Directory) {
	sort.Slice(dirs, func(i, j int) bool {
		return dirs[i].Name > dirs[j].Name
	})
}

// Latest returns the newest snapshot in basePath, skipping the directory
// named exclude. The boolean is false when no such snapshot exists.
func Latest(ctx context.Context, basePath, exclude string) (Directory, bool, error) {
	dirs, err := List(ctx, basePath)
	if err != nil {
		return Directory{}, false, err
	}
	for _, d := range dirs {
		if d.Name == exclude {
			continue
		}
		return d, true, nil
	}
	return Directory{}, false, nil
}
