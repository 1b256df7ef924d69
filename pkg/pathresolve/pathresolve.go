// Package pathresolve computes the destination directory of a sync run.
package pathresolve

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulschiretz/pgl-snapsync/pkg/snapshot"
	"github.com/paulschiretz/pgl-snapsync/pkg/util"
)

// Destination is the resolved target of a single run.
type Destination struct {
	// BasePath is the absolute form of the configured base path.
	BasePath string
	// Path is where the transfer tool writes. It equals BasePath unless
	// snapshotting, in which case it is BasePath/<timestamp>.
	Path string
	// SnapshotName is the timestamp segment, empty when not snapshotting.
	SnapshotName string
}

// Resolve computes the destination for basePath. When snapshot is true the
// clock is read once and its second-resolution timestamp is appended.
func Resolve(basePath string, snapshotMode bool, clock snapshot.Clock) (Destination, error) {
	if basePath == "" {
		return Destination{}, fmt.Errorf("base path cannot be empty")
	}

	absBase, err := util.AbsPath(basePath)
	if err != nil {
		return Destination{}, fmt.Errorf("could not resolve base path: %w", err)
	}

	if !snapshotMode {
		return Destination{BasePath: absBase, Path: absBase}, nil
	}

	if clock == nil {
		clock = snapshot.SystemClock{}
	}
	name := snapshot.Name(clock.Now())
	return Destination{
		BasePath:     absBase,
		Path:         filepath.Join(absBase, name),
		SnapshotName: name,
	}, nil
}

// Prepare creates the destination directory and all missing parents.
// An existing directory is not an error.
func Prepare(d Destination) error {
	if err := os.MkdirAll(d.Path, util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("failed to create destination directory %s: %w", d.Path, err)
	}
	return nil
}
