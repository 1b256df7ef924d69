//go:build !windows

package toolexec

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// checkExecutable verifies that path is a regular file the current user may execute.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("%s is not executable: %w", path, err)
	}
	return nil
}
