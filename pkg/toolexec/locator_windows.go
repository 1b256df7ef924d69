//go:build windows

package toolexec

import (
	"fmt"
	"os"
)

// checkExecutable verifies that path is an existing regular file.
// Windows has no execute bit; the loader decides at start time.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
