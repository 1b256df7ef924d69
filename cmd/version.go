package cmd

import "fmt"

// RunVersion prints the application name and version, e.g. "PGL-SnapSync version 1.2.0".
func RunVersion(appName, appVersion string) error {
	_, err := fmt.Printf("%s version %s\n", appName, appVersion)
	return err
}
