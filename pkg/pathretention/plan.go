package pathretention

type Plan struct {
	// Enabled is true only when snapshotting is on and Keep is positive.
	Enabled bool
	// Keep is the number of snapshots to retain.
	Keep int
	// ExcludeDir names the snapshot written by the current run. It is always
	// kept and does not count towards Keep.
	ExcludeDir string

	// Global Flags
	DryRun  bool
	Metrics bool
}
