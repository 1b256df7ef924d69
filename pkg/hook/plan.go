package hook

type Plan struct {
	Enabled bool

	PreSyncCommands  []string
	PostSyncCommands []string

	// Global Flags
	DryRun   bool
	FailFast bool
}
