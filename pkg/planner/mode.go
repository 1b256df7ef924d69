package planner

import (
	"fmt"

	"github.com/paulschiretz/pgl-snapsync/pkg/util"
)

// Mode represents where a job writes: directly into its base path or into a
// new timestamped snapshot below it.
type Mode int

// Constants for Mode, acting as an enum.
const (
	Direct Mode = iota
	Snapshot
)

var modeToString = map[Mode]string{
	Direct:   "direct",
	Snapshot: "snapshot",
}
var stringToMode = map[string]Mode{}

func init() {
	stringToMode = util.InvertMap(modeToString)
}

// String returns the string representation of a Mode.
func (m Mode) String() string {
	if str, ok := modeToString[m]; ok {
		return str
	}
	return fmt.Sprintf("unknown_sync_mode(%d)", m)
}

// ParseMode parses a string and returns the corresponding Mode.
func ParseMode(s string) (Mode, error) {
	if mode, ok := stringToMode[s]; ok {
		return mode, nil
	}
	return 0, fmt.Errorf("invalid sync mode: %q. Must be 'direct' or 'snapshot'", s)
}

// ModeOf returns Snapshot when snapshotting is enabled.
func ModeOf(snapshot bool) Mode {
	if snapshot {
		return Snapshot
	}
	return Direct
}
