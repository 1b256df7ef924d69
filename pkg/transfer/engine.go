package transfer

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/paulschiretz/pgl-snapsync/pkg/util"
)

// Engine represents the external transfer tool to drive.
type Engine int

const (
	// Rsync drives rsync and supports hard-link snapshots via --link-dest.
	Rsync Engine = iota
	// Robocopy drives the Windows robocopy utility.
	Robocopy
)

var engineToString = map[Engine]string{Rsync: "rsync", Robocopy: "robocopy"}
var stringToEngine = map[string]Engine{}

func init() {
	stringToEngine = util.InvertMap(engineToString)
}

// String returns the string representation of a Engine.
func (e Engine) String() string {
	if str, ok := engineToString[e]; ok {
		return str
	}
	return fmt.Sprintf("unknown_engine(%d)", e)
}

// DisplayName is used in the Started/Finished log lines.
func (e Engine) DisplayName() string {
	switch e {
	case Rsync:
		return "RSync::Local"
	case Robocopy:
		return "Robocopy::Local"
	default:
		return e.String()
	}
}

// DefaultTool is the executable name looked up when no explicit tool is configured.
func (e Engine) DefaultTool() string {
	return e.String()
}

// SupportsLinkReference reports whether the engine can reuse files from a
// previous snapshot.
func (e Engine) SupportsLinkReference() bool {
	return e == Rsync
}

// ParseEngine parses a string and returns the corresponding Engine.
func ParseEngine(s string) (Engine, error) {
	if engine, ok := stringToEngine[s]; ok {
		return engine, nil
	}
	return 0, fmt.Errorf("invalid engine: %q. Must be 'rsync' or 'robocopy'", s)
}

// MarshalYAML implements the yaml.Marshaler interface for Engine.
func (e Engine) MarshalYAML() (interface{}, error) {
	return e.String(), nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Engine.
func (e *Engine) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("Engine should be a string, got %s", value.Tag)
	}

	engine, err := ParseEngine(s) // Use the helper for parsing
	if err != nil {
		return err
	}
	*e = engine
	return nil
}

// NewBuilder returns the command builder for the engine.
func NewBuilder(e Engine) (Builder, error) {
	switch e {
	case Rsync:
		return RsyncBuilder{}, nil
	case Robocopy:
		return RobocopyBuilder{}, nil
	default:
		return nil, fmt.Errorf("no command builder for engine %s", e)
	}
}
