package transfer

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one directory to transfer together with the patterns excluded
// below it, in registration order.
type Source struct {
	Path     string   `yaml:"path"`
	Excludes []string `yaml:"excludes,omitempty"`
}

// UnmarshalYAML accepts either a bare path or a mapping with path and excludes.
func (s *Source) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var p string
		if err := value.Decode(&p); err != nil {
			return err
		}
		*s = Source{Path: p}
		return nil
	}

	type plain Source
	var p plain
	if err := value.Decode(&p); err != nil {
		return fmt.Errorf("invalid directory entry: %w", err)
	}
	*s = Source(p)
	return nil
}

// RawOptions are extra flags passed to the tool verbatim. A single string is
// split on whitespace, so "--opt-a --opt-b" and ["--opt-a", "--opt-b"] are
// the same value.
type RawOptions []string

// ParseRawOptions splits a combined option string into discrete flags.
func ParseRawOptions(s string) RawOptions {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return RawOptions(fields)
}

// UnmarshalYAML accepts a string or a list of strings.
func (r *RawOptions) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*r = ParseRawOptions(s)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("additionalOptions must be a list of strings: %w", err)
		}
		*r = RawOptions(list)
		return nil
	default:
		return fmt.Errorf("additionalOptions must be a string or a list of strings")
	}
}

// Options is the tool-independent description of what to transfer.
type Options struct {
	Sources           []Source
	Archive           bool
	Mirror            bool
	AdditionalOptions RawOptions
}

// DefaultOptions returns options with archive mode on and mirror mode off.
func DefaultOptions() Options {
	return Options{Archive: true}
}

// Request is everything a Builder needs for a single run.
type Request struct {
	// Tool is the resolved executable name or path.
	Tool string
	// Options describes sources and flags.
	Options Options
	// Destination is where the tool writes.
	Destination string
	// LinkReference is a previous snapshot to reuse unchanged files from.
	// Empty means none.
	LinkReference string
}

// Builder turns a Request into an Invocation.
type Builder interface {
	Build(req Request) (Invocation, error)
}
