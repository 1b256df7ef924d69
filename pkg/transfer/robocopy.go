package transfer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulschiretz/pgl-snapsync/pkg/util"
)

// robocopyMaxSuccessCode is the highest robocopy exit code that still means
// success. Codes 0-7 report what was copied; 8 and above report failures.
const robocopyMaxSuccessCode = 7

// ErrRobocopySingleSource is returned when more than one source is configured
// for the robocopy engine.
var ErrRobocopySingleSource = errors.New("robocopy supports exactly one source directory")

// ErrRobocopyLinkReference is returned when a link reference is requested from
// the robocopy engine, which has no equivalent of --link-dest.
var ErrRobocopyLinkReference = errors.New("robocopy does not support link references")

// RobocopyBuilder assembles robocopy command lines.
//
// Robocopy arguments:
//
//	/MIR :: MIRror a directory tree (equivalent to /E plus /PURGE).
//	/E :: copy subdirectories, including Empty ones.
//	/COPY:DAT /DCOPY:DAT :: copy Data, Attributes and Timestamps of files and directories.
//	/SL :: Copy symbolic links instead of the target.
//	/XF :: eXclude Files matching the given patterns.
//	/XD :: eXclude Directories matching the given patterns.
type RobocopyBuilder struct{}

var _ Builder = RobocopyBuilder{}

// Build implements Builder.
func (RobocopyBuilder) Build(req Request) (Invocation, error) {
	if len(req.Options.Sources) == 0 {
		return Invocation{}, fmt.Errorf("cannot build robocopy command: %w", ErrNoSources)
	}
	if len(req.Options.Sources) > 1 {
		return Invocation{}, fmt.Errorf("cannot build robocopy command with %d sources: %w", len(req.Options.Sources), ErrRobocopySingleSource)
	}
	if req.LinkReference != "" {
		return Invocation{}, fmt.Errorf("cannot build robocopy command: %w", ErrRobocopyLinkReference)
	}

	src := req.Options.Sources[0]
	absSrc, err := util.AbsPath(src.Path)
	if err != nil {
		return Invocation{}, fmt.Errorf("could not resolve source %q: %w", src.Path, err)
	}
	dest, err := util.AbsPath(req.Destination)
	if err != nil {
		return Invocation{}, fmt.Errorf("could not resolve destination %q: %w", req.Destination, err)
	}

	b := newInvocationBuilder(req.Tool, doubleQuote)
	b.inv.maxSuccessCode = robocopyMaxSuccessCode

	b.quoted("", absSrc)
	b.quoted("", dest)

	if req.Options.Mirror {
		b.flag("/MIR")
	} else {
		b.flag("/E")
	}
	if req.Options.Archive {
		b.flag("/COPY:DAT")
		b.flag("/DCOPY:DAT")
		b.flag("/SL")
	}

	// Patterns with a trailing slash name directories, mirroring rsync's syntax.
	var fileExcludes, dirExcludes []string
	for _, pattern := range src.Excludes {
		if trimmed := strings.TrimRight(pattern, `/\`); trimmed != pattern {
			dirExcludes = append(dirExcludes, trimmed)
		} else {
			fileExcludes = append(fileExcludes, pattern)
		}
	}
	if len(fileExcludes) > 0 {
		b.flag("/XF")
		for _, p := range fileExcludes {
			b.quoted("", p)
		}
	}
	if len(dirExcludes) > 0 {
		b.flag("/XD")
		for _, p := range dirExcludes {
			b.quoted("", p)
		}
	}

	for _, opt := range req.Options.AdditionalOptions {
		b.flag(opt)
	}

	return b.build(), nil
}

// doubleQuote quotes a value for cmd.exe style command lines.
func doubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
