package transfer

import (
	"fmt"

	"github.com/paulschiretz/pgl-snapsync/pkg/util"
)

// RsyncBuilder assembles rsync command lines.
//
// Argument order is fixed:
//
//	rsync [--archive] [--delete] [--exclude=P ...] [--link-dest=DIR] [extra ...] SRC... DEST
type RsyncBuilder struct{}

var _ Builder = RsyncBuilder{}

// Build implements Builder.
func (RsyncBuilder) Build(req Request) (Invocation, error) {
	if len(req.Options.Sources) == 0 {
		return Invocation{}, fmt.Errorf("cannot build rsync command: %w", ErrNoSources)
	}

	sources := make([]string, len(req.Options.Sources))
	for i, src := range req.Options.Sources {
		abs, err := util.AbsPath(src.Path)
		if err != nil {
			return Invocation{}, fmt.Errorf("could not resolve source %q: %w", src.Path, err)
		}
		sources[i] = abs
	}
	dest, err := util.AbsPath(req.Destination)
	if err != nil {
		return Invocation{}, fmt.Errorf("could not resolve destination %q: %w", req.Destination, err)
	}

	b := newInvocationBuilder(req.Tool, util.ShellQuote)

	if req.Options.Archive {
		b.flag("--archive")
	}
	if req.Options.Mirror {
		b.flag("--delete")
	}
	for _, src := range req.Options.Sources {
		for _, pattern := range src.Excludes {
			b.quoted("--exclude=", pattern)
		}
	}
	if req.LinkReference != "" {
		b.quoted("--link-dest=", req.LinkReference)
	}
	for _, opt := range req.Options.AdditionalOptions {
		b.flag(opt)
	}
	for _, src := range sources {
		b.quoted("", src)
	}
	b.quoted("", dest)

	return b.build(), nil
}
