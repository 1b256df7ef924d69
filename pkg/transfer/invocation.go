package transfer

import (
	"strings"
	"unicode"
)

type arg struct {
	value string // passed to the process as-is
	shell string // rendering used in the shell command line
}

// Invocation is a fully assembled command. It is immutable once built; all
// accessors return copies.
type Invocation struct {
	program        string
	programShell   string
	args           []arg
	maxSuccessCode int
}

// Program is the executable to run.
func (i Invocation) Program() string { return i.program }

// Args returns the argument list, excluding the program.
func (i Invocation) Args() []string {
	out := make([]string, len(i.args))
	for n, a := range i.args {
		out[n] = a.value
	}
	return out
}

// ShellArgs returns the arguments as they appear in the shell command line.
func (i Invocation) ShellArgs() []string {
	out := make([]string, len(i.args))
	for n, a := range i.args {
		out[n] = a.shell
	}
	return out
}

// String renders the invocation as a single shell command line.
func (i Invocation) String() string {
	parts := make([]string, 0, len(i.args)+1)
	parts = append(parts, i.programShell)
	parts = append(parts, i.ShellArgs()...)
	return strings.Join(parts, " ")
}

// IsSuccess reports whether an exit code means the transfer succeeded.
func (i Invocation) IsSuccess(exitCode int) bool {
	return exitCode >= 0 && exitCode <= i.maxSuccessCode
}

// invocationBuilder accumulates arguments in order.
type invocationBuilder struct {
	inv   Invocation
	quote func(string) string
}

func newInvocationBuilder(program string, quote func(string) string) *invocationBuilder {
	shell := program
	if needsQuoting(program) {
		shell = quote(program)
	}
	return &invocationBuilder{inv: Invocation{program: program, programShell: shell}, quote: quote}
}

// needsQuoting reports whether s contains anything besides letters, digits
// and the characters common in plain paths. Such a program name is quoted in
// the shell form; "rsync" or "/usr/bin/rsync" stay bare.
func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("/._-+:,=@%", r)
	}) >= 0
}

// flag appends an argument rendered verbatim.
func (b *invocationBuilder) flag(v string) {
	b.inv.args = append(b.inv.args, arg{value: v, shell: v})
}

// quoted appends prefix+value, quoting only the value in the shell form.
func (b *invocationBuilder) quoted(prefix, value string) {
	b.inv.args = append(b.inv.args, arg{value: prefix + value, shell: prefix + b.quote(value)})
}

func (b *invocationBuilder) build() Invocation {
	return b.inv
}
