// Package cmdlog renders external command invocations for the audit log with
// sensitive argument values masked.
package cmdlog

import (
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// Redacted replaces every value that follows a sensitive flag.
const Redacted = "REDACTED"

var sensitiveFlags = map[string]bool{
	"--password": true,
	"--secret":   true,
	"-p":         true,
}

// IsSensitiveFlag reports whether the value following arg must be masked.
func IsSensitiveFlag(arg string) bool {
	return sensitiveFlags[arg]
}

// Redact returns a copy of args with the token after each sensitive flag
// replaced by Redacted. A sensitive flag in the last position is kept as is.
// The --flag=value form is masked in place.
func Redact(args []string) []string {
	out := make([]string, len(args))
	next := false
	for i, arg := range args {
		switch {
		case next:
			out[i] = Redacted
			next = false
		case IsSensitiveFlag(arg):
			out[i] = arg
			next = true
		default:
			out[i] = redactInline(arg)
		}
	}
	return out
}

func redactInline(arg string) string {
	flag, _, ok := strings.Cut(arg, "=")
	if !ok || !strings.HasPrefix(flag, "--") || !IsSensitiveFlag(flag) {
		return arg
	}
	return flag + "=" + Redacted
}

// Line renders cmd and its redacted args as a shell-quoted, replayable line.
func Line(cmd string, args []string) string {
	return shellescape.QuoteCommand(append([]string{cmd}, Redact(args)...))
}
