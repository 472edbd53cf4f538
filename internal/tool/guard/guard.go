// Package guard classifies shell commands before any external policy is
// consulted. Classification is a pure function of the command text and the
// active mode: the same input always yields the same decision.
package guard

import "strings"

// Mode is the built-in three-valued run_cmd policy.
type Mode string

const (
	// ModeConfirmDangerous auto-approves known-safe read commands and asks
	// for confirmation on anything mutating or unrecognised.
	ModeConfirmDangerous Mode = "confirm_dangerous"
	// ModeAllConfirm requires confirmation for every command.
	ModeAllConfirm Mode = "all_confirm"
	// ModeUnrestricted auto-approves everything not on the blocklist.
	ModeUnrestricted Mode = "unrestricted"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeConfirmDangerous, ModeAllConfirm, ModeUnrestricted:
		return true
	}
	return false
}

// Outcome distinguishes the three decision shapes.
type Outcome int

const (
	AllowAuto Outcome = iota
	NeedsConfirmation
	Blocked
)

// Decision is the classifier's verdict for one command.
type Decision struct {
	Outcome    Outcome
	Reason     string
	Suggestion string
}

// blockedPatterns can never be overridden, regardless of mode, --yes or any
// external policy.
var blockedPatterns = []string{
	"rm -rf /",
	"mkfs",
	"shutdown",
	"reboot",
	"dd if=",
	"git reset --hard",
	"git clean -fd",
	":(){:|:&};:",
}

// safeReadPrefixes are auto-approved under ModeConfirmDangerous.
var safeReadPrefixes = []string{
	"ls", "pwd", "cat ", "head ", "tail ", "wc ", "date", "echo ", "rg ", "find ",
}

// dangerousPatterns mark network/write/system-impacting operations.
var dangerousPatterns = []string{
	"rm ",
	"mv ",
	"cp ",
	"curl ",
	"wget ",
	"ssh ",
	"scp ",
	"chmod ",
	"chown ",
	"sudo ",
	"git push",
	"git commit",
	"git reset",
	"cargo publish",
	"npm publish",
	">",
	">>",
}

// Classify maps a command string and mode to a Decision.
func Classify(command string, mode Mode) Decision {
	cmd := strings.ToLower(strings.TrimSpace(command))

	for _, pattern := range blockedPatterns {
		if strings.Contains(cmd, pattern) {
			return Decision{
				Outcome:    Blocked,
				Reason:     "high-risk destructive command",
				Suggestion: "use safer scoped commands and review the target path",
			}
		}
	}

	switch mode {
	case ModeUnrestricted:
		return Decision{Outcome: AllowAuto}
	case ModeAllConfirm:
		return Decision{
			Outcome: NeedsConfirmation,
			Reason:  "all commands require confirmation in this profile",
		}
	default:
		if isSafeRead(cmd) {
			return Decision{Outcome: AllowAuto}
		}
		if isDangerousOrMutating(cmd) {
			return Decision{
				Outcome: NeedsConfirmation,
				Reason:  "detected network/write/system-impacting operation",
			}
		}
		// Default-deny-to-confirm for anything unrecognised.
		return Decision{
			Outcome: NeedsConfirmation,
			Reason:  "unknown command safety",
		}
	}
}

func isSafeRead(cmd string) bool {
	for _, prefix := range safeReadPrefixes {
		if cmd == prefix || strings.HasPrefix(cmd, prefix) {
			return true
		}
	}
	return false
}

func isDangerousOrMutating(cmd string) bool {
	for _, pattern := range dangerousPatterns {
		if strings.Contains(cmd, pattern) {
			return true
		}
	}
	return false
}
