package helpers

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// Mode selects how command results are rendered.
type Mode string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
	// ModeAuto resolves to text on a terminal and JSON otherwise.
	ModeAuto Mode = "auto"
)

// ParseMode validates a --format value.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeText, ModeJSON:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("invalid format %q: must be one of [auto text json]", raw)
	}
}

// ResolveMode turns auto into a concrete mode based on the output stream.
func ResolveMode(mode Mode, out *os.File) Mode {
	if mode != ModeAuto {
		return mode
	}
	if isRunningInCI() || out == nil {
		return ModeJSON
	}
	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		return ModeText
	}
	return ModeJSON
}

// ShouldUseColor reports whether styled output is appropriate for out.
func ShouldUseColor(out *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || isRunningInCI() || out == nil {
		return false
	}
	if term := os.Getenv("TERM"); term == "dumb" {
		return false
	}
	return isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
}

func isRunningInCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE", "JENKINS_URL", "TF_BUILD"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}
