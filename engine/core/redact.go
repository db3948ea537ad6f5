package core

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	redactedMark    = "[REDACTED]"
	maxRedactedRune = 256
)

type redaction struct {
	re   *regexp.Regexp
	repl string
}

// redactions run in order; credentials embedded in URLs go first so the
// key=value rule does not split them.
var redactions = []redaction{
	{regexp.MustCompile(`(?i)\b((?:postgres(?:ql)?|rediss?|https?)://)[^@\s/]+@`), "${1}" + redactedMark + "@"},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`), "${1}" + redactedMark},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|key|token|access_token|secret|password|pwd)\s*[:=]\s*["']?[^"'\s&]+["']?`),
		"${1}=" + redactedMark,
	},
	// OpenAI, Anthropic and Google key shapes
	{regexp.MustCompile(`\b(?:sk-(?:ant-)?[A-Za-z0-9_\-]{16,}|AIza[0-9A-Za-z_\-]{30,})\b`), redactedMark},
}

// RedactString scrubs credentials from text that providers or drivers echo
// back, trims it and caps it at 256 runes.
func RedactString(s string) string {
	s = strings.TrimSpace(s)
	for _, r := range redactions {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	if utf8.RuneCountInString(s) > maxRedactedRune {
		s = string([]rune(s)[:maxRedactedRune]) + "…"
	}
	return s
}

// RedactError is RedactString over err's message; nil yields "".
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}
