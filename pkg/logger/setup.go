package logger

import (
	"io"

	"github.com/spf13/pflag"
)

// Logging flag names.
const (
	FlagLevel  = "log-level"
	FlagJSON   = "log-json"
	FlagSource = "log-source"
	FlagDebug  = "debug"
)

// AddFlags registers the logging flags on a persistent flag set.
func AddFlags(flags *pflag.FlagSet) {
	flags.String(FlagLevel, string(InfoLevel), "Log level: debug, info, warn, error")
	flags.Bool(FlagJSON, false, "Emit logs as JSON")
	flags.Bool(FlagSource, false, "Include the source location in logs")
	flags.Bool(FlagDebug, false, "Shorthand for --log-level=debug")
}

// ConfigFromFlags builds a logger configuration writing to out. --debug wins
// over --log-level. Flags that were never registered keep their defaults.
func ConfigFromFlags(flags *pflag.FlagSet, out io.Writer) *Config {
	cfg := DefaultConfig()
	if out != nil {
		cfg.Output = out
	}
	if level, err := flags.GetString(FlagLevel); err == nil {
		cfg.Level = ParseLevel(level)
	}
	if debug, _ := flags.GetBool(FlagDebug); debug {
		cfg.Level = DebugLevel
	}
	cfg.JSON, _ = flags.GetBool(FlagJSON)
	cfg.AddSource, _ = flags.GetBool(FlagSource)
	return cfg
}
