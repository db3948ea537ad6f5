package config

import (
	"context"
	"fmt"
	"sort"

	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/compozy/docrag/cli/cmd"
	"github.com/compozy/docrag/cli/helpers"
	appconfig "github.com/compozy/docrag/pkg/config"
)

const redacted = "[REDACTED]"

// NewConfigCommand inspects the effective configuration.
func NewConfigCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print every configuration value with its source",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runShow, args)
		},
	}
	show.Flags().Bool("yaml", false, "Print the configuration as YAML")
	command.AddCommand(show, &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runValidate, args)
		},
	})
	return command
}

// Entry is one flattened configuration value.
type Entry struct {
	Path   string `json:"path"`
	Value  any    `json:"value"`
	Source string `json:"source,omitempty"`
	EnvVar string `json:"envVar,omitempty"`
}

// Flatten lists every configuration path with secrets redacted.
func Flatten(cfg *appconfig.Config, svc appconfig.Service) ([]Entry, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to flatten configuration: %w", err)
	}
	all := k.All()
	paths := make([]string, 0, len(all))
	for path := range all {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	entries := make([]Entry, 0, len(paths))
	for _, path := range paths {
		value := all[path]
		if appconfig.IsSensitiveConfigPath(path) && fmt.Sprint(value) != "" {
			value = redacted
		}
		entry := Entry{Path: path, Value: value, EnvVar: appconfig.GetEnvVarForConfigPath(path)}
		if svc != nil {
			entry.Source = string(svc.GetSource(path))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func runShow(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	entries, err := Flatten(executor.Config, cmd.ConfigService(ctx))
	if err != nil {
		return err
	}
	out := executor.Out
	if asYAML, _ := c.Flags().GetBool("yaml"); asYAML {
		nested := koanf.New(".")
		for _, e := range entries {
			if err := nested.Set(e.Path, e.Value); err != nil {
				return err
			}
		}
		data, err := yaml.Marshal(nested.Raw())
		if err != nil {
			return fmt.Errorf("failed to render yaml: %w", err)
		}
		_, err = out.Writer().Write(data)
		return err
	}
	if out.Mode() == helpers.ModeJSON {
		return out.JSON(map[string]any{"success": true, "entries": entries})
	}
	out.Title("Effective configuration")
	for _, e := range entries {
		value := fmt.Sprint(e.Value)
		if e.Source != "" {
			value = fmt.Sprintf("%s  (%s)", value, e.Source)
		}
		out.Field(e.Path, value)
	}
	return nil
}

func runValidate(_ context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	out := executor.Out
	if out.Mode() == helpers.ModeJSON {
		return out.JSON(map[string]any{"success": true, "message": "configuration is valid"})
	}
	out.Text("Configuration is valid")
	out.Muted("%s", executor.Config.String())
	return nil
}
